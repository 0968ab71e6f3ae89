package constraint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// NamePattern is the pattern every node name must match.
var NamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Element is the view of a metadata node that constraints evaluate.
type Element interface {
	TypeID() registry.TypeID
	Name() string
	Value() any
}

// Predicate tests an element.
type Predicate func(el Element) bool

// Constraint is the common part of placement and validation constraints.
type Constraint interface {
	ID() string
	Description() string
}

// Placement is an open-policy rule: among the placements that apply to a parent, at
// least one must allow the child.
type Placement interface {
	Constraint
	AppliesToParent(parent Element) bool
	AllowsChild(child Element) bool
}

// Validation is a closed-policy rule: every validation that applies to a child must pass.
type Validation interface {
	Constraint
	AppliesTo(el Element) bool
	Validate(el Element, value any) error
}

// CheckName reports a KindInvalidName violation if name does not match NamePattern.
func CheckName(name string) error {
	if NamePattern.MatchString(name) {
		return nil
	}
	return &Violation{
		Kind:      KindInvalidName,
		ChildName: name,
		Message:   "names must start with a letter and contain only letters, digits and underscores",
	}
}

// Any matches every element.
func Any(Element) bool { return true }

// IsType matches elements of exactly id.
func IsType(id registry.TypeID) Predicate {
	return func(el Element) bool { return el != nil && el.TypeID() == id }
}

// IsFamily matches elements whose type is typ, any subtype.
func IsFamily(typ string) Predicate {
	typ = strings.ToLower(typ)
	return func(el Element) bool { return el != nil && el.TypeID().Type == typ }
}

// Pattern matches elements by "type.subType" or "type.subType[name]" where any part
// may be "*". A bare "*" matches everything.
type Pattern struct {
	Type    string
	SubType string
	Name    string
}

// ParsePattern parses a pattern string.
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == registry.Wildcard {
		return Pattern{Type: registry.Wildcard, SubType: registry.Wildcard, Name: registry.Wildcard}, nil
	}

	typePart, name := s, registry.Wildcard
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Pattern{}, fmt.Errorf("invalid pattern %q: unterminated name", s)
		}
		typePart, name = s[:i], s[i+1:len(s)-1]
		if name == "" {
			name = registry.Wildcard
		}
	}

	typ, subType, ok := strings.Cut(typePart, ".")
	if !ok || typ == "" || subType == "" || strings.Contains(subType, ".") {
		return Pattern{}, fmt.Errorf("invalid pattern %q: expected type.subType[name]", s)
	}
	return Pattern{Type: strings.ToLower(typ), SubType: strings.ToLower(subType), Name: name}, nil
}

// MustParsePattern is like ParsePattern but panics on malformed input.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Matches reports whether el matches the pattern.
func (p Pattern) Matches(el Element) bool {
	if el == nil {
		return false
	}
	id := el.TypeID()
	return matchPart(p.Type, id.Type) && matchPart(p.SubType, id.SubType) && matchPart(p.Name, el.Name())
}

// Predicate returns p.Matches as a Predicate.
func (p Pattern) Predicate() Predicate { return p.Matches }

// String implements fmt.Stringer
func (p Pattern) String() string {
	if p.Name == registry.Wildcard {
		return p.Type + "." + p.SubType
	}
	return fmt.Sprintf("%s.%s[%s]", p.Type, p.SubType, p.Name)
}

func matchPart(pattern, value string) bool {
	return pattern == registry.Wildcard || pattern == value
}

// FuncPlacement is a Placement built from two predicates.
type FuncPlacement struct {
	id, description string
	parent, child   Predicate
}

// NewPlacement creates a placement from a parent predicate and a child predicate.
func NewPlacement(id, description string, parent, child Predicate) *FuncPlacement {
	return &FuncPlacement{id: id, description: description, parent: parent, child: child}
}

func (p *FuncPlacement) ID() string                          { return p.id }
func (p *FuncPlacement) Description() string                 { return p.description }
func (p *FuncPlacement) AppliesToParent(parent Element) bool { return p.parent(parent) }
func (p *FuncPlacement) AllowsChild(child Element) bool      { return p.child(child) }

// PatternPlacement applies to parents matching Parent. If Allowed is true it allows
// children matching Child; otherwise it allows every child except those.
type PatternPlacement struct {
	id, description string
	Parent          Pattern
	Child           Pattern
	Allowed         bool
}

// NewPatternPlacement parses parent and child patterns into a placement.
func NewPatternPlacement(id, description, parent, child string, allowed bool) (*PatternPlacement, error) {
	pp, err := ParsePattern(parent)
	if err != nil {
		return nil, fmt.Errorf("placement %s: %w", id, err)
	}
	cp, err := ParsePattern(child)
	if err != nil {
		return nil, fmt.Errorf("placement %s: %w", id, err)
	}
	return &PatternPlacement{id: id, description: description, Parent: pp, Child: cp, Allowed: allowed}, nil
}

func (p *PatternPlacement) ID() string                          { return p.id }
func (p *PatternPlacement) Description() string                 { return p.description }
func (p *PatternPlacement) AppliesToParent(parent Element) bool { return p.Parent.Matches(parent) }

// AllowsChild implements Placement.
func (p *PatternPlacement) AllowsChild(child Element) bool {
	return p.Child.Matches(child) == p.Allowed
}

// String implements fmt.Stringer
func (p *PatternPlacement) String() string {
	verb := "allows"
	if !p.Allowed {
		verb = "forbids"
	}
	return fmt.Sprintf("%s: %s %s %s", p.id, p.Parent, verb, p.Child)
}

// FuncValidation is a Validation built from an applicability predicate and a function.
type FuncValidation struct {
	id, description string
	applies         Predicate
	validate        func(el Element, value any) error
}

// NewValidation creates a validation from a predicate and a check function.
func NewValidation(id, description string, applies Predicate, validate func(el Element, value any) error) *FuncValidation {
	return &FuncValidation{id: id, description: description, applies: applies, validate: validate}
}

func (v *FuncValidation) ID() string                           { return v.id }
func (v *FuncValidation) Description() string                  { return v.description }
func (v *FuncValidation) AppliesTo(el Element) bool            { return v.applies(el) }
func (v *FuncValidation) Validate(el Element, value any) error { return v.validate(el, value) }

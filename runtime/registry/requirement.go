package registry

import (
	"fmt"
	"strings"
)

// TypeAttr is the type under which attribute children are registered.
const TypeAttr = "attr"

// ChildRequirement describes an acceptable child of a type. Each pattern is either a
// literal or Wildcard.
type ChildRequirement struct {
	Name            string `json:"name" yaml:"name"`
	ExpectedType    string `json:"expectedType" yaml:"expectedType"`
	ExpectedSubType string `json:"expectedSubType" yaml:"expectedSubType"`
	Required        bool   `json:"required" yaml:"required"`
}

// NewChildRequirement creates a requirement. Empty patterns become Wildcard and the
// type patterns are lowercased; the name pattern keeps its case.
func NewChildRequirement(name, expectedType, expectedSubType string, required bool) ChildRequirement {
	return ChildRequirement{
		Name:            normalizePattern(name, false),
		ExpectedType:    normalizePattern(expectedType, true),
		ExpectedSubType: normalizePattern(expectedSubType, true),
		Required:        required,
	}
}

// Optional creates an optional requirement.
func Optional(name, expectedType, expectedSubType string) ChildRequirement {
	return NewChildRequirement(name, expectedType, expectedSubType, false)
}

// Required creates a required requirement.
func Required(name, expectedType, expectedSubType string) ChildRequirement {
	return NewChildRequirement(name, expectedType, expectedSubType, true)
}

// OptionalAttribute creates an optional "attr" requirement with the given name and subtype.
func OptionalAttribute(name, subType string) ChildRequirement {
	return Optional(name, TypeAttr, subType)
}

// RequiredAttribute creates a required "attr" requirement with the given name and subtype.
func RequiredAttribute(name, subType string) ChildRequirement {
	return Required(name, TypeAttr, subType)
}

func normalizePattern(p string, lower bool) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return Wildcard
	}
	if lower {
		return strings.ToLower(p)
	}
	return p
}

// Matches reports whether every non-wildcard pattern equals the corresponding argument.
func (r ChildRequirement) Matches(childType, childSubType, childName string) bool {
	return matchPattern(r.ExpectedType, childType) &&
		matchPattern(r.ExpectedSubType, childSubType) &&
		matchPattern(r.Name, childName)
}

// MatchesType reports whether the type and subtype patterns accept id, ignoring the name.
func (r ChildRequirement) MatchesType(id TypeID) bool {
	return matchPattern(r.ExpectedType, id.Type) && matchPattern(r.ExpectedSubType, id.SubType)
}

func matchPattern(pattern, value string) bool {
	return pattern == Wildcard || pattern == value
}

// IsWildcardName reports whether the name pattern is Wildcard.
func (r ChildRequirement) IsWildcardName() bool {
	return r.Name == Wildcard
}

// IsWildcard reports whether any pattern is Wildcard.
func (r ChildRequirement) IsWildcard() bool {
	return r.Name == Wildcard || r.ExpectedType == Wildcard || r.ExpectedSubType == Wildcard
}

// Key is the map key under which a definition stores the requirement. Literal names
// key by name; wildcard names key by their expected type so a definition can accept
// several wildcard families.
func (r ChildRequirement) Key() string {
	if r.IsWildcardName() {
		return Wildcard + ":" + r.ExpectedType + ":" + r.ExpectedSubType
	}
	return r.Name
}

// specificity counts literal patterns; higher wins among wildcard-name candidates.
func (r ChildRequirement) specificity() int {
	n := 0
	for _, p := range []string{r.Name, r.ExpectedType, r.ExpectedSubType} {
		if p != Wildcard {
			n++
		}
	}
	return n
}

// Label renders the requirement as "name (expectedType.expectedSubType)".
func (r ChildRequirement) Label() string {
	return fmt.Sprintf("%s (%s.%s)", r.Name, r.ExpectedType, r.ExpectedSubType)
}

// Description returns a human readable sentence such as
// "required attribute 'pattern' of type string".
func (r ChildRequirement) Description() string {
	var b strings.Builder
	if r.Required {
		b.WriteString("required")
	} else {
		b.WriteString("optional")
	}
	switch r.ExpectedType {
	case TypeAttr:
		b.WriteString(" attribute")
	case "field":
		b.WriteString(" field")
	default:
		b.WriteString(" child")
	}
	if r.Name != Wildcard {
		fmt.Fprintf(&b, " '%s'", r.Name)
	}
	if r.ExpectedSubType != Wildcard {
		fmt.Fprintf(&b, " of type %s", r.ExpectedSubType)
	}
	return b.String()
}

// String implements fmt.Stringer
func (r ChildRequirement) String() string {
	qualifier := "optional"
	if r.Required {
		qualifier = "required"
	}
	return fmt.Sprintf("%s child[name=%s, type=%s.%s]", qualifier, r.Name, r.ExpectedType, r.ExpectedSubType)
}

// patternsOverlap reports whether two patterns can both match some value.
func patternsOverlap(a, b string) bool {
	return a == Wildcard || b == Wildcard || a == b
}

// overlaps reports whether some child could match both requirements.
func (r ChildRequirement) overlaps(o ChildRequirement) bool {
	return patternsOverlap(r.Name, o.Name) &&
		patternsOverlap(r.ExpectedType, o.ExpectedType) &&
		patternsOverlap(r.ExpectedSubType, o.ExpectedSubType)
}

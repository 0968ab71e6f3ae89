package core

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
)

// MaxNameLength is the longest name the core constraints accept.
const MaxNameLength = 64

// Attributes that drive code generation. skipJpa may be placed on objects and fields;
// collection and isSearchable only on fields.
var (
	codegenAttrs   = []string{"skipJpa", "collection", "isSearchable"}
	fieldOnlyAttrs = []string{"collection", "isSearchable"}
)

func namedAttr(names ...string) constraint.Predicate {
	return func(el constraint.Element) bool {
		return el != nil && el.TypeID().Type == TypeAttr && slices.Contains(names, el.Name())
	}
}

func notFamily(families ...string) constraint.Predicate {
	return func(el constraint.Element) bool {
		return el != nil && !slices.Contains(families, el.TypeID().Type)
	}
}

func not(p constraint.Predicate) constraint.Predicate {
	return func(el constraint.Element) bool { return !p(el) }
}

// RegisterConstraints registers the core placement and validation constraints.
func (p *coreProvider) RegisterConstraints(e *constraint.Engine) error {
	// The two placements apply to disjoint parents, so neither can open what the other
	// closes.
	placements := []constraint.Placement{
		constraint.NewPlacement("core.codegen.object.placement",
			"collection and isSearchable attributes can only be placed on fields",
			constraint.IsFamily(TypeObject),
			not(namedAttr(fieldOnlyAttrs...))),
		constraint.NewPlacement("core.codegen.placement",
			"code generation attributes can only be placed on objects and fields",
			notFamily(TypeObject, TypeField),
			not(namedAttr(codegenAttrs...))),
	}
	for _, pl := range placements {
		if err := e.AddPlacement(pl); err != nil {
			return err
		}
	}

	for _, name := range codegenAttrs {
		enum, err := constraint.NewEnumConstraint("core.codegen."+name+".validation",
			name+" must be a boolean value (true/false)",
			namedAttr(name), []string{"true", "false"}, false)
		if err != nil {
			return err
		}
		if err := e.AddValidation(enum); err != nil {
			return err
		}
	}

	xmlName, err := constraint.NewRegexConstraint("core.xmlName.validation",
		"xmlName must be a valid XML element name",
		namedAttr("xmlName"), `^[A-Za-z_][A-Za-z0-9_.-]*$`, true)
	if err != nil {
		return err
	}
	if err := e.AddValidation(xmlName); err != nil {
		return err
	}

	return e.AddValidation(constraint.NewValidation("core.name.length",
		fmt.Sprintf("names are at most %d characters", MaxNameLength),
		constraint.Any,
		func(el constraint.Element, _ any) error {
			if n := utf8.RuneCountInString(el.Name()); n > MaxNameLength {
				return fmt.Errorf("name of %s is too long: %d characters (maximum: %d)", el.TypeID(), n, MaxNameLength)
			}
			return nil
		}))
}

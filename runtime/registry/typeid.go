package registry

import (
	"fmt"
	"strings"
)

// Wildcard matches any value in a ChildRequirement pattern.
const Wildcard = "*"

// SubTypeBase is the conventional subtype every type family is expected to provide.
const SubTypeBase = "base"

// TypeID identifies a registrable kind by its (type, subType) pair.
// It is a comparable value and can be used as a map key.
type TypeID struct {
	Type    string `json:"type" yaml:"type"`
	SubType string `json:"subType" yaml:"subType"`
}

// NewTypeID creates a TypeID. Both parts are lowercased.
func NewTypeID(typ, subType string) TypeID {
	return TypeID{
		Type:    strings.ToLower(strings.TrimSpace(typ)),
		SubType: strings.ToLower(strings.TrimSpace(subType)),
	}
}

// ParseTypeID parses a qualified name of the form "type.subType".
func ParseTypeID(qualified string) (TypeID, error) {
	typ, subType, ok := strings.Cut(qualified, ".")
	if !ok || typ == "" || subType == "" {
		return TypeID{}, fmt.Errorf("invalid qualified type name %q: expected type.subType", qualified)
	}
	return NewTypeID(typ, subType), nil
}

// MustParseTypeID is like ParseTypeID but panics on malformed input.
func MustParseTypeID(qualified string) TypeID {
	id, err := ParseTypeID(qualified)
	if err != nil {
		panic(err)
	}
	return id
}

// QualifiedName returns "type.subType".
func (id TypeID) QualifiedName() string {
	return id.Type + "." + id.SubType
}

// String implements fmt.Stringer
func (id TypeID) String() string {
	return id.QualifiedName()
}

// IsZero reports whether id is the zero TypeID.
func (id TypeID) IsZero() bool {
	return id.Type == "" && id.SubType == ""
}

// IsBase reports whether id is the base subtype of its family.
func (id TypeID) IsBase() bool {
	return id.SubType == SubTypeBase
}

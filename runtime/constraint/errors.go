package constraint

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Constraint errors, matched with errors.Is against a *Violation.
var (
	ErrChildNotAccepted = errors.New("child not accepted")
	ErrPlacementDenied  = errors.New("placement denied")
	ErrValidationFailed = errors.New("validation failed")
	ErrDuplicateChild   = errors.New("duplicate child name")
	ErrInvalidName      = errors.New("invalid name")
	ErrUnknownType      = errors.New("unknown type")
	ErrDuplicateID      = errors.New("constraint id already registered")
)

// Kind identifies the rule a Violation broke.
type Kind int

const (
	KindChildNotAccepted Kind = iota + 1
	KindPlacementDenied
	KindValidationFailed
	KindDuplicateChild
	KindInvalidName
	KindUnknownType
)

var kindNames = map[Kind]string{
	KindChildNotAccepted: "ChildNotAccepted",
	KindPlacementDenied:  "PlacementDenied",
	KindValidationFailed: "ValidationFailed",
	KindDuplicateChild:   "DuplicateChild",
	KindInvalidName:      "InvalidName",
	KindUnknownType:      "UnknownType",
}

var kindErrors = map[Kind]error{
	KindChildNotAccepted: ErrChildNotAccepted,
	KindPlacementDenied:  ErrPlacementDenied,
	KindValidationFailed: ErrValidationFailed,
	KindDuplicateChild:   ErrDuplicateChild,
	KindInvalidName:      ErrInvalidName,
	KindUnknownType:      ErrUnknownType,
}

// String implements fmt.Stringer
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Violation is returned when adding a child breaks a rule. The mutation it describes was
// not applied.
type Violation struct {
	Kind      Kind
	Parent    registry.TypeID
	Child     registry.TypeID
	ChildName string

	// ConstraintID names the failing constraint for placement and validation failures.
	ConstraintID string
	Message      string

	// Supported lists the parent's effective requirements for ChildNotAccepted.
	Supported string

	Err error
}

// Error implements the error interface
func (v *Violation) Error() string {
	switch v.Kind {
	case KindChildNotAccepted:
		return fmt.Sprintf("%s does not accept child '%s' of type %s. Supported children: %s",
			v.Parent, v.ChildName, v.Child, v.Supported)
	case KindPlacementDenied:
		return fmt.Sprintf("placement of %s '%s' under %s denied by [%s]: %s",
			v.Child, v.ChildName, v.Parent, v.ConstraintID, v.Message)
	case KindValidationFailed:
		return fmt.Sprintf("constraint '%s' failed for %s '%s': %s",
			v.ConstraintID, v.Child, v.ChildName, v.Message)
	case KindDuplicateChild:
		return fmt.Sprintf("%s already has a child named '%s'", v.Parent, v.ChildName)
	case KindInvalidName:
		return fmt.Sprintf("invalid name '%s': %s", v.ChildName, v.Message)
	case KindUnknownType:
		return fmt.Sprintf("type %s is not registered", v.Child)
	}
	return v.Message
}

// Is maps the violation kind to its sentinel error.
func (v *Violation) Is(target error) bool {
	return kindErrors[v.Kind] == target
}

// Unwrap returns the error reported by a validation constraint, if any.
func (v *Violation) Unwrap() error {
	return v.Err
}

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAttached is returned when adding a node that already has a parent or
	// that is an ancestor of the new parent.
	ErrAlreadyAttached = errors.New("node already attached")

	// ErrMissingChild is matched by every *MissingChildError.
	ErrMissingChild = errors.New("missing required child")
)

// NotFoundError reports a failed RequireChild lookup.
type NotFoundError struct {
	Parent string
	Name   string
	Types  []registry.TypeID
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if len(e.Types) == 0 {
		return fmt.Sprintf("child '%s' not found in %s", e.Name, e.Parent)
	}
	types := make([]string, len(e.Types))
	for i, id := range e.Types {
		types[i] = id.QualifiedName()
	}
	return fmt.Sprintf("child '%s' of type %s not found in %s", e.Name, strings.Join(types, " or "), e.Parent)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MissingChildError reports a required child requirement with no matching child.
type MissingChildError struct {
	Path        string
	Type        registry.TypeID
	Requirement registry.ChildRequirement
}

// Error implements the error interface
func (e *MissingChildError) Error() string {
	return fmt.Sprintf("%s (%s) is missing %s", e.Path, e.Type, e.Requirement.Description())
}

// Is matches ErrMissingChild.
func (e *MissingChildError) Is(target error) bool {
	return target == ErrMissingChild
}

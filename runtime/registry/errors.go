package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Registry errors
var (
	ErrTypeNotRegistered = errors.New("type not registered")
	ErrDuplicateType     = errors.New("type already registered with a different definition")
	ErrCycleDetected     = errors.New("inheritance cycle detected")
	ErrUnresolvedParent  = errors.New("parent type not registered")
	ErrInvalidDefinition = errors.New("invalid type definition")
	ErrRegistryUnhealthy = errors.New("registry is not structurally sound")
	ErrProviderCycle     = errors.New("provider dependency cycle")
)

// CycleError reports a parent chain that revisits a type before reaching a root.
// Chain starts and ends with the revisited type.
type CycleError struct {
	Type  TypeID
	Chain []TypeID
}

// Error implements the error interface
func (e *CycleError) Error() string {
	return fmt.Sprintf("inheritance cycle detected for %s: %s", e.Type, formatChain(e.Chain))
}

// Is matches ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// UnresolvedParentError reports a parent that is still missing.
type UnresolvedParentError struct {
	Type   TypeID
	Parent TypeID
}

// Error implements the error interface
func (e *UnresolvedParentError) Error() string {
	return fmt.Sprintf("type %s cannot find parent %s", e.Type, e.Parent)
}

// Is matches ErrUnresolvedParent.
func (e *UnresolvedParentError) Is(target error) bool {
	return target == ErrUnresolvedParent
}

func formatChain(chain []TypeID) string {
	names := make([]string, len(chain))
	for i, id := range chain {
		names[i] = id.QualifiedName()
	}
	return strings.Join(names, " -> ")
}

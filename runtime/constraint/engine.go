package constraint

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Engine enforces child requirements, placement constraints and validation constraints
// whenever a node gains a child.
type Engine struct {
	registry *registry.Registry

	mu          sync.RWMutex
	placements  []Placement
	validations []Validation
	ids         map[string]bool

	enabled       bool
	disabledTypes map[string]bool

	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine enforcing against reg.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:      reg,
		ids:           make(map[string]bool),
		enabled:       true,
		disabledTypes: make(map[string]bool),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine enforces against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// AddPlacement registers a placement constraint. Constraint ids are unique across both
// kinds.
func (e *Engine) AddPlacement(p Placement) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.claimIDLocked(p); err != nil {
		return err
	}
	e.placements = append(e.placements, p)
	e.logger.Debug("registered placement constraint", zap.String("id", p.ID()))
	return nil
}

// AddValidation registers a validation constraint.
func (e *Engine) AddValidation(v Validation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.claimIDLocked(v); err != nil {
		return err
	}
	e.validations = append(e.validations, v)
	e.logger.Debug("registered validation constraint", zap.String("id", v.ID()))
	return nil
}

func (e *Engine) claimIDLocked(c Constraint) error {
	if c == nil {
		return fmt.Errorf("constraint is nil")
	}
	if c.ID() == "" {
		return fmt.Errorf("constraint id is required")
	}
	if e.ids[c.ID()] {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID())
	}
	e.ids[c.ID()] = true
	return nil
}

// Placements returns the registered placement constraints in registration order.
func (e *Engine) Placements() []Placement {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Placement, len(e.placements))
	copy(result, e.placements)
	return result
}

// Validations returns the registered validation constraints in registration order.
func (e *Engine) Validations() []Validation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Validation, len(e.validations))
	copy(result, e.validations)
	return result
}

// SetEnabled turns constraint checking on or off. When off, only structural checks
// (registered types) run.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = enabled
	e.logger.Info("constraint enforcement toggled", zap.Bool("enabled", enabled))
}

// SetTypeEnabled turns constraint checking on or off for parents of the given type.
func (e *Engine) SetTypeEnabled(typ string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	typ = strings.ToLower(typ)
	if enabled {
		delete(e.disabledTypes, typ)
	} else {
		e.disabledTypes[typ] = true
	}
	e.logger.Info("constraint enforcement toggled for type",
		zap.String("type", typ), zap.Bool("enabled", enabled))
}

// IsEnabledFor reports whether constraints are checked for parents of type typ.
func (e *Engine) IsEnabledFor(typ string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.enabled && !e.disabledTypes[strings.ToLower(typ)]
}

// EnforceAddChild checks whether child may be added to parent. Checks run in order and
// stop at the first failure:
//
//  1. the parent's effective child requirements must accept the child
//  2. if any placement applies to the parent, at least one must allow the child
//  3. every validation that applies to the child must pass
//
// Both types must be registered. Steps 1 to 3 are skipped while enforcement is disabled
// for the parent's type.
func (e *Engine) EnforceAddChild(parent, child Element) error {
	parentID, childID := parent.TypeID(), child.TypeID()

	for _, id := range []registry.TypeID{parentID, childID} {
		if !e.registry.IsRegistered(id) {
			return &Violation{Kind: KindUnknownType, Parent: parentID, Child: id, ChildName: child.Name()}
		}
	}

	if !e.IsEnabledFor(parentID.Type) {
		return nil
	}

	if err := e.checkRequirements(parent, child); err != nil {
		return err
	}
	if err := e.checkPlacements(parent, child); err != nil {
		return err
	}
	return e.checkValidations(parent, child)
}

func (e *Engine) checkRequirements(parent, child Element) error {
	if _, ok := e.registry.FindRequirement(parent.TypeID(), child.TypeID(), child.Name()); ok {
		return nil
	}
	v := &Violation{
		Kind:      KindChildNotAccepted,
		Parent:    parent.TypeID(),
		Child:     child.TypeID(),
		ChildName: child.Name(),
		Supported: e.registry.SupportedChildrenDescription(parent.TypeID()),
	}
	e.logger.Debug("child not accepted",
		zap.Stringer("parent", v.Parent),
		zap.Stringer("child", v.Child),
		zap.String("name", v.ChildName))
	return v
}

func (e *Engine) checkPlacements(parent, child Element) error {
	var applicable []Placement
	for _, p := range e.Placements() {
		if !p.AppliesToParent(parent) {
			continue
		}
		if p.AllowsChild(child) {
			return nil
		}
		applicable = append(applicable, p)
	}
	if len(applicable) == 0 {
		return nil
	}

	ids := make([]string, len(applicable))
	descriptions := make([]string, len(applicable))
	for i, p := range applicable {
		ids[i] = p.ID()
		descriptions[i] = p.Description()
	}
	return &Violation{
		Kind:         KindPlacementDenied,
		Parent:       parent.TypeID(),
		Child:        child.TypeID(),
		ChildName:    child.Name(),
		ConstraintID: strings.Join(ids, ", "),
		Message:      strings.Join(descriptions, "; "),
	}
}

func (e *Engine) checkValidations(parent, child Element) error {
	for _, v := range e.Validations() {
		if !v.AppliesTo(child) {
			continue
		}
		if err := v.Validate(child, child.Value()); err != nil {
			return &Violation{
				Kind:         KindValidationFailed,
				Parent:       parent.TypeID(),
				Child:        child.TypeID(),
				ChildName:    child.Name(),
				ConstraintID: v.ID(),
				Message:      err.Error(),
				Err:          err,
			}
		}
	}
	return nil
}

// ValidateElement runs every applicable validation against el and its value. Loaders use
// it to re-check a node whose value changed after it was attached.
func (e *Engine) ValidateElement(el Element) error {
	if !e.IsEnabledFor(el.TypeID().Type) {
		return nil
	}
	for _, v := range e.Validations() {
		if !v.AppliesTo(el) {
			continue
		}
		if err := v.Validate(el, el.Value()); err != nil {
			return &Violation{
				Kind:         KindValidationFailed,
				Child:        el.TypeID(),
				ChildName:    el.Name(),
				ConstraintID: v.ID(),
				Message:      err.Error(),
				Err:          err,
			}
		}
	}
	return nil
}

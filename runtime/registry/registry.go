package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Conflict records a registration that replaced a different definition of the same type.
type Conflict struct {
	ID       string          `json:"id"`
	Type     TypeID          `json:"type"`
	Previous *TypeDefinition `json:"-"`
	Current  *TypeDefinition `json:"-"`
	At       time.Time       `json:"at"`
}

// String implements fmt.Stringer
func (c Conflict) String() string {
	return fmt.Sprintf("duplicate registration of %s replaced %q with %q",
		c.Type, c.Previous.Description(), c.Current.Description())
}

// Registry stores type definitions and resolves their inheritance.
type Registry struct {
	mu   sync.RWMutex
	defs map[TypeID]*TypeDefinition

	// child type -> parent that was missing when the child was registered
	deferred map[TypeID]TypeID

	conflicts []Conflict

	// effective requirements per qualified name
	cache    *gocache.Cache
	cacheTTL time.Duration

	strict        bool
	requiredTypes []TypeID
	logger        *zap.Logger
	tracer        trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for deferred resolution and health scans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithStrictDuplicates rejects re-registration of a type with a different definition
// instead of overwriting it.
func WithStrictDuplicates(strict bool) Option {
	return func(r *Registry) {
		r.strict = strict
	}
}

// WithCacheTTL expires cached effective requirements after ttl. Zero keeps them until
// they are invalidated by a registration.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithRequiredTypes makes the health validator report an error for each listed type
// that is not registered.
func WithRequiredTypes(ids ...TypeID) Option {
	return func(r *Registry) {
		r.requiredTypes = append(r.requiredTypes, ids...)
	}
}

// New creates an empty registry. Each call returns an isolated instance.
func New(opts ...Option) *Registry {
	r := &Registry{
		defs:     make(map[TypeID]*TypeDefinition),
		deferred: make(map[TypeID]TypeID),
		cacheTTL: gocache.NoExpiration,
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	// No janitor: expired entries are skipped on lookup and replaced on the next resolve.
	r.cache = gocache.New(r.cacheTTL, 0)
	return r
}

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// RegisterType inserts or overwrites the definition for id. A zero parent means the
// type has no parent. A parent that is not registered yet is linked later by
// ResolveDeferredInheritance.
func (r *Registry) RegisterType(id TypeID, description string, parent TypeID, reqs ...ChildRequirement) error {
	return r.RegisterDefinition(NewTypeDefinition(id, description, parent, reqs...))
}

// RegisterDefinition inserts or overwrites def.
func (r *Registry) RegisterDefinition(def *TypeDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: definition is nil", ErrInvalidDefinition)
	}
	if err := validateID(def.id); err != nil {
		return err
	}
	if def.HasParent() {
		if err := validateID(def.parent); err != nil {
			return fmt.Errorf("parent of %s: %w", def.id, err)
		}
	}
	for _, key := range def.replacedKeys {
		r.logger.Warn("child requirement overwritten within definition",
			zap.String("type", def.id.QualifiedName()),
			zap.String("key", key))
	}
	def.replacedKeys = nil

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.defs[def.id]; ok && !existing.sameShape(def) {
		if r.strict {
			return fmt.Errorf("%w: %s", ErrDuplicateType, def.id)
		}
		conflict := Conflict{
			ID:       uuid.NewString(),
			Type:     def.id,
			Previous: existing,
			Current:  def,
			At:       time.Now(),
		}
		r.conflicts = append(r.conflicts, conflict)
		r.logger.Warn("duplicate type registration, overwriting",
			zap.String("type", def.id.QualifiedName()),
			zap.String("previous", existing.description),
			zap.String("current", def.description))
	}

	r.defs[def.id] = def
	r.trackParentLocked(def)
	r.invalidateLocked(def.id)

	r.logger.Debug("registered type",
		zap.String("type", def.id.QualifiedName()),
		zap.Stringer("parent", def.parent),
		zap.Int("requirements", len(def.requirements)))
	return nil
}

// trackParentLocked records whether def's parent link must be deferred.
func (r *Registry) trackParentLocked(def *TypeDefinition) {
	if !def.HasParent() {
		delete(r.deferred, def.id)
		return
	}
	if _, ok := r.defs[def.parent]; ok {
		delete(r.deferred, def.id)
		return
	}
	r.deferred[def.id] = def.parent
	r.logger.Debug("deferring inheritance, parent not yet registered",
		zap.String("type", def.id.QualifiedName()),
		zap.String("parent", def.parent.QualifiedName()))
}

// ExtendType adds requirements to an already registered type. extend runs without the
// registry lock held, so it may query the registry. If the type is re-registered while
// extend runs, the extension is applied again to the new definition.
func (r *Registry) ExtendType(id TypeID, extend func(b *DefinitionBuilder)) error {
	for {
		existing, ok := r.TypeDefinition(id)
		if !ok {
			return fmt.Errorf("cannot extend %s: %w", id, ErrTypeNotRegistered)
		}
		b := &DefinitionBuilder{def: existing.clone()}
		extend(b)
		def := b.Build()
		def.id = id
		for _, key := range def.replacedKeys {
			r.logger.Warn("child requirement overwritten by extension",
				zap.String("type", id.QualifiedName()),
				zap.String("key", key))
		}
		def.replacedKeys = nil

		r.mu.Lock()
		if r.defs[id] != existing {
			r.mu.Unlock()
			continue
		}
		r.defs[id] = def
		r.trackParentLocked(def)
		r.invalidateLocked(id)
		r.mu.Unlock()

		r.logger.Debug("extended type", zap.String("type", id.QualifiedName()))
		return nil
	}
}

func validateID(id TypeID) error {
	if id.Type == "" || id.SubType == "" {
		return fmt.Errorf("%w: type and subType are required, got %q", ErrInvalidDefinition, id.QualifiedName())
	}
	if id.Type == Wildcard || id.SubType == Wildcard {
		return fmt.Errorf("%w: %s is a pattern, not a type", ErrInvalidDefinition, id)
	}
	return nil
}

// TypeDefinition returns the definition registered for id.
func (r *Registry) TypeDefinition(id TypeID) (*TypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	return def, ok
}

// RequireType is TypeDefinition for callers that treat absence as a failure. The error
// wraps ErrTypeNotRegistered.
func (r *Registry) RequireType(id TypeID) (*TypeDefinition, error) {
	def, ok := r.TypeDefinition(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTypeNotRegistered)
	}
	return def, nil
}

// IsRegistered reports whether id has a definition.
func (r *Registry) IsRegistered(id TypeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.defs[id]
	return ok
}

// HasFamily reports whether any subtype of typ is registered.
func (r *Registry) HasFamily(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.defs {
		if id.Type == typ {
			return true
		}
	}
	return false
}

// AllTypes returns every registered TypeID sorted by qualified name.
func (r *Registry) AllTypes() []TypeID {
	r.mu.RLock()
	ids := make([]TypeID, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sortTypeIDs(ids)
	return ids
}

// Definitions returns every registered definition sorted by qualified name.
func (r *Registry) Definitions() []*TypeDefinition {
	ids := r.AllTypes()
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*TypeDefinition, 0, len(ids))
	for _, id := range ids {
		if def, ok := r.defs[id]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Conflicts returns a copy of the recorded duplicate registrations.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Conflict, len(r.conflicts))
	copy(result, r.conflicts)
	return result
}

// PendingLinks returns the types whose parent link is still deferred, keyed by child.
func (r *Registry) PendingLinks() map[TypeID]TypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[TypeID]TypeID, len(r.deferred))
	for k, v := range r.deferred {
		result[k] = v
	}
	return result
}

// RegistryStats summarises the registry contents.
type RegistryStats struct {
	TotalTypes      int            `json:"totalTypes"`
	TypesByFamily   map[string]int `json:"typesByFamily"`
	TypesWithParent int            `json:"typesWithParent"`
	PendingLinks    int            `json:"pendingLinks"`
	Conflicts       int            `json:"conflicts"`
}

// Stats returns statistics about the registry
func (r *Registry) Stats() *RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &RegistryStats{
		TotalTypes:    len(r.defs),
		TypesByFamily: make(map[string]int),
		PendingLinks:  len(r.deferred),
		Conflicts:     len(r.conflicts),
	}
	for id, def := range r.defs {
		stats.TypesByFamily[id.Type]++
		if def.HasParent() {
			stats.TypesWithParent++
		}
	}
	return stats
}

func sortTypeIDs(ids []TypeID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].QualifiedName() < ids[j].QualifiedName()
	})
}

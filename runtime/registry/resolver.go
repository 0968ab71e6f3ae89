package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// resolvedRequirement is an effective requirement and the inheritance depth that
// declared it (0 for the type itself).
type resolvedRequirement struct {
	ChildRequirement
	depth int
}

// resolution is the cached result of walking a type's parent chain.
type resolution struct {
	requirements []resolvedRequirement
	// every type visited, including a missing parent, used for invalidation
	chain   []TypeID
	missing TypeID
	cycle   *CycleError
}

func (res *resolution) plain() []ChildRequirement {
	out := make([]ChildRequirement, len(res.requirements))
	for i, rr := range res.requirements {
		out[i] = rr.ChildRequirement
	}
	return out
}

// walkLocked follows parent links from id. It returns the definitions from id towards
// the root, the visited chain, the first missing parent (zero if none) and a cycle if
// one was found. Callers hold r.mu.
func (r *Registry) walkLocked(id TypeID) (levels []*TypeDefinition, chain []TypeID, missing TypeID, cycle *CycleError) {
	def, ok := r.defs[id]
	if !ok {
		return nil, nil, TypeID{}, nil
	}
	seen := map[TypeID]int{id: 0}
	levels = []*TypeDefinition{def}
	chain = []TypeID{id}
	for cur := def; cur.HasParent(); {
		parent := cur.parent
		chain = append(chain, parent)
		if at, dup := seen[parent]; dup {
			cycle = &CycleError{Type: id, Chain: slices.Clone(chain[at:])}
			return levels, chain, TypeID{}, cycle
		}
		next, ok := r.defs[parent]
		if !ok {
			return levels, chain, parent, nil
		}
		seen[parent] = len(chain) - 1
		levels = append(levels, next)
		cur = next
	}
	return levels, chain, TypeID{}, nil
}

// resolveLocked computes or loads the resolution for id. Callers hold r.mu (read or
// write); storing under the read lock is safe because invalidation needs the write lock.
func (r *Registry) resolveLocked(id TypeID) (*resolution, error) {
	if cached, ok := r.cache.Get(id.QualifiedName()); ok {
		if res, ok := cached.(*resolution); ok {
			return res, nil
		}
	}

	levels, chain, missing, cycle := r.walkLocked(id)
	if len(levels) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrTypeNotRegistered)
	}

	res := &resolution{chain: chain, missing: missing, cycle: cycle}
	if cycle != nil {
		r.logger.Warn("inheritance cycle, using direct requirements only",
			zap.String("type", id.QualifiedName()),
			zap.String("chain", formatChain(cycle.Chain)))
		levels = levels[:1]
	}

	// Merge from the root down so ancestors keep their position and more derived
	// types replace them by key.
	index := make(map[string]int)
	for depth := len(levels) - 1; depth >= 0; depth-- {
		for _, req := range levels[depth].requirements {
			rr := resolvedRequirement{ChildRequirement: req, depth: depth}
			key := req.Key()
			if i, ok := index[key]; ok {
				res.requirements[i] = rr
				continue
			}
			index[key] = len(res.requirements)
			res.requirements = append(res.requirements, rr)
		}
	}

	r.cache.Set(id.QualifiedName(), res, gocache.DefaultExpiration)
	return res, nil
}

// invalidateLocked drops cached resolutions whose chain contains id. Callers hold the
// write lock.
func (r *Registry) invalidateLocked(id TypeID) {
	for key, item := range r.cache.Items() {
		res, ok := item.Object.(*resolution)
		if !ok || slices.Contains(res.chain, id) {
			r.cache.Delete(key)
		}
	}
}

// EffectiveChildRequirements returns the direct and inherited requirements of id,
// ancestors first, with more derived declarations replacing ancestors by key.
//
// For an unknown type it returns ErrTypeNotRegistered. When the parent chain contains a
// cycle it returns the direct requirements together with a *CycleError.
func (r *Registry) EffectiveChildRequirements(id TypeID) ([]ChildRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, err := r.resolveLocked(id)
	if err != nil {
		return nil, err
	}
	if res.cycle != nil {
		return res.plain(), res.cycle
	}
	return res.plain(), nil
}

// InheritanceChain returns id followed by its ancestors, as far as they are
// registered. The second value is a cycle error if the chain loops.
func (r *Registry) InheritanceChain(id TypeID) ([]TypeID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	levels, _, missing, cycle := r.walkLocked(id)
	if len(levels) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrTypeNotRegistered)
	}
	ids := make([]TypeID, len(levels))
	for i, def := range levels {
		ids[i] = def.id
	}
	if cycle != nil {
		return ids, cycle
	}
	if !missing.IsZero() {
		return ids, &UnresolvedParentError{Type: ids[len(ids)-1], Parent: missing}
	}
	return ids, nil
}

// FindRequirement returns the effective requirement of parent that governs a child of
// type child named name.
//
// A requirement with a literal name equal to name always decides: the child is accepted
// only if that requirement's type patterns match. Wildcard-name requirements are
// consulted only when no literal name matches; among them the most derived wins, then
// the most specific, then declaration order.
func (r *Registry) FindRequirement(parent, child TypeID, name string) (ChildRequirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, err := r.resolveLocked(parent)
	if err != nil {
		return ChildRequirement{}, false
	}
	return selectRequirement(res.requirements, child, name)
}

func selectRequirement(reqs []resolvedRequirement, child TypeID, name string) (ChildRequirement, bool) {
	for _, rr := range reqs {
		if !rr.IsWildcardName() && rr.Name == name {
			return rr.ChildRequirement, rr.MatchesType(child)
		}
	}

	best := -1
	for i, rr := range reqs {
		if !rr.IsWildcardName() || !rr.MatchesType(child) {
			continue
		}
		if best < 0 || betterWildcard(rr, reqs[best]) {
			best = i
		}
	}
	if best < 0 {
		return ChildRequirement{}, false
	}
	return reqs[best].ChildRequirement, true
}

func betterWildcard(a, b resolvedRequirement) bool {
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	return a.specificity() > b.specificity()
}

// AcceptsChild reports whether parent accepts a child of type child named name.
func (r *Registry) AcceptsChild(parent, child TypeID, name string) bool {
	_, ok := r.FindRequirement(parent, child, name)
	return ok
}

// SupportedChildrenDescription lists every effective requirement of parent as
// "name (expectedType.expectedSubType)", separated by ", ".
func (r *Registry) SupportedChildrenDescription(parent TypeID) string {
	reqs, _ := r.EffectiveChildRequirements(parent)
	if len(reqs) == 0 {
		return "no children supported"
	}
	labels := make([]string, len(reqs))
	for i, req := range reqs {
		labels[i] = req.Label()
	}
	return strings.Join(labels, ", ")
}

// ResolveDeferredInheritance links every deferred type whose parent is now registered
// and returns how many were linked. Calling it again with nothing new to link returns 0.
func (r *Registry) ResolveDeferredInheritance() int {
	return r.ResolveDeferredInheritanceContext(context.Background())
}

// ResolveDeferredInheritanceContext is ResolveDeferredInheritance with a parent context
// for tracing.
func (r *Registry) ResolveDeferredInheritanceContext(ctx context.Context) int {
	_, span := r.tracer.Start(ctx, "registry.ResolveDeferredInheritance")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	resolved := 0
	for child, parent := range r.deferred {
		if _, ok := r.defs[parent]; !ok {
			r.logger.Warn("parent type still not registered",
				zap.String("type", child.QualifiedName()),
				zap.String("parent", parent.QualifiedName()))
			continue
		}
		delete(r.deferred, child)
		r.invalidateLocked(child)
		resolved++
		r.logger.Debug("resolved deferred inheritance",
			zap.String("type", child.QualifiedName()),
			zap.String("parent", parent.QualifiedName()))
	}

	if resolved > 0 {
		r.logger.Info("resolved deferred inheritance",
			zap.Int("resolved", resolved),
			zap.Int("stillDeferred", len(r.deferred)))
	}
	span.SetAttributes(
		attribute.Int("registry.resolved", resolved),
		attribute.Int("registry.still_deferred", len(r.deferred)))
	return resolved
}

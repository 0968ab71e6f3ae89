package bootstrap

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// plan is the provider execution order. Providers in one level do not depend on each
// other and may run concurrently.
type plan struct {
	levels [][]registry.Provider
}

func (p *plan) ids() [][]string {
	out := make([][]string, len(p.levels))
	for i, level := range p.levels {
		for _, provider := range level {
			out[i] = append(out[i], provider.ProviderID())
		}
	}
	return out
}

func (p *plan) flat() []registry.Provider {
	var out []registry.Provider
	for _, level := range p.levels {
		out = append(out, level...)
	}
	return out
}

// order groups providers into dependency levels. Duplicate ids keep the first provider
// and dependencies on unknown providers are ignored; both are logged. A dependency cycle
// is an error.
func order(providers []registry.Provider, logger *zap.Logger) (*plan, error) {
	byID := make(map[string]registry.Provider, len(providers))
	var ids []string
	for i, p := range providers {
		if p == nil {
			continue
		}
		id := p.ProviderID()
		if id == "" {
			id = fmt.Sprintf("anonymous-%d", i)
			p = rename(p, id)
		}
		if _, dup := byID[id]; dup {
			logger.Warn("duplicate provider id, keeping the first", zap.String("provider", id))
			continue
		}
		byID[id] = p
		ids = append(ids, id)
	}

	// provider -> known dependencies
	deps := make(map[string][]string, len(ids))
	dependents := make(map[string][]string)
	for _, id := range ids {
		for _, dep := range byID[id].DependsOn() {
			if _, ok := byID[dep]; !ok {
				logger.Warn("provider depends on unknown provider, ignoring",
					zap.String("provider", id), zap.String("dependency", dep))
				continue
			}
			deps[id] = append(deps[id], dep)
			dependents[dep] = append(dependents[dep], id)
		}
	}

	remaining := make(map[string]int, len(ids))
	var current []string
	for _, id := range ids {
		remaining[id] = len(deps[id])
		if remaining[id] == 0 {
			current = append(current, id)
		}
	}

	result := &plan{}
	placed := 0
	for len(current) > 0 {
		sort.Strings(current)
		level := make([]registry.Provider, len(current))
		var next []string
		for i, id := range current {
			level[i] = byID[id]
			for _, dependent := range dependents[id] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		result.levels = append(result.levels, level)
		placed += len(current)
		current = next
	}

	if placed != len(ids) {
		var stuck []string
		for _, id := range ids {
			if remaining[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", registry.ErrProviderCycle, strings.Join(stuck, ", "))
	}
	return result, nil
}

// rename gives p a generated id. A provider that also registers constraints keeps
// that capability.
func rename(p registry.Provider, id string) registry.Provider {
	r := &renamed{Provider: p, id: id}
	if cp, ok := p.(ConstraintProvider); ok {
		return &renamedConstraints{renamed: r, constraints: cp}
	}
	return r
}

type renamed struct {
	registry.Provider
	id string
}

func (r *renamed) ProviderID() string { return r.id }

type renamedConstraints struct {
	*renamed
	constraints ConstraintProvider
}

func (r *renamedConstraints) RegisterConstraints(e *constraint.Engine) error {
	return r.constraints.RegisterConstraints(e)
}

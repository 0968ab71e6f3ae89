package registry

// Provider is a unit that contributes type definitions during the registration phase.
// Providers may run in any order and concurrently; a provider that needs another
// provider's types to exist first lists that provider's ID in DependsOn. Parent links to
// types registered later are still resolved by ResolveDeferredInheritance.
type Provider interface {
	ProviderID() string
	DependsOn() []string
	RegisterTypes(r *Registry) error
}

// Discovery supplies the providers available to the process. How they are found
// (static linking, plugins) is up to the implementation.
type Discovery interface {
	Providers() ([]Provider, error)
}

// StaticDiscovery is a Discovery over a fixed provider list.
type StaticDiscovery []Provider

// Providers implements Discovery.
func (d StaticDiscovery) Providers() ([]Provider, error) {
	out := make([]Provider, len(d))
	copy(out, d)
	return out, nil
}

type funcProvider struct {
	id       string
	deps     []string
	register func(*Registry) error
}

func (p *funcProvider) ProviderID() string             { return p.id }
func (p *funcProvider) DependsOn() []string            { return p.deps }
func (p *funcProvider) RegisterTypes(r *Registry) error { return p.register(r) }

// NewProvider adapts a function to the Provider interface.
func NewProvider(id string, dependsOn []string, register func(*Registry) error) Provider {
	return &funcProvider{id: id, deps: dependsOn, register: register}
}

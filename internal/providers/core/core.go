// Package core provides the built-in metadata types and constraints: the metadata,
// loader, object, field, attribute, validator, key and view families.
package core

import (
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Provider ids.
const (
	CoreTypesID      = "core-types"
	AttributeTypesID = "attribute-types"
	FieldTypesID     = "field-types"
	ValidatorTypesID = "validator-types"
	KeyTypesID       = "key-types"
	ViewTypesID      = "view-types"
	ObjectTypesID    = "object-types"
)

// Type families.
const (
	TypeMetadata  = "metadata"
	TypeLoader    = "loader"
	TypeObject    = "object"
	TypeField     = "field"
	TypeAttr      = registry.TypeAttr
	TypeValidator = "validator"
	TypeKey       = "key"
	TypeView      = "view"
)

// Descriptor is the object the core factories attach to loaded nodes.
type Descriptor struct {
	Type registry.TypeID
	Name string
}

func describe(id registry.TypeID, name string) (any, error) {
	return &Descriptor{Type: id, Name: name}, nil
}

// provider registers one family of core types.
type provider struct {
	id       string
	deps     []string
	register func(r *registry.Registry) error
}

func (p *provider) ProviderID() string                      { return p.id }
func (p *provider) DependsOn() []string                     { return p.deps }
func (p *provider) RegisterTypes(r *registry.Registry) error { return p.register(r) }

// coreProvider registers metadata.base and the loaders, and the core constraints.
type coreProvider struct {
	provider
}

// Providers returns the core providers. The first one also registers the core
// constraints.
func Providers() []registry.Provider {
	return []registry.Provider{
		&coreProvider{provider{id: CoreTypesID, register: registerCoreTypes}},
		&provider{id: AttributeTypesID, deps: []string{CoreTypesID}, register: registerAttributeTypes},
		&provider{id: FieldTypesID, deps: []string{CoreTypesID, AttributeTypesID}, register: registerFieldTypes},
		&provider{id: ValidatorTypesID, deps: []string{CoreTypesID}, register: registerValidatorTypes},
		&provider{id: KeyTypesID, deps: []string{CoreTypesID}, register: registerKeyTypes},
		&provider{id: ViewTypesID, deps: []string{CoreTypesID}, register: registerViewTypes},
		&provider{id: ObjectTypesID, deps: []string{CoreTypesID, FieldTypesID}, register: registerObjectTypes},
	}
}

// Discovery returns a discovery over the core providers followed by extra.
func Discovery(extra ...registry.Provider) registry.Discovery {
	return registry.StaticDiscovery(append(Providers(), extra...))
}

// BaseTypes returns the base type of every core family. A registry built from the core
// providers is expected to contain all of them.
func BaseTypes() []registry.TypeID {
	families := []string{TypeMetadata, TypeLoader, TypeObject, TypeField, TypeAttr, TypeValidator, TypeKey, TypeView}
	ids := make([]registry.TypeID, len(families))
	for i, f := range families {
		ids[i] = registry.NewTypeID(f, registry.SubTypeBase)
	}
	return ids
}

func registerAll(r *registry.Registry, defs ...*registry.DefinitionBuilder) error {
	for _, b := range defs {
		if err := r.RegisterDefinition(b.Build()); err != nil {
			return err
		}
	}
	return nil
}

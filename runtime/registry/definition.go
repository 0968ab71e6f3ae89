package registry

import (
	"slices"
)

// Factory builds a domain object for a node of the given type. The registry stores it
// but never calls it; object loaders do.
type Factory func(id TypeID, name string) (any, error)

// TypeDefinition is the registered description of a TypeID. Definitions are immutable
// once registered; ExtendType and re-registration publish a new value.
type TypeDefinition struct {
	id           TypeID
	description  string
	parent       TypeID
	requirements []ChildRequirement
	index        map[string]int
	factory      Factory

	// keys overwritten while the definition was assembled
	replacedKeys []string
}

// NewTypeDefinition creates a definition. A zero parent means the type has no parent.
// Requirements sharing a key replace earlier ones in place.
func NewTypeDefinition(id TypeID, description string, parent TypeID, reqs ...ChildRequirement) *TypeDefinition {
	def := &TypeDefinition{
		id:          id,
		description: description,
		parent:      parent,
		index:       make(map[string]int, len(reqs)),
	}
	for _, req := range reqs {
		def.put(req)
	}
	return def
}

func (d *TypeDefinition) put(req ChildRequirement) {
	key := req.Key()
	if i, ok := d.index[key]; ok {
		d.requirements[i] = req
		d.replacedKeys = append(d.replacedKeys, key)
		return
	}
	d.index[key] = len(d.requirements)
	d.requirements = append(d.requirements, req)
}

// clone returns a deep copy whose requirement slice can be extended independently.
func (d *TypeDefinition) clone() *TypeDefinition {
	c := &TypeDefinition{
		id:           d.id,
		description:  d.description,
		parent:       d.parent,
		requirements: slices.Clone(d.requirements),
		index:        make(map[string]int, len(d.index)),
		factory:      d.factory,
	}
	for k, v := range d.index {
		c.index[k] = v
	}
	return c
}

// ID returns the type identity.
func (d *TypeDefinition) ID() TypeID { return d.id }

// Description returns the human readable description.
func (d *TypeDefinition) Description() string { return d.description }

// Parent returns the parent type and whether one is declared.
func (d *TypeDefinition) Parent() (TypeID, bool) {
	return d.parent, !d.parent.IsZero()
}

// HasParent reports whether a parent type is declared.
func (d *TypeDefinition) HasParent() bool { return !d.parent.IsZero() }

// DirectRequirements returns the requirements declared by this type, in declaration order.
func (d *TypeDefinition) DirectRequirements() []ChildRequirement {
	return slices.Clone(d.requirements)
}

// Requirement returns the direct requirement stored under key.
func (d *TypeDefinition) Requirement(key string) (ChildRequirement, bool) {
	i, ok := d.index[key]
	if !ok {
		return ChildRequirement{}, false
	}
	return d.requirements[i], true
}

// Factory returns the factory bound to the type, or nil.
func (d *TypeDefinition) Factory() Factory { return d.factory }

// sameShape reports whether two definitions declare the same description, parent and
// requirements. Factories are not comparable and are ignored.
func (d *TypeDefinition) sameShape(o *TypeDefinition) bool {
	return d.id == o.id &&
		d.description == o.description &&
		d.parent == o.parent &&
		slices.Equal(d.requirements, o.requirements)
}

// DefinitionBuilder assembles a TypeDefinition fluently.
type DefinitionBuilder struct {
	def *TypeDefinition
}

// Define starts a definition for type.subType.
func Define(typ, subType string) *DefinitionBuilder {
	return &DefinitionBuilder{def: NewTypeDefinition(NewTypeID(typ, subType), "", TypeID{})}
}

// Description sets the description.
func (b *DefinitionBuilder) Description(desc string) *DefinitionBuilder {
	b.def.description = desc
	return b
}

// InheritsFrom sets the parent type.
func (b *DefinitionBuilder) InheritsFrom(typ, subType string) *DefinitionBuilder {
	b.def.parent = NewTypeID(typ, subType)
	return b
}

// Requirement adds a requirement.
func (b *DefinitionBuilder) Requirement(req ChildRequirement) *DefinitionBuilder {
	b.def.put(req)
	return b
}

// Optional adds an optional named child.
func (b *DefinitionBuilder) Optional(name, typ, subType string) *DefinitionBuilder {
	return b.Requirement(Optional(name, typ, subType))
}

// Required adds a required named child.
func (b *DefinitionBuilder) Required(name, typ, subType string) *DefinitionBuilder {
	return b.Requirement(Required(name, typ, subType))
}

// OptionalAttribute adds an optional attribute.
func (b *DefinitionBuilder) OptionalAttribute(name, subType string) *DefinitionBuilder {
	return b.Requirement(OptionalAttribute(name, subType))
}

// RequiredAttribute adds a required attribute.
func (b *DefinitionBuilder) RequiredAttribute(name, subType string) *DefinitionBuilder {
	return b.Requirement(RequiredAttribute(name, subType))
}

// AcceptsChildren accepts any number of children of type.subType under any name.
func (b *DefinitionBuilder) AcceptsChildren(typ, subType string) *DefinitionBuilder {
	return b.Requirement(Optional(Wildcard, typ, subType))
}

// Factory binds a factory to the type.
func (b *DefinitionBuilder) Factory(f Factory) *DefinitionBuilder {
	b.def.factory = f
	return b
}

// Build returns the definition. The builder must not be reused afterwards.
func (b *DefinitionBuilder) Build() *TypeDefinition {
	return b.def
}

package core

import (
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

const base = registry.SubTypeBase

func registerCoreTypes(r *registry.Registry) error {
	return registerAll(r,
		registry.Define(TypeMetadata, base).
			Description("Root of every metadata type").
			AcceptsChildren(TypeAttr, registry.Wildcard),
		registry.Define(TypeLoader, base).
			Description("Loader holding the top level metadata of a model").
			InheritsFrom(TypeMetadata, base).
			AcceptsChildren(TypeObject, registry.Wildcard).
			AcceptsChildren(TypeField, registry.Wildcard).
			AcceptsChildren(TypeValidator, registry.Wildcard).
			AcceptsChildren(TypeView, registry.Wildcard).
			AcceptsChildren(TypeKey, registry.Wildcard).
			Factory(describe),
		registry.Define(TypeLoader, "simple").
			Description("In-memory loader").
			InheritsFrom(TypeLoader, base).
			Factory(describe),
	)
}

func registerAttributeTypes(r *registry.Registry) error {
	defs := []*registry.DefinitionBuilder{
		registry.Define(TypeAttr, base).
			Description("Base attribute metadata").
			InheritsFrom(TypeMetadata, base),
	}
	for _, a := range []struct{ subType, desc string }{
		{"string", "String attribute"},
		{"int", "Integer attribute"},
		{"long", "Long attribute"},
		{"double", "Double attribute"},
		{"boolean", "Boolean attribute"},
		{"class", "Class reference attribute"},
		{"properties", "Key-value properties attribute"},
		{"stringarray", "String array attribute"},
	} {
		defs = append(defs, registry.Define(TypeAttr, a.subType).
			Description(a.desc).
			InheritsFrom(TypeAttr, base))
	}
	return registerAll(r, defs...)
}

func registerFieldTypes(r *registry.Registry) error {
	field := func(subType, desc string) *registry.DefinitionBuilder {
		return registry.Define(TypeField, subType).
			Description(desc).
			InheritsFrom(TypeField, base).
			Factory(describe)
	}
	ranged := func(b *registry.DefinitionBuilder) *registry.DefinitionBuilder {
		return b.OptionalAttribute("minValue", "int").OptionalAttribute("maxValue", "int")
	}
	precise := func(b *registry.DefinitionBuilder) *registry.DefinitionBuilder {
		return ranged(b).OptionalAttribute("precision", "int")
	}

	return registerAll(r,
		registry.Define(TypeField, base).
			Description("Base field metadata with common field attributes").
			InheritsFrom(TypeMetadata, base).
			OptionalAttribute("required", "boolean").
			OptionalAttribute("defaultValue", "string").
			OptionalAttribute("defaultView", "string").
			OptionalAttribute("isOptional", "boolean").
			OptionalAttribute("isReadOnly", "boolean").
			AcceptsChildren(TypeValidator, registry.Wildcard).
			AcceptsChildren(TypeView, registry.Wildcard),
		field("string", "String field with length and pattern validation").
			OptionalAttribute("pattern", "string").
			OptionalAttribute("maxLength", "int").
			OptionalAttribute("minLength", "int"),
		ranged(field("int", "Integer field with range validation")),
		ranged(field("long", "Long field with range validation")),
		ranged(field("short", "Short field with range validation")),
		ranged(field("byte", "Byte field with range validation")),
		precise(field("double", "Double field with range and precision validation")),
		precise(field("float", "Float field with range and precision validation")),
		field("boolean", "Boolean field"),
		field("date", "Date field with format support").
			OptionalAttribute("format", "string").
			OptionalAttribute("dateFormat", "string"),
		field("class", "Class reference field"),
		field("object", "Reference to another object").
			OptionalAttribute("objectRef", "string"),
		field("objectarray", "Collection of object references").
			OptionalAttribute("objectRef", "string"),
		field("stringarray", "Collection of strings"),
	)
}

func registerValidatorTypes(r *registry.Registry) error {
	validator := func(subType, desc string) *registry.DefinitionBuilder {
		return registry.Define(TypeValidator, subType).
			Description(desc).
			InheritsFrom(TypeValidator, base)
	}
	return registerAll(r,
		registry.Define(TypeValidator, base).
			Description("Base validator metadata").
			InheritsFrom(TypeMetadata, base).
			OptionalAttribute("msg", "string"),
		validator("required", "Requires a value"),
		validator("length", "Bounds the length of a value").
			OptionalAttribute("min", "int").
			OptionalAttribute("max", "int"),
		validator("regex", "Matches a value against a pattern").
			RequiredAttribute("mask", "string"),
		validator("numeric", "Requires a numeric value"),
		validator("array", "Bounds the size of an array value").
			OptionalAttribute("minSize", "int").
			OptionalAttribute("maxSize", "int"),
	)
}

func registerKeyTypes(r *registry.Registry) error {
	key := func(subType, desc string) *registry.DefinitionBuilder {
		return registry.Define(TypeKey, subType).
			Description(desc).
			InheritsFrom(TypeKey, base)
	}
	return registerAll(r,
		registry.Define(TypeKey, base).
			Description("Base key metadata").
			InheritsFrom(TypeMetadata, base).
			RequiredAttribute("keys", "stringarray"),
		key("primary", "Primary key"),
		key("secondary", "Secondary key"),
		key("foreign", "Foreign key referencing another object").
			RequiredAttribute("foreignObjectRef", "string").
			OptionalAttribute("foreignKey", "string"),
	)
}

func registerViewTypes(r *registry.Registry) error {
	return registerAll(r,
		registry.Define(TypeView, base).
			Description("Base view metadata").
			InheritsFrom(TypeMetadata, base),
	)
}

func registerObjectTypes(r *registry.Registry) error {
	object := func(subType, desc string) *registry.DefinitionBuilder {
		return registry.Define(TypeObject, subType).
			Description(desc).
			InheritsFrom(TypeObject, base).
			Factory(describe)
	}
	return registerAll(r,
		registry.Define(TypeObject, base).
			Description("Base object metadata with common object attributes").
			InheritsFrom(TypeMetadata, base).
			OptionalAttribute("extends", "string").
			OptionalAttribute("implements", "string").
			OptionalAttribute("isInterface", "boolean").
			OptionalAttribute("description", "string").
			OptionalAttribute("objectRef", "string").
			AcceptsChildren(TypeField, registry.Wildcard).
			AcceptsChildren(TypeObject, registry.Wildcard).
			AcceptsChildren(TypeKey, registry.Wildcard).
			AcceptsChildren(TypeValidator, registry.Wildcard).
			AcceptsChildren(TypeView, registry.Wildcard),
		object("map", "Map backed object"),
		object("pojo", "Struct backed object").
			OptionalAttribute("className", "string").
			OptionalAttribute("packageName", "string"),
		object("proxy", "Proxy backed object").
			OptionalAttribute("object", "string").
			OptionalAttribute("proxyObject", "string").
			OptionalAttribute("interfaceName", "string"),
	)
}

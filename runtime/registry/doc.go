// Package registry provides the metadata type registry: a process-wide catalogue of
// named type definitions and the inheritance rules that decide which children each
// type may contain.
//
// # Overview
//
// Every registrable kind is identified by a TypeID, a (type, subType) pair with the
// qualified name "type.subType" (for example "field.string" or "object.pojo").
// A TypeDefinition describes one TypeID: a description, an optional parent TypeID,
// the ChildRequirements it declares directly, and an optional factory used by
// object loaders.
//
// # Core Types
//
//   - TypeID: immutable (type, subType) value
//   - ChildRequirement: name/type/subType pattern with "*" wildcards and a required flag
//   - TypeDefinition: one registered type
//   - Registry: the definition store, inheritance resolver and health validator
//   - Provider: a unit that registers types during start-up
//   - HealthReport: the result of ValidateConsistency
//
// # Start-up protocol
//
// Registration happens in an unordered phase: providers may run concurrently and a
// child type may be registered before its parent. RegisterType never fails because a
// parent is missing; the link is deferred instead. Once all providers have run,
// callers must invoke ResolveDeferredInheritance exactly as a barrier before any
// metadata tree is built:
//
//	reg := registry.New(registry.WithLogger(logger))
//	for _, p := range providers {
//		if err := p.RegisterTypes(reg); err != nil {
//			return err
//		}
//	}
//	reg.ResolveDeferredInheritance()
//
// The internal/bootstrap package implements this protocol, including dependency
// ordering between providers.
//
// # Inheritance
//
// EffectiveChildRequirements walks the parent chain from a type to its root and merges
// requirements; a requirement declared closer to the type replaces an ancestor's
// requirement with the same key. Results are cached and invalidated whenever the type
// or any of its ancestors is registered again.
//
// A parent chain that loops back on itself is reported as a CycleError and the type
// degrades to its direct requirements only.
//
// # Example Usage
//
//	reg := registry.New()
//	_ = reg.RegisterDefinition(registry.Define("field", "base").
//		Description("Base field").
//		OptionalAttribute("required", "boolean").
//		Build())
//	_ = reg.RegisterDefinition(registry.Define("field", "string").
//		InheritsFrom("field", "base").
//		OptionalAttribute("pattern", "string").
//		Build())
//	reg.ResolveDeferredInheritance()
//
//	reg.AcceptsChild(registry.NewTypeID("field", "string"), registry.NewTypeID("attr", "boolean"), "required") // true
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Registrations of distinct TypeIDs
// do not interfere; concurrent registrations of the same TypeID resolve as
// last-writer-wins and the overwrite is recorded as a Conflict.
package registry

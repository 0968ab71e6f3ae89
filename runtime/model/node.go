package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Node is a typed, named element of a metadata tree. A node owns its children; the
// parent link is a back-reference used for paths and upward lookups.
//
// Mutation is single-writer: AddChild and SetValue must not race with each other or with
// reads of the same node. Once loading is finished the tree is read-only and safe for
// concurrent readers.
type Node struct {
	id     registry.TypeID
	name   string
	value  any
	object any

	parent   *Node
	children []*Node
	index    map[string]int

	engine *constraint.Engine
}

// TypeID returns the node type.
func (n *Node) TypeID() registry.TypeID { return n.id }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Value returns the node value, or nil.
func (n *Node) Value() any { return n.value }

// Object returns the domain object built by the type's factory, or nil.
func (n *Node) Object() any { return n.object }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Path returns the slash separated names from the root to n.
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil; cur = cur.parent {
		names = append(names, cur.name)
	}
	slices.Reverse(names)
	return strings.Join(names, "/")
}

// String implements fmt.Stringer
func (n *Node) String() string {
	return fmt.Sprintf("%s[%s]", n.id, n.Path())
}

// SetValue replaces the node value after checking it against the applicable validation
// constraints. On failure the previous value is kept.
func (n *Node) SetValue(v any) error {
	old := n.value
	n.value = v
	if n.engine == nil {
		return nil
	}
	if err := n.engine.ValidateElement(n); err != nil {
		n.value = old
		return err
	}
	return nil
}

// AddChild attaches child after the registry and constraint engine accept it. On error
// the tree is unchanged.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return errors.New("cannot add nil child")
	}
	if child.parent != nil {
		return fmt.Errorf("%w: %s is a child of %s", ErrAlreadyAttached, child.name, child.parent.Path())
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur == child {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrAlreadyAttached, child.name, n.Path())
		}
	}
	if err := constraint.CheckName(child.name); err != nil {
		return err
	}
	if _, dup := n.index[child.name]; dup {
		return &constraint.Violation{
			Kind:      constraint.KindDuplicateChild,
			Parent:    n.id,
			Child:     child.id,
			ChildName: child.name,
		}
	}
	if n.engine != nil {
		if err := n.engine.EnforceAddChild(n, child); err != nil {
			return err
		}
	}

	if n.index == nil {
		n.index = make(map[string]int)
	}
	n.index[child.name] = len(n.children)
	n.children = append(n.children, child)
	child.parent = n
	return nil
}

// FindChild returns the child called name. If types are given the child must match one
// of them; a type with SubType "*" matches the whole family.
func (n *Node) FindChild(name string, types ...registry.TypeID) (*Node, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	child := n.children[i]
	if len(types) > 0 && !matchesAny(child.id, types) {
		return nil, false
	}
	return child, true
}

// RequireChild is FindChild that returns a *NotFoundError when the child is absent.
func (n *Node) RequireChild(name string, types ...registry.TypeID) (*Node, error) {
	if child, ok := n.FindChild(name, types...); ok {
		return child, nil
	}
	return nil, &NotFoundError{Parent: n.Path(), Name: name, Types: types}
}

// ChildrenOf returns the children matching any of types, in insertion order.
func (n *Node) ChildrenOf(types ...registry.TypeID) []*Node {
	var out []*Node
	for _, child := range n.children {
		if matchesAny(child.id, types) {
			out = append(out, child)
		}
	}
	return out
}

// FindInherited looks for name on n and then on each ancestor.
func (n *Node) FindInherited(name string, types ...registry.TypeID) (*Node, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if child, ok := cur.FindChild(name, types...); ok {
			return child, true
		}
	}
	return nil, false
}

func matchesAny(id registry.TypeID, types []registry.TypeID) bool {
	for _, t := range types {
		if t.Type == id.Type && (t.SubType == registry.Wildcard || t.SubType == id.SubType) {
			return true
		}
	}
	return false
}

// Walk calls fn for n and every descendant, depth first in insertion order. It stops at
// the first error.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports every required child requirement in the subtree that has no matching
// child. Errors are joined; nil means the subtree is complete.
func (n *Node) Validate() error {
	if n.engine == nil {
		return nil
	}
	reg := n.engine.Registry()

	var errs []error
	_ = n.Walk(func(node *Node) error {
		// a cycle still yields the direct requirements
		reqs, _ := reg.EffectiveChildRequirements(node.id)
		for _, req := range reqs {
			if req.Required && !node.satisfies(req) {
				errs = append(errs, &MissingChildError{Path: node.Path(), Type: node.id, Requirement: req})
			}
		}
		return nil
	})
	return errors.Join(errs...)
}

func (n *Node) satisfies(req registry.ChildRequirement) bool {
	if !req.IsWildcardName() {
		child, ok := n.FindChild(req.Name)
		return ok && req.MatchesType(child.id)
	}
	for _, child := range n.children {
		if req.MatchesType(child.id) {
			return true
		}
	}
	return false
}

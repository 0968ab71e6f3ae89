package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Loader creates nodes bound to a constraint engine. Run the registry's deferred
// inheritance barrier before loading.
type Loader struct {
	engine *constraint.Engine
	logger *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader that validates nodes with engine.
func NewLoader(engine *constraint.Engine, opts ...LoaderOption) *Loader {
	l := &Loader{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Engine returns the constraint engine.
func (l *Loader) Engine() *constraint.Engine { return l.engine }

// NodeOption configures a node created by a Loader.
type NodeOption func(*Node)

// WithValue sets the initial node value.
func WithValue(v any) NodeOption {
	return func(n *Node) { n.value = v }
}

// NewNode creates a detached node. The name must be valid and the type registered. If
// the type has a factory its result becomes the node's Object.
func (l *Loader) NewNode(id registry.TypeID, name string, opts ...NodeOption) (*Node, error) {
	if err := constraint.CheckName(name); err != nil {
		return nil, err
	}
	def, ok := l.engine.Registry().TypeDefinition(id)
	if !ok {
		return nil, &constraint.Violation{Kind: constraint.KindUnknownType, Child: id, ChildName: name}
	}

	n := &Node{id: id, name: name, engine: l.engine}
	for _, opt := range opts {
		opt(n)
	}

	if factory := def.Factory(); factory != nil {
		obj, err := factory(id, name)
		if err != nil {
			return nil, fmt.Errorf("creating %s '%s': %w", id, name, err)
		}
		n.object = obj
	}

	l.logger.Debug("created node", zap.Stringer("type", id), zap.String("name", name))
	return n, nil
}

// Add creates a node and attaches it to parent in one step.
func (l *Loader) Add(parent *Node, id registry.TypeID, name string, opts ...NodeOption) (*Node, error) {
	child, err := l.NewNode(id, name, opts...)
	if err != nil {
		return nil, err
	}
	if err := parent.AddChild(child); err != nil {
		return nil, err
	}
	return child, nil
}

// Package bootstrap runs the registration phase: providers register their types,
// the deferred inheritance barrier links late parents, and constraint providers
// register their rules.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// ConstraintProvider registers placement and validation constraints. A type provider
// may implement it as well.
type ConstraintProvider interface {
	ProviderID() string
	RegisterConstraints(e *constraint.Engine) error
}

// Result describes a completed bootstrap.
type Result struct {
	// Levels lists provider ids in the order their levels ran.
	Levels [][]string
	// Failed maps provider ids to the error that made them skip.
	Failed map[string]error
	// Resolved is the number of parent links made by the deferred inheritance barrier.
	Resolved    int
	Constraints int
	Duration    time.Duration
}

// Bootstrapper wires providers into a registry and constraint engine.
type Bootstrapper struct {
	registry  *registry.Registry
	engine    *constraint.Engine
	discovery registry.Discovery
	extra     []ConstraintProvider
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bootstrapper) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bootstrapper) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// WithConstraintProviders adds constraint providers that are not type providers.
func WithConstraintProviders(providers ...ConstraintProvider) Option {
	return func(b *Bootstrapper) {
		b.extra = append(b.extra, providers...)
	}
}

// New creates a Bootstrapper. engine may be nil when only types are needed.
func New(reg *registry.Registry, engine *constraint.Engine, discovery registry.Discovery, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		registry:  reg,
		engine:    engine,
		discovery: discovery,
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer("bootstrap"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes every provider in dependency order, then the deferred inheritance
// barrier, then the constraint providers. A failing provider is logged, recorded in the
// result and skipped. Discovery failures and provider dependency cycles abort the run.
func (b *Bootstrapper) Run(ctx context.Context) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "bootstrap.Run")
	defer span.End()
	start := time.Now()

	providers, err := b.discovery.Providers()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("discovering providers: %w", err)
	}

	p, err := order(providers, b.logger)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &Result{Levels: p.ids(), Failed: make(map[string]error)}
	var mu sync.Mutex
	for _, level := range p.levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var wg sync.WaitGroup
		for _, provider := range level {
			wg.Add(1)
			go func(provider registry.Provider) {
				defer wg.Done()
				if err := b.runProvider(ctx, provider); err != nil {
					mu.Lock()
					result.Failed[provider.ProviderID()] = err
					mu.Unlock()
				}
			}(provider)
		}
		wg.Wait()
	}

	result.Resolved = b.registry.ResolveDeferredInheritanceContext(ctx)

	if b.engine != nil {
		result.Constraints = b.registerConstraints(p.flat(), result)
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("bootstrap.providers", len(p.flat())),
		attribute.Int("bootstrap.failed", len(result.Failed)),
		attribute.Int("bootstrap.resolved", result.Resolved))

	b.logger.Info("registry bootstrap complete",
		zap.Int("providers", len(p.flat())),
		zap.Int("failed", len(result.Failed)),
		zap.Int("types", b.registry.Count()),
		zap.Int("resolved", result.Resolved),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (b *Bootstrapper) runProvider(ctx context.Context, provider registry.Provider) (err error) {
	_, span := b.tracer.Start(ctx, "bootstrap.Provider",
		trace.WithAttributes(attribute.String("provider.id", provider.ProviderID())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", provider.ProviderID(), r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.logger.Error("provider failed, skipping",
				zap.String("provider", provider.ProviderID()), zap.Error(err))
		}
	}()

	b.logger.Debug("running provider", zap.String("provider", provider.ProviderID()))
	if err := provider.RegisterTypes(b.registry); err != nil {
		return fmt.Errorf("provider %s: %w", provider.ProviderID(), err)
	}
	return nil
}

func (b *Bootstrapper) registerConstraints(providers []registry.Provider, result *Result) int {
	var cps []ConstraintProvider
	for _, p := range providers {
		if _, failed := result.Failed[p.ProviderID()]; failed {
			continue
		}
		if cp, ok := p.(ConstraintProvider); ok {
			cps = append(cps, cp)
		}
	}
	cps = append(cps, b.extra...)

	before := len(b.engine.Placements()) + len(b.engine.Validations())
	for _, cp := range cps {
		if err := cp.RegisterConstraints(b.engine); err != nil {
			result.Failed[cp.ProviderID()] = err
			b.logger.Error("constraint provider failed",
				zap.String("provider", cp.ProviderID()), zap.Error(err))
		}
	}
	return len(b.engine.Placements()) + len(b.engine.Validations()) - before
}

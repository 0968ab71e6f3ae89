package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/internal/bootstrap"
	"github.com/conduit-lang/metaregistry/internal/cli/config"
	"github.com/conduit-lang/metaregistry/internal/cli/ui"
	"github.com/conduit-lang/metaregistry/internal/logging"
	"github.com/conduit-lang/metaregistry/internal/providers/core"
	"github.com/conduit-lang/metaregistry/internal/tracing"
	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// env is a bootstrapped registry and everything built around it.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	tracing  *tracing.Provider
	registry *registry.Registry
	engine   *constraint.Engine
	result   *bootstrap.Result
}

// setup loads the configuration and bootstraps the core providers. A configuration
// error is reported on stderr and returned as exit code 2.
func (o *globalOptions) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, o.configFile, o.noColor))
		return nil, &ExitError{Code: 2}
	}

	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logging.New(logging.Config{Level: level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled: cfg.Tracing.Enabled || o.trace,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	required, err := cfg.RequiredTypeIDs()
	if err != nil {
		return nil, err
	}
	reg := registry.New(
		registry.WithLogger(logger.Named("registry")),
		registry.WithTracer(tp.Tracer()),
		registry.WithStrictDuplicates(cfg.Registry.StrictDuplicates),
		registry.WithCacheTTL(cfg.Registry.CacheTTL),
		registry.WithRequiredTypes(required...))

	engine := constraint.NewEngine(reg, constraint.WithLogger(logger.Named("constraint")))
	engine.SetEnabled(cfg.Constraints.Enabled)
	for _, typ := range cfg.Constraints.DisabledTypes {
		engine.SetTypeEnabled(typ, false)
	}

	result, err := bootstrap.New(reg, engine, core.Discovery(),
		bootstrap.WithLogger(logger.Named("bootstrap")),
		bootstrap.WithTracer(tp.Tracer())).Run(cmd.Context())
	if err != nil {
		tp.Shutdown(context.Background())
		return nil, fmt.Errorf("bootstrapping registry: %w", err)
	}
	for id, err := range result.Failed {
		fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("provider %s skipped: %v", id, err), o.noColor))
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		tracing:  tp,
		registry: reg,
		engine:   engine,
		result:   result,
	}, nil
}

// close flushes spans and logs.
func (e *env) close() {
	if err := e.tracing.Shutdown(context.Background()); err != nil {
		e.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	_ = e.logger.Sync()
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/internal/cli/config"
	"github.com/conduit-lang/metaregistry/internal/diagnostics"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

func newHealthCommand(opts *globalOptions) *cobra.Command {
	var (
		format  string
		verbose bool
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the consistency of the type registry",
		Long: `Check the consistency of the type registry.

Bootstraps the built-in type providers, then reports unresolved parents,
inheritance cycles, missing required types and base types, duplicate
registrations and ambiguous requirements.

Exits with status 0 when the registry is structurally sound (warnings allowed)
and 1 otherwise.`,
		Example: `  # Human readable report
  metareg health

  # Machine readable report with inheritance chains
  metareg health --format json

  # Store the report in the sinks enabled in metareg.yaml
  metareg health --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := diagnostics.ParseFormat(format)
			if err != nil {
				return err
			}

			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			report := e.registry.ValidateConsistencyContext(cmd.Context())
			if err := diagnostics.Render(cmd.OutOrStdout(), report, f,
				diagnostics.RenderOptions{NoColor: opts.noColor, Verbose: verbose}); err != nil {
				return err
			}
			if f == diagnostics.FormatText {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %d\n", "constraints", e.result.Constraints)
			}

			if publish {
				if err := publishReport(cmd.Context(), e, report); err != nil {
					return err
				}
			}

			if code := report.ExitCode(); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include inheritance chains in text output")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the report to the configured sinks")

	return cmd
}

// openSinks opens every sink enabled in cfg.
func openSinks(ctx context.Context, cfg *config.Config) (diagnostics.MultiSink, error) {
	var sinks diagnostics.MultiSink
	if cfg.Health.Sinks.Redis.Enabled {
		sink, err := diagnostics.NewRedisSink(ctx, cfg.RedisSink())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if sql := cfg.Health.Sinks.SQL; sql.Enabled {
		sink, err := diagnostics.OpenSQLSink(ctx, sql.Driver, sql.DSN, sql.Table)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func publishReport(ctx context.Context, e *env, report *registry.HealthReport) error {
	sinks, err := openSinks(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("opening report sinks: %w", err)
	}
	defer sinks.Close()

	if len(sinks) == 0 {
		e.logger.Warn("no report sinks enabled, nothing published")
		return nil
	}
	if err := sinks.Publish(ctx, report); err != nil {
		return fmt.Errorf("publishing health report: %w", err)
	}
	e.logger.Info("health report published", zap.String("id", report.ID), zap.Int("sinks", len(sinks)))
	return nil
}

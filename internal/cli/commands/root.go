package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// ExitError carries a process exit code out of a command. The command has already
// reported the problem, so Execute prints nothing more.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	configFile string
	logLevel   string
	noColor    bool
	trace      bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "metareg",
		Short: "Metadata type registry diagnostics",
		Long: color.CyanString(`metareg - metadata type registry

metareg loads the built-in metadata type providers into a registry, resolves
inheritance between types and reports on the health of the result.

Features:
  • Inheritance-aware child requirements
  • Placement and validation constraints
  • Health reports as text, JSON or YAML
  • Report history in Redis or SQL`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file (default: ./metareg.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.trace, "trace", false, "Write OpenTelemetry spans to stderr")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newHealthCommand(opts))
	rootCmd.AddCommand(newTypesCommand(opts))
	rootCmd.AddCommand(newDescribeCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metareg version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			for _, line := range [][2]string{
				{"metareg version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				titleColor.Fprint(out, line[0])
				fmt.Fprintln(out, line[1])
			}
		},
	}
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return exit.Code
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

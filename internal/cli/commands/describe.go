package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metaregistry/internal/cli/ui"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

func newDescribeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <type.subType>",
		Short: "Show a type and its effective child requirements",
		Long: `Show a registered type, its inheritance chain and every child requirement it
accepts. Requirements declared by an ancestor are marked as inherited.`,
		Example: `  metareg describe field.string
  metareg describe object.pojo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			out := cmd.OutOrStdout()
			id, err := registry.ParseTypeID(args[0])
			var def *registry.TypeDefinition
			if err == nil {
				def, err = e.registry.RequireType(id)
			}
			if err != nil {
				e.logger.Debug("describe lookup failed", zap.Error(err))
				names := make([]string, 0, e.registry.Count())
				for _, t := range e.registry.AllTypes() {
					names = append(names, t.QualifiedName())
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFound(args[0], ui.Suggest(args[0], names, nil), opts.noColor))
				return &ExitError{Code: 1}
			}

			describeType(out, e.registry, def, opts.noColor)
			return nil
		},
	}
}

func describeType(out io.Writer, reg *registry.Registry, def *registry.TypeDefinition, noColor bool) {
	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Type", def.ID().QualifiedName())
	if def.Description() != "" {
		kv.AddRow("Description", def.Description())
	}
	if parent, ok := def.Parent(); ok {
		kv.AddRow("Parent", parent.QualifiedName())
	}
	chain, chainErr := reg.InheritanceChain(def.ID())
	names := make([]string, len(chain))
	for i, id := range chain {
		names[i] = id.QualifiedName()
	}
	kv.AddRow("Chain", strings.Join(names, " -> "))
	kv.Render()
	if chainErr != nil {
		fmt.Fprint(out, ui.Warning(chainErr.Error(), noColor))
	}
	fmt.Fprintln(out)

	reqs, _ := reg.EffectiveChildRequirements(def.ID())
	ui.Header(out, fmt.Sprintf("Child requirements (%d)", len(reqs)), noColor)
	if len(reqs) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	table := ui.NewTable(out, noColor, "NAME", "TYPE", "REQUIRED", "SOURCE")
	for _, req := range reqs {
		source := "inherited"
		if direct, ok := def.Requirement(req.Key()); ok && direct == req {
			source = "direct"
		}
		required := "no"
		if req.Required {
			required = "yes"
		}
		table.AddRow(req.Name, req.ExpectedType+"."+req.ExpectedSubType, required, source)
	}
	table.Render()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Accepts: %s\n", reg.SupportedChildrenDescription(def.ID()))
}

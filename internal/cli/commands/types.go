package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metaregistry/internal/cli/ui"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// typeInfo is the JSON form of a row in the types listing.
type typeInfo struct {
	Type         string   `json:"type"`
	Description  string   `json:"description,omitempty"`
	Parent       string   `json:"parent,omitempty"`
	Direct       int      `json:"direct"`
	Effective    int      `json:"effective"`
	Chain        []string `json:"chain"`
	Unresolved   bool     `json:"unresolved,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
}

func newTypesCommand(opts *globalOptions) *cobra.Command {
	var (
		family string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered types",
		Long: `List every registered type with its parent and the number of direct and
effective (inherited) child requirements.`,
		Example: `  metareg types
  metareg types --family field
  metareg types --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			infos := listTypes(e.registry, strings.ToLower(family))
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			if len(infos) == 0 {
				fmt.Fprintf(out, "No types registered for family %q\n", family)
				return nil
			}
			table := ui.NewTable(out, opts.noColor, "TYPE", "PARENT", "DIRECT", "EFFECTIVE")
			for _, info := range infos {
				effective := strconv.Itoa(info.Effective)
				if info.Unresolved {
					effective += "*"
				}
				table.AddRow(info.Type, info.Parent, strconv.Itoa(info.Direct), effective)
			}
			table.Render()
			fmt.Fprintf(out, "\n%d types\n", table.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Only list types of this family, e.g. field")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// listTypes collects a typeInfo for every definition, optionally limited to one family.
func listTypes(reg *registry.Registry, family string) []typeInfo {
	var infos []typeInfo
	for _, def := range reg.Definitions() {
		if family != "" && def.ID().Type != family {
			continue
		}
		info := typeInfo{
			Type:        def.ID().QualifiedName(),
			Description: def.Description(),
			Direct:      len(def.DirectRequirements()),
		}
		if parent, ok := def.Parent(); ok {
			info.Parent = parent.QualifiedName()
		}

		reqs, err := reg.EffectiveChildRequirements(def.ID())
		info.Effective = len(reqs)
		for _, req := range reqs {
			info.Requirements = append(info.Requirements, req.Label())
		}
		chain, chainErr := reg.InheritanceChain(def.ID())
		info.Unresolved = err != nil || chainErr != nil
		for _, id := range chain {
			info.Chain = append(info.Chain, id.QualifiedName())
		}
		infos = append(infos, info)
	}
	return infos
}

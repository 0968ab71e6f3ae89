package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// Format selects a report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (supported: text, json, yaml)", name)
}

// RenderOptions configures Render.
type RenderOptions struct {
	NoColor bool
	// Verbose adds the inheritance chains to text output
	Verbose bool
}

// Render writes report to w in format.
func Render(w io.Writer, report *registry.HealthReport, format Format, opts RenderOptions) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, report, opts)
	}
	return fmt.Errorf("unknown format %q", format)
}

func renderText(w io.Writer, report *registry.HealthReport, opts RenderOptions) error {
	statusColor := color.New(color.FgGreen, color.Bold)
	switch {
	case report.HasErrors():
		statusColor = color.New(color.FgRed, color.Bold)
	case report.HasWarnings():
		statusColor = color.New(color.FgYellow, color.Bold)
	}
	errColor := color.New(color.FgRed)
	warnColor := color.New(color.FgYellow)
	dim := color.New(color.Faint)
	if opts.NoColor {
		for _, c := range []*color.Color{statusColor, errColor, warnColor, dim} {
			c.DisableColor()
		}
	}

	var b strings.Builder
	statusColor.Fprintln(&b, report.Summary())
	dim.Fprintf(&b, "report %s at %s\n", report.ID, report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))

	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(report.Errors))
		for _, issue := range report.Errors {
			errColor.Fprintf(&b, "  ✗ %s\n", issue)
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(report.Warnings))
		for _, issue := range report.Warnings {
			warnColor.Fprintf(&b, "  ! %s\n", issue)
		}
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&b, "\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "  → %s\n", rec)
		}
	}

	fmt.Fprintf(&b, "\nStatistics:\n")
	for _, key := range []string{"totalTypes", "primaryTypes", "typesWithInheritance", "typesInheritingFromBase", "pendingLinks", "conflicts", "baseTypeCompliance"} {
		if v, ok := report.Metadata[key]; ok {
			fmt.Fprintf(&b, "  %-24s %v\n", key, v)
		}
	}

	if opts.Verbose {
		if chains := chainsOf(report.Metadata["inheritanceChains"]); len(chains) > 0 {
			fmt.Fprintf(&b, "\nInheritance chains:\n")
			names := make([]string, 0, len(chains))
			for name := range chains {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				dim.Fprintf(&b, "  %s\n", chains[name])
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// chainsOf accepts both the in-process map and the decoded form of a stored report.
func chainsOf(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[k] = fmt.Sprint(v)
		}
		return out
	}
	return nil
}

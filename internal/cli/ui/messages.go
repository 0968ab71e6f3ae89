package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures FormatMessage
type MessageOptions struct {
	Level        Level
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func palette(level Level) (header, body *color.Color, symbol string) {
	switch level {
	case LevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "!"
	case LevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "i"
	}
	return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "✗"
}

// FormatMessage creates a message with optional detail, suggestions and help commands
//
// Example output:
//
//	✗ TYPE NOT FOUND: field.strng
//	   Type field.strng is not registered.
//
//	   Did you mean: field.string?
//
//	   → See all types: metareg types
func FormatMessage(opts MessageOptions) string {
	header, body, symbol := palette(opts.Level)
	accent := color.New(color.FgYellow)
	help := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{header, body, accent, help} {
			c.DisableColor()
		}
	}

	var b strings.Builder
	if opts.Context != "" {
		header.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}
	if opts.Context != "" && opts.Problem != "" {
		body.Fprintf(&b, "   %s\n", opts.Problem)
	}
	if opts.Detail != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(opts.Detail, "\n"), "\n") {
			body.Fprintf(&b, "   %s\n", line)
		}
	}
	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		accent.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			help.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// WriteMessage writes a formatted message to w
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// TypeNotFound creates the message for an unregistered type name.
func TypeNotFound(name string, suggestions []string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:        LevelError,
		Context:      "type not found: " + name,
		Problem:      fmt.Sprintf("Type %s is not registered.", name),
		Suggestions:  suggestions,
		HelpCommands: []string{"See all types: metareg types"},
		NoColor:      noColor,
	})
}

// ConfigError creates the message for an invalid configuration.
func ConfigError(err error, file string, noColor bool) string {
	help := []string{"Get help: metareg --help"}
	if file != "" {
		help = append([]string{"View config: cat " + file}, help...)
	}
	return FormatMessage(MessageOptions{
		Level:        LevelError,
		Context:      "configuration error",
		Problem:      err.Error(),
		HelpCommands: help,
		NoColor:      noColor,
	})
}

// Warning creates a warning message
func Warning(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelWarning, Problem: message, NoColor: noColor})
}

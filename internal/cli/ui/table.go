package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under bold headers with columns padded to the widest cell.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow adds a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.rows) }

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	for i, h := range t.headers {
		bold.Fprint(t.writer, pad(h, widths[i], i == len(t.headers)-1))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	gray.Fprintln(t.writer, strings.Join(rules, "  "))

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i], i == len(row)-1)
		}
		fmt.Fprintln(t.writer, strings.Join(cells, "  "))
	}
}

// pad pads s with spaces to width. The last column is not padded.
func pad(s string, width int, last bool) string {
	n := utf8.RuneCountInString(s)
	if last || n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// KeyValueTable renders aligned "key: value" lines
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render renders the key-value table
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		width = max(width, utf8.RuneCountInString(k)+1)
	}
	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, k := range t.keys {
		cyan.Fprint(t.writer, pad(k+":", width, false))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// Header renders a bold section title followed by a blank line
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
	fmt.Fprintln(w)
}

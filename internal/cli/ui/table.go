package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a bold header, columns padded to their widest cell
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// TableOptions configures table behavior
type TableOptions struct {
	NoColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	noColor := false
	if opts != nil {
		noColor = opts.NoColor
	}

	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow adds a row. Missing cells render empty and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = width(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	last := len(t.headers) - 1
	for i, header := range t.headers {
		if i == last {
			bold.Fprint(t.writer, header)
		} else {
			bold.Fprint(t.writer, padRight(header, widths[i])+"  ")
		}
	}
	fmt.Fprintln(t.writer)

	for i, w := range widths {
		sep := strings.Repeat("─", w)
		if i < last {
			sep += "  "
		}
		gray.Fprint(t.writer, sep)
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		var line strings.Builder
		for i, cell := range row {
			if i == last {
				line.WriteString(cell)
			} else {
				line.WriteString(padRight(cell, widths[i]) + "  ")
			}
		}
		fmt.Fprintln(t.writer, strings.TrimRight(line.String(), " "))
	}
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

// padRight pads s with spaces to w runes
func padRight(s string, w int) string {
	n := width(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

// KeyValueTable renders aligned "key: value" lines
type KeyValueTable struct {
	writer  io.Writer
	rows    []kvRow
	noColor bool
}

type kvRow struct {
	key   string
	value string
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, kvRow{key: key, value: value})
}

// Render renders the key-value table
func (t *KeyValueTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	keyWidth := 0
	for _, row := range t.rows {
		if w := width(row.key); w > keyWidth {
			keyWidth = w
		}
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for _, row := range t.rows {
		cyan.Fprint(t.writer, padRight(row.key+":", keyWidth+1))
		fmt.Fprintf(t.writer, " %s\n", row.value)
	}
}

// List renders a titled bulleted list. An empty list renders as "none".
func List(w io.Writer, title string, items []string, noColor bool) {
	cyan := color.New(color.FgCyan)
	if noColor {
		cyan.DisableColor()
	}
	cyan.Fprintf(w, "%s:", title)
	if len(items) == 0 {
		fmt.Fprintln(w, " none")
		return
	}
	fmt.Fprintln(w)
	for _, item := range items {
		cyan.Fprint(w, "  • ")
		fmt.Fprintln(w, item)
	}
}

// Divider renders a horizontal divider line
func Divider(w io.Writer, n int, noColor bool) {
	if n == 0 {
		n = 80
	}

	gray := color.New(color.FgHiBlack)
	if noColor {
		gray.DisableColor()
	}
	gray.Fprintln(w, strings.Repeat("─", n))
}

// Header renders a styled header
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
	Divider(w, width(title), noColor)
}

// Package printer renders migration summaries as terminal tables.
package printer

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/pterm/pterm"

	"github.com/harness/package-migrator/internal/style"
)

// Table is a grid of pre-formatted cells under a fixed set of headers.
// Empty or missing cells print as "-".
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable starts a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow appends one row. Extra cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Headers))
	for i := range row {
		row[i] = "-"
		if i < len(cells) && cells[i] != "" {
			row[i] = cells[i]
		}
	}
	t.Rows = append(t.Rows, row)
}

// Empty reports whether the table has no rows to print.
func (t *Table) Empty() bool {
	return len(t.Headers) == 0 || len(t.Rows) == 0
}

// Fprint writes the table to w: a rounded lipgloss grid when styles are
// enabled, pterm's boxed table otherwise. An empty table writes nothing.
func (t *Table) Fprint(w io.Writer) error {
	if t.Empty() {
		return nil
	}
	var out string
	if style.Enabled {
		out = t.styled()
	} else {
		var err error
		if out, err = t.plain(); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func (t *Table) styled() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(style.Cyan).Padding(0, 1)
	even := lipgloss.NewStyle().Padding(0, 1)
	odd := even.Foreground(style.Dim)

	grid := lgtable.New().
		Headers(t.Headers...).
		Rows(t.Rows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Subtle)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return head
			case row%2 == 0:
				return even
			default:
				return odd
			}
		})
	return grid.Render()
}

func (t *Table) plain() (string, error) {
	data := make(pterm.TableData, 0, len(t.Rows)+1)
	data = append(data, t.Headers)
	data = append(data, t.Rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed(true).WithData(data).Srender()
}

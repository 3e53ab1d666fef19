// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmeier/structure-harvester/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintTargets outputs a summary of the normalized target set.
func (p *Printer) PrintTargets(set types.IDSet) {
	if set == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Unique targets: %d\n", set.Len()))

	values := set.Values()
	count := min(len(values), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", values[i]))
	}
	if len(values) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(values)-maxItemsToShow))
	}

	p.printBox("NORMALIZED TARGETS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCrossRef outputs a summary of the cross-reference mapping.
func (p *Printer) PrintCrossRef(m *types.CrossRefMap) {
	if m == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accessions mapped:    %d\n", m.Len()))
	sb.WriteString(fmt.Sprintf("Cross-ref pairs:      %d\n", m.Pairs()))
	sb.WriteString(fmt.Sprintf("Unique structure ids: %d", len(m.StructureIDs())))

	p.printBox("CROSS-REFERENCE MAPPING", sb.String())
}

// PrintSelection outputs the chosen structure per accession.
func (p *Printer) PrintSelection(selected []types.SelectedStructure) {
	if len(selected) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Structures selected: %d\n\n", len(selected)))

	count := min(len(selected), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := selected[i]
		sb.WriteString(fmt.Sprintf("%s  %s  %.2f  %s\n", s.Accession, s.StructureID, s.Resolution, s.Method))
	}
	if len(selected) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(selected)-maxItemsToShow))
	}

	p.printBox("SELECTED STRUCTURES", strings.TrimSuffix(sb.String(), "\n"))
}

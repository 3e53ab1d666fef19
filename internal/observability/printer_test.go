package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmeier/structure-harvester/internal/types"
)

func TestPrintTargets(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTargets(types.NewIDSet("B_HUMAN", "A_HUMAN"))

	out := buf.String()
	assert.Contains(t, out, "NORMALIZED TARGETS")
	assert.Contains(t, out, "Unique targets: 2")
	assert.Contains(t, out, "A_HUMAN")
}

func TestPrintTargets_TruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	set := types.NewIDSet("A", "B", "C", "D", "E", "F", "G")
	p.PrintTargets(set)

	assert.Contains(t, buf.String(), "... and 2 more")
}

func TestPrintCrossRef(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	m := types.NewCrossRefMap()
	m.Add("S1", "A1")
	m.Add("S1", "A2")
	p.PrintCrossRef(m)

	out := buf.String()
	assert.Contains(t, out, "CROSS-REFERENCE MAPPING")
	assert.Contains(t, out, "Accessions mapped:    2")
	assert.Contains(t, out, "Unique structure ids: 1")
}

func TestPrintSelection(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSelection([]types.SelectedStructure{
		{StructureID: "S1", Accession: "A1", Resolution: 1.5, Method: "X-RAY DIFFRACTION"},
	})

	out := buf.String()
	assert.Contains(t, out, "SELECTED STRUCTURES")
	assert.Contains(t, out, "A1  S1  1.50")
}

func TestPrinters_NilInputs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTargets(nil)
	p.PrintCrossRef(nil)
	p.PrintSelection(nil)

	assert.Empty(t, strings.TrimSpace(buf.String()))
}

// Package convert invokes the external structconvert utility to produce .pdb
// and .mae renditions of each downloaded structure file.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/dmeier/structure-harvester/internal/types"
)

// ErrToolNotFound is returned when the conversion utility cannot be located.
var ErrToolNotFound = errors.New("structconvert utility not found")

// Record is one conversion attempt, keyed by (accession, structure id).
type Record struct {
	Accession   string `csv:"Accession"`
	StructureID string `csv:"Structure_ID"`
	PDBStatus   string `csv:"PDB_Status"`
	PDBOutput   string `csv:"PDB_Output_File"`
	MAEStatus   string `csv:"MAE_Status"`
	MAEOutput   string `csv:"MAE_Output_File"`
	Error       string `csv:"Error"`
}

// Converter runs structconvert for every downloaded structure. Outputs land in
// per-accession subdirectories of PDBDir and MAEDir.
type Converter struct {
	Tool    string // Path to the structconvert executable
	RawDir  string
	PDBDir  string
	MAEDir  string
	LogPath string

	// OnProgress is invoked after each attempt. May be nil.
	OnProgress func(rec Record)
}

// LocateTool resolves the structconvert path under the given installation
// root, conventionally taken from the SCHRODINGER environment variable.
func LocateTool(installRoot string) (string, error) {
	if installRoot == "" {
		return "", fmt.Errorf("%w: SCHRODINGER environment variable not set", ErrToolNotFound)
	}
	tool := filepath.Join(installRoot, "utilities", "structconvert")
	if _, err := os.Stat(tool); err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, tool)
	}
	return tool, nil
}

// Run converts every selected structure whose raw file exists. Conversion
// failures become per-record statuses; missing raw files are skipped entirely.
func (c *Converter) Run(ctx context.Context, selected []types.SelectedStructure) ([]Record, error) {
	for _, dir := range []string{c.PDBDir, c.MAEDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating conversion directory: %w", err)
		}
	}

	var records []Record
	for _, s := range selected {
		rawName := fmt.Sprintf("%s_%s.cif", s.Accession, s.StructureID)
		rawPath := filepath.Join(c.RawDir, rawName)
		if _, err := os.Stat(rawPath); err != nil {
			continue
		}

		rec := Record{
			Accession:   s.Accession,
			StructureID: s.StructureID,
			PDBStatus:   "Failed",
			MAEStatus:   "Failed",
		}

		base := fmt.Sprintf("%s_%s", s.Accession, s.StructureID)
		pdbOut := filepath.Join(c.PDBDir, s.Accession, base+".pdb")
		maeOut := filepath.Join(c.MAEDir, s.Accession, base+".mae")

		var problems []string
		if out, err := c.runTool(ctx, rawPath, pdbOut); err != nil {
			rec.PDBStatus = "Failed (Conversion)"
			problems = append(problems, fmt.Sprintf("pdb conversion failed: %s", out))
		} else {
			rec.PDBStatus = "Converted"
			rec.PDBOutput = pdbOut
		}
		if out, err := c.runTool(ctx, rawPath, maeOut); err != nil {
			rec.MAEStatus = "Failed (Conversion)"
			problems = append(problems, fmt.Sprintf("mae conversion failed: %s", out))
		} else {
			rec.MAEStatus = "Converted"
			rec.MAEOutput = maeOut
		}
		rec.Error = strings.Join(problems, "; ")

		records = append(records, rec)
		if c.OnProgress != nil {
			c.OnProgress(rec)
		}
	}

	if len(records) > 0 && c.LogPath != "" {
		if err := writeLog(c.LogPath, records); err != nil {
			return records, err
		}
	}
	return records, nil
}

// runTool executes one conversion and returns trimmed combined output for the
// failure log.
func (c *Converter) runTool(ctx context.Context, in, out string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err.Error(), err
	}
	cmd := exec.CommandContext(ctx, c.Tool, in, out)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(output)), err
	}
	return "", nil
}

func writeLog(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating conversion log: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing conversion log: %w", err)
	}
	return nil
}

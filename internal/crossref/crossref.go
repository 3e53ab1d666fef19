// Package crossref reduces the bulk structure-to-sequence cross-reference
// table to a per-accession candidate mapping.
//
// The table is a gzipped CSV with a nine-column schema; only the structure id
// and accession columns are consumed. The file opens with a dated comment line
// followed by the column header row.
package crossref

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/dmeier/structure-harvester/internal/fetch"
	"github.com/dmeier/structure-harvester/internal/types"
)

type row struct {
	StructureID string `csv:"PDB"`
	Accession   string `csv:"SP_PRIMARY"`
}

// Mapper streams the cross-reference table and filters it down to the
// accessions of interest.
type Mapper struct {
	TableURL string
	Options  *fetch.Options
}

// NewMapper returns a Mapper for the given table location.
func NewMapper(tableURL string, opts *fetch.Options) *Mapper {
	return &Mapper{TableURL: tableURL, Options: opts}
}

// Map streams the table and returns the accession-to-structures mapping
// restricted to the given accession set. Incomplete rows are dropped and exact
// duplicate pairs collapse. An unreachable or undecodable table is a fatal
// error; an empty post-filter mapping is not.
func (m *Mapper) Map(ctx context.Context, accessions types.IDSet) (*types.CrossRefMap, error) {
	body, err := fetch.Stream(ctx, m.TableURL, m.Options)
	if err != nil {
		return nil, fmt.Errorf("fetching cross-reference table: %w", err)
	}
	defer body.Close()

	gz, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("decompressing cross-reference table: %w", err)
	}
	defer gz.Close()

	out, err := Reduce(gz, accessions)
	if err != nil {
		return nil, fmt.Errorf("parsing cross-reference table: %w", err)
	}
	return out, nil
}

// Reduce consumes an uncompressed cross-reference CSV stream and builds the
// filtered mapping. Split out of Map so the reduction logic is testable
// without the transport wrapper.
func Reduce(r io.Reader, accessions types.IDSet) (*types.CrossRefMap, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.Comment = '#'
		cr.LazyQuotes = true
		return cr
	})

	out := types.NewCrossRefMap()
	err := gocsv.UnmarshalToCallback(r, func(rec row) {
		if rec.StructureID == "" || rec.Accession == "" {
			return
		}
		if !accessions.Has(rec.Accession) {
			return
		}
		out.Add(rec.StructureID, rec.Accession)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

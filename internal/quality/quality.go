// Package quality batch-queries structure metadata and retains candidates
// meeting the experimental-method and resolution criteria.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/dmeier/structure-harvester/internal/fetch"
	"github.com/dmeier/structure-harvester/internal/types"
)

// entriesQuery requests, per structure id, the experimental methods and the
// combined resolution value.
const entriesQuery = `
query($entry_ids: [String!]!) {
  entries(entry_ids: $entry_ids) {
    rcsb_id
    exptl { method }
    rcsb_entry_info { resolution_combined }
  }
}`

// defaultBackoff is how long a failed metadata batch pauses before the next
// batch is attempted.
const defaultBackoff = 2 * time.Second

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlEntry struct {
	ID    string `json:"rcsb_id"`
	Exptl []struct {
		Method string `json:"method"`
	} `json:"exptl"`
	EntryInfo struct {
		ResolutionCombined []*float64 `json:"resolution_combined"`
	} `json:"rcsb_entry_info"`
}

type gqlResponse struct {
	Data *struct {
		Entries []*gqlEntry `json:"entries"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Filter batch-queries the metadata service and applies the quality predicate.
// Batches run sequentially so the accepted list keeps batch submission order,
// which the selector relies on for deterministic tie-breaking.
type Filter struct {
	MetadataURL   string
	BatchSize     int
	Method        string
	MaxResolution float64
	Backoff       time.Duration // Zero means defaultBackoff
	Options       *fetch.Options

	// OnBatchError is invoked for every failed batch; that batch's entries are
	// simply absent from the result. May be nil.
	OnBatchError func(batch int, err error)
}

// NewFilter returns a Filter with the given endpoint and acceptance criteria.
func NewFilter(metadataURL string, batchSize int, method string, maxResolution float64, opts *fetch.Options) *Filter {
	return &Filter{
		MetadataURL:   metadataURL,
		BatchSize:     batchSize,
		Method:        method,
		MaxResolution: maxResolution,
		Options:       opts,
	}
}

// Run queries metadata for the given structure ids and returns the accepted
// candidates in batch submission order. Transport and parse failures are
// per-batch: reported, backed off, and skipped. Run never aborts the stage.
func (f *Filter) Run(ctx context.Context, structureIDs []string) []types.StructureMetadata {
	var accepted []types.StructureMetadata

	for i := 0; i < len(structureIDs); i += f.BatchSize {
		if ctx.Err() != nil {
			return accepted
		}
		batchNum := i / f.BatchSize
		batch := structureIDs[i:min(i+f.BatchSize, len(structureIDs))]

		entries, err := f.queryBatch(ctx, batch)
		if err != nil {
			f.reportBatchError(batchNum, err)
			f.sleep(ctx)
			continue
		}
		for _, entry := range entries {
			if md, ok := f.evaluate(entry); ok {
				accepted = append(accepted, md)
			}
		}
	}

	return accepted
}

func (f *Filter) queryBatch(ctx context.Context, batch []string) ([]*gqlEntry, error) {
	req := gqlRequest{
		Query:     entriesQuery,
		Variables: map[string]any{"entry_ids": batch},
	}

	var resp gqlResponse
	if err := fetch.PostJSON(ctx, f.MetadataURL, req, &resp, f.Options); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("metadata service error: %s", resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("metadata response missing data")
	}
	return resp.Data.Entries, nil
}

// evaluate applies the quality predicate to one per-id result. Null entries
// and entries with absent method or resolution are rejected, not errored.
func (f *Filter) evaluate(entry *gqlEntry) (types.StructureMetadata, bool) {
	if entry == nil || entry.ID == "" {
		return types.StructureMetadata{}, false
	}
	if len(entry.Exptl) == 0 || entry.Exptl[0].Method != f.Method {
		return types.StructureMetadata{}, false
	}
	res := entry.EntryInfo.ResolutionCombined
	if len(res) == 0 || res[0] == nil {
		return types.StructureMetadata{}, false
	}
	if *res[0] > f.MaxResolution {
		return types.StructureMetadata{}, false
	}
	return types.StructureMetadata{
		StructureID: entry.ID,
		Method:      entry.Exptl[0].Method,
		Resolution:  *res[0],
	}, true
}

func (f *Filter) sleep(ctx context.Context) {
	backoff := f.Backoff
	if backoff == 0 {
		backoff = defaultBackoff
	}
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
	}
}

func (f *Filter) reportBatchError(batch int, err error) {
	if f.OnBatchError != nil {
		f.OnBatchError(batch, err)
	}
}

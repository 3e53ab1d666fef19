// Package resolve maps canonical target identifiers to accession codes via
// batched lookups against an external search service.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmeier/structure-harvester/internal/fetch"
	"github.com/dmeier/structure-harvester/internal/types"
)

// ErrEmptyInput is returned when the target set to resolve is empty.
var ErrEmptyInput = errors.New("no targets to resolve")

// maxConcurrentBatches bounds the parallel fan-out across independent batches.
const maxConcurrentBatches = 4

type searchResponse struct {
	Results []struct {
		PrimaryAccession string `json:"primaryAccession"`
	} `json:"results"`
}

// Resolver issues batched identifier lookups. Batch sizing bounds URL length
// and matches the service's page size; batches run concurrently because the
// accumulated result is a set and order does not matter.
type Resolver struct {
	SearchURL string
	BatchSize int
	Options   *fetch.Options

	// OnBatchError is invoked for every failed batch; the batch is skipped and
	// resolution continues. May be nil.
	OnBatchError func(batch int, err error)
}

// NewResolver returns a Resolver with the given endpoint and batch size.
func NewResolver(searchURL string, batchSize int, opts *fetch.Options) *Resolver {
	return &Resolver{SearchURL: searchURL, BatchSize: batchSize, Options: opts}
}

// Resolve maps the target set to the union of accession codes returned by all
// successful batches. A failed batch contributes nothing and does not abort
// the others. Returns ErrEmptyInput only when the input set is empty.
func (r *Resolver) Resolve(ctx context.Context, targets types.IDSet) (types.IDSet, error) {
	if targets.Len() == 0 {
		return nil, ErrEmptyInput
	}

	names := targets.Values()
	accessions := make(types.IDSet)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)

	for i := 0; i < len(names); i += r.BatchSize {
		batchNum := i / r.BatchSize
		batch := names[i:min(i+r.BatchSize, len(names))]

		g.Go(func() error {
			resp, err := r.queryBatch(gctx, batch)
			if err != nil {
				r.reportBatchError(batchNum, err)
				return nil
			}
			mu.Lock()
			for _, item := range resp.Results {
				if item.PrimaryAccession != "" {
					accessions.Add(item.PrimaryAccession)
				}
			}
			mu.Unlock()
			return nil
		})
	}

	// Batch goroutines never return errors; failures are reported and skipped.
	_ = g.Wait()

	return accessions, nil
}

func (r *Resolver) queryBatch(ctx context.Context, batch []string) (*searchResponse, error) {
	terms := make([]string, 0, len(batch))
	for _, name := range batch {
		terms = append(terms, fmt.Sprintf("(id:%s)", name))
	}

	params := url.Values{}
	params.Set("query", strings.Join(terms, " OR "))
	params.Set("fields", "accession")
	params.Set("format", "json")
	params.Set("size", strconv.Itoa(len(batch)))

	var resp searchResponse
	if err := fetch.JSON(ctx, r.SearchURL, params, &resp, r.Options); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Resolver) reportBatchError(batch int, err error) {
	if r.OnBatchError != nil {
		r.OnBatchError(batch, err)
	}
}

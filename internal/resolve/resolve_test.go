package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmeier/structure-harvester/internal/types"
)

// fakeSearch answers every (id:NAME) term in the query with NAME_ACC, unless
// failOn matches the query, in which case it returns 500.
func fakeSearch(t *testing.T, failOn string, requests *[]string) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		assert.Equal(t, "accession", r.URL.Query().Get("fields"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		mu.Lock()
		*requests = append(*requests, query)
		mu.Unlock()

		if failOn != "" && strings.Contains(query, failOn) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var results []string
		for _, term := range strings.Split(query, " OR ") {
			name := strings.TrimSuffix(strings.TrimPrefix(term, "(id:"), ")")
			results = append(results, fmt.Sprintf(`{"primaryAccession":%q}`, name+"_ACC"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(results, ","))
	}))
}

func TestResolve_BatchesAndAccumulates(t *testing.T) {
	var requests []string
	server := fakeSearch(t, "", &requests)
	defer server.Close()

	r := NewResolver(server.URL, 2, nil)
	set, err := r.Resolve(context.Background(), types.NewIDSet("A", "B", "C", "D", "E"))
	require.NoError(t, err)

	// Five targets at batch size two means three requests.
	assert.Len(t, requests, 3)
	assert.Equal(t, []string{"A_ACC", "B_ACC", "C_ACC", "D_ACC", "E_ACC"}, set.Values())
}

func TestResolve_SingleBatchQueryShape(t *testing.T) {
	var requests []string
	server := fakeSearch(t, "", &requests)
	defer server.Close()

	r := NewResolver(server.URL, 100, nil)
	_, err := r.Resolve(context.Background(), types.NewIDSet("A", "B"))
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, "(id:A) OR (id:B)", requests[0])
}

func TestResolve_FailedBatchIsSkipped(t *testing.T) {
	var requests []string
	server := fakeSearch(t, "(id:C)", &requests)
	defer server.Close()

	var batchErrs []int
	var mu sync.Mutex

	r := NewResolver(server.URL, 2, nil)
	r.OnBatchError = func(batch int, err error) {
		mu.Lock()
		batchErrs = append(batchErrs, batch)
		mu.Unlock()
	}

	set, err := r.Resolve(context.Background(), types.NewIDSet("A", "B", "C", "D", "E"))
	require.NoError(t, err)

	// The batch containing C and D failed; the union of the rest survives.
	assert.Equal(t, []string{"A_ACC", "B_ACC", "E_ACC"}, set.Values())
	assert.Equal(t, []int{1}, batchErrs)
}

func TestResolve_DeduplicatesAccessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"primaryAccession":"X1"},{"primaryAccession":"X1"},{}]}`))
	}))
	defer server.Close()

	r := NewResolver(server.URL, 1, nil)
	set, err := r.Resolve(context.Background(), types.NewIDSet("A", "B"))
	require.NoError(t, err)

	// Duplicate accessions collapse; records without an accession are ignored.
	assert.Equal(t, []string{"X1"}, set.Values())
}

func TestResolve_EmptyInput(t *testing.T) {
	r := NewResolver("http://unused.invalid", 100, nil)
	_, err := r.Resolve(context.Background(), types.NewIDSet())
	assert.ErrorIs(t, err, ErrEmptyInput)
}

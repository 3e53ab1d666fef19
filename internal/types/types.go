// Package types defines the shared data model for the structure resolution pipeline.
package types

import "sort"

// IDSet is a deduplicated, unordered collection of opaque string identifiers.
// It is used both for canonical target names and for accession codes.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given identifiers.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier into the set.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether the identifier is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s IDSet) Len() int {
	return len(s)
}

// Values returns the identifiers in sorted order so that callers which
// partition the set into batches do so deterministically.
func (s IDSet) Values() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StructureMetadata describes one structure candidate that passed the quality
// predicate. Resolution is in the same unit as the configured threshold;
// lower is better.
type StructureMetadata struct {
	StructureID string  `json:"structure_id"`
	Method      string  `json:"method"`
	Resolution  float64 `json:"resolution"`
}

// SelectedStructure is the terminal record of the core pipeline: exactly one
// structure chosen for an accession. It is immutable once produced and is
// consumed only by the download and conversion collaborators.
type SelectedStructure struct {
	StructureID string  `json:"structure_id"`
	Accession   string  `json:"accession"`
	Resolution  float64 `json:"resolution"`
	Method      string  `json:"method"`
}

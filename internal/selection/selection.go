// Package selection reduces many qualified structure candidates per accession
// down to exactly one.
package selection

import (
	"strings"

	"github.com/dmeier/structure-harvester/internal/types"
)

// SelectBest groups accepted candidates by originating accession and picks the
// minimum-resolution structure for each. A structure id referenced by several
// accessions is eligible for all of them. On exact resolution ties the
// candidate appearing first in the accepted list wins, so the result is
// deterministic for a given accepted order.
//
// The output carries one SelectedStructure per accession that had at least one
// accepted candidate, ordered by the accession insertion order of the
// cross-reference map. Accessions whose candidates were all filtered out are
// absent, and accepted candidates with no cross-reference entry are dropped
// without error.
func SelectBest(accepted []types.StructureMetadata, xref *types.CrossRefMap) []types.SelectedStructure {
	reverse := xref.ReverseIndex()

	grouped := make(map[string][]types.StructureMetadata)
	for _, candidate := range accepted {
		for _, accession := range reverse[strings.ToUpper(candidate.StructureID)] {
			grouped[accession] = append(grouped[accession], candidate)
		}
	}

	var selected []types.SelectedStructure
	for _, accession := range xref.Accessions() {
		candidates := grouped[accession]
		if len(candidates) == 0 {
			continue
		}
		best := candidates[0]
		for _, c := range candidates[1:] {
			// Strict less-than keeps the earlier candidate on ties.
			if c.Resolution < best.Resolution {
				best = c
			}
		}
		selected = append(selected, types.SelectedStructure{
			StructureID: best.StructureID,
			Accession:   accession,
			Resolution:  best.Resolution,
			Method:      best.Method,
		})
	}

	return selected
}

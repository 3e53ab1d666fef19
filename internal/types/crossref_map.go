package types

import "strings"

type xrefPair struct {
	structureID string
	accession   string
}

// CrossRefMap maps an accession code to the structure ids that reference it.
//
// Semantics:
//   - Keys are unique and iterate in first-insertion order.
//   - Per-key structure id lists preserve insertion order and never repeat an
//     exact (structure id, accession) pair.
//   - An accession with zero matching rows is simply absent; the map never
//     stores a key with an empty list.
type CrossRefMap struct {
	order []string
	byAcc map[string][]string
	seen  map[xrefPair]struct{}
}

// NewCrossRefMap returns an empty mapping.
func NewCrossRefMap() *CrossRefMap {
	return &CrossRefMap{
		byAcc: make(map[string][]string),
		seen:  make(map[xrefPair]struct{}),
	}
}

// Add records one (structure id, accession) cross-reference row. Exact
// duplicate pairs are dropped.
func (m *CrossRefMap) Add(structureID, accession string) {
	p := xrefPair{structureID: structureID, accession: accession}
	if _, dup := m.seen[p]; dup {
		return
	}
	m.seen[p] = struct{}{}
	if _, ok := m.byAcc[accession]; !ok {
		m.order = append(m.order, accession)
	}
	m.byAcc[accession] = append(m.byAcc[accession], structureID)
}

// Len returns the number of accessions with at least one structure.
func (m *CrossRefMap) Len() int {
	return len(m.order)
}

// Pairs returns the total number of distinct cross-reference pairs.
func (m *CrossRefMap) Pairs() int {
	return len(m.seen)
}

// Accessions returns the accession keys in insertion order.
func (m *CrossRefMap) Accessions() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Structures returns the structure ids recorded for an accession, in insertion
// order, or nil when the accession is absent.
func (m *CrossRefMap) Structures(accession string) []string {
	ids, ok := m.byAcc[accession]
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// StructureIDs returns the deduplicated union of all structure ids across
// accessions, in first-seen order. Metadata lookups run once per entry of this
// list, not once per accession.
func (m *CrossRefMap) StructureIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, acc := range m.order {
		for _, id := range m.byAcc[acc] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ReverseIndex builds a case-insensitive index from structure id to every
// accession that references it, accessions in map insertion order. A structure
// shared by several accessions appears under each of them; selection treats it
// as eligible for all.
func (m *CrossRefMap) ReverseIndex() map[string][]string {
	idx := make(map[string][]string)
	for _, acc := range m.order {
		for _, id := range m.byAcc[acc] {
			key := strings.ToUpper(id)
			idx[key] = append(idx[key], acc)
		}
	}
	return idx
}

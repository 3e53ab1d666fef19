// Package targets extracts canonical target identifiers from a raw target
// list. The list is an arbitrary text blob; only lines beginning with the
// configured record marker carry identifiers, one or more per line separated
// by semicolons.
package targets

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dmeier/structure-harvester/internal/types"
)

// ErrNoTargets is returned when the blob yields zero valid identifiers. It
// distinguishes "parsed and found nothing" from an empty set a downstream
// stage would silently accept.
var ErrNoTargets = errors.New("no targets found in source list")

// Normalizer parses a raw target list into a deduplicated identifier set.
type Normalizer struct {
	sentinel string
	record   *regexp.Regexp
}

// NewNormalizer builds a Normalizer for the given record marker and header
// sentinel. The sentinel token is dropped case-insensitively wherever it
// appears; the upstream file repeats its column header inside data lines.
func NewNormalizer(marker, sentinel string) *Normalizer {
	return &Normalizer{
		sentinel: strings.ToLower(sentinel),
		record:   regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(marker) + `[ \t]+(.*)$`),
	}
}

// Parse extracts the identifier set from the blob. The same blob always
// yields the same set; duplicate tokens across lines collapse to one.
func (n *Normalizer) Parse(blob string) (types.IDSet, error) {
	set := make(types.IDSet)
	for _, match := range n.record.FindAllStringSubmatch(blob, -1) {
		for _, token := range strings.Split(match[1], ";") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if strings.ToLower(token) == n.sentinel {
				continue
			}
			set.Add(token)
		}
	}
	if set.Len() == 0 {
		return nil, ErrNoTargets
	}
	return set, nil
}

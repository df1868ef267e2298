// Package gazetteer indexes the place names of one media market and
// locates their occurrences inside free text.
package gazetteer

import (
	"fmt"
	"strings"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
)

// Place pairs a place name with its stable identifier.
type Place struct {
	ID   int64
	Name string
}

// Index is a read-only lookup structure over the places of one market.
// Names are stored as token phrases, so multi-word names are atomic
// units and "Newark" can never satisfy "New". Duplicate names keep all
// their ids; ambiguity resolution belongs to the caller.
//
// An Index is immutable after construction and safe for concurrent use.
type Index struct {
	phrases map[string][]int64 // joined token phrase → place ids
	maxLen  int
	count   int
}

// NewIndex builds an Index from (name, id) pairs. An empty or
// untokenizable place list is a configuration error: matching would be
// a silent no-op, and that has to surface before any extraction runs.
func NewIndex(places []Place) (*Index, error) {
	if len(places) == 0 {
		return nil, fmt.Errorf("gazetteer: %w", internalerr.ErrEmptyGazetteer)
	}

	phrases := make(map[string][]int64, len(places))
	maxLen := 1
	count := 0

	for _, p := range places {
		tokens := Tokenize(p.Name)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		phrases[key] = append(phrases[key], p.ID)
		if len(tokens) > maxLen {
			maxLen = len(tokens)
		}
		count++
	}

	if count == 0 {
		return nil, fmt.Errorf("gazetteer: no usable place names: %w", internalerr.ErrEmptyGazetteer)
	}

	return &Index{phrases: phrases, maxLen: maxLen, count: count}, nil
}

// lookup returns the ids bound to an exact token phrase.
func (ix *Index) lookup(phrase string) ([]int64, bool) {
	ids, ok := ix.phrases[phrase]
	return ids, ok
}

// maxTokens returns the token length of the longest indexed name.
func (ix *Index) maxTokens() int { return ix.maxLen }

// Len returns the number of indexed (name, id) pairs.
func (ix *Index) Len() int { return ix.count }

package gazetteer

import "strings"

// Mode selects how much of the text Find scans.
type Mode int

const (
	// FirstMatch stops at the first matching name and returns every id
	// bound to that name.
	FirstMatch Mode = iota
	// AllMatches scans the full text and returns ids for every name
	// occurrence, in scan order. The same id can appear more than once
	// when its name occurs more than once.
	AllMatches
)

// Find locates indexed place names inside text. Matching is
// case-sensitive and word-boundary correct: both the names and the
// text are tokenized the same way, so a name can only match a whole
// run of tokens, never the inside of a larger word. Longer names win
// over their prefixes at the same position.
//
// No match yields an empty result, never an error.
func (ix *Index) Find(text string, mode Mode) []int64 {
	tokens := Tokenize(text)

	var found []int64
	i := 0
	for i < len(tokens) {
		matchLen := 0

		// Try matching from longest phrase to shortest
		max := ix.maxLen
		if remaining := len(tokens) - i; max > remaining {
			max = remaining
		}
		for n := max; n >= 1; n-- {
			phrase := strings.Join(tokens[i:i+n], " ")
			if ids, ok := ix.phrases[phrase]; ok {
				found = append(found, ids...)
				matchLen = n
				break
			}
		}

		if matchLen == 0 {
			i++
			continue
		}
		if mode == FirstMatch {
			return found
		}
		i += matchLen
	}

	return found
}

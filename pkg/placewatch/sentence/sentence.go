// Package sentence provides the sentence-boundary capability used by
// the extraction pipeline. The splitter is an explicit dependency
// handed to the pipeline, never process-wide state.
package sentence

import (
	"strings"
	"unicode"
)

// Splitter divides plain text into sentences.
type Splitter interface {
	Split(text string) []string
}

// EnglishSplitter is a rule-based splitter for English prose. It
// breaks on sentence-final punctuation followed by whitespace and an
// upward-looking next character, and refuses to break after common
// abbreviations, single-letter initials, and inside decimal numbers.
type EnglishSplitter struct {
	abbreviations map[string]struct{}
}

// english abbreviations that end with a period but not a sentence
var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "rev", "gen", "sen", "rep", "gov",
	"st", "ave", "blvd", "rd", "mt", "ft", "jr", "sr",
	"vs", "etc", "inc", "corp", "co", "ltd", "dept",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	"u.s", "u.k", "a.m", "p.m", "no", "vol", "approx",
}

// NewEnglishSplitter creates a splitter with the default abbreviation set.
func NewEnglishSplitter() *EnglishSplitter {
	abbr := make(map[string]struct{}, len(defaultAbbreviations))
	for _, a := range defaultAbbreviations {
		abbr[a] = struct{}{}
	}
	return &EnglishSplitter{abbreviations: abbr}
}

// Split divides text into sentences. Whitespace around each sentence
// is trimmed; empty sentences are dropped.
func (s *EnglishSplitter) Split(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end, ok := s.boundaryAt(runes, i)
		if !ok {
			continue
		}
		if sent := strings.TrimSpace(string(runes[start:end])); sent != "" {
			sentences = append(sentences, sent)
		}
		start = end
		i = end - 1
	}

	if sent := strings.TrimSpace(string(runes[start:])); sent != "" {
		sentences = append(sentences, sent)
	}

	return sentences
}

// boundaryAt decides whether the terminator at position i ends a
// sentence. On a boundary it returns the position just past the
// terminator and any trailing closers (quotes, parens), which belong
// to the sentence being closed.
func (s *EnglishSplitter) boundaryAt(runes []rune, i int) (int, bool) {
	j := i + 1
	for j < len(runes) && isCloser(runes[j]) {
		j++
	}

	// Terminator at end of text always closes the sentence.
	if j >= len(runes) {
		return j, true
	}
	// Must be followed by whitespace.
	if !unicode.IsSpace(runes[j]) {
		// "3.5 inches": a digit on both sides is a decimal point.
		return 0, false
	}

	if runes[i] == '.' {
		word := precedingWord(runes, i)
		if _, ok := s.abbreviations[strings.ToLower(word)]; ok {
			return 0, false
		}
		// Single-letter initial: "George W. Bush".
		if len([]rune(word)) == 1 && unicode.IsUpper([]rune(word)[0]) {
			return 0, false
		}
	}

	// Peek at the next non-space rune: a sentence opener.
	k := j
	for k < len(runes) && unicode.IsSpace(runes[k]) {
		k++
	}
	if k >= len(runes) {
		return j, true
	}
	next := runes[k]
	if unicode.IsUpper(next) || unicode.IsDigit(next) || isOpener(next) {
		return j, true
	}
	return 0, false
}

// precedingWord returns the word immediately before position i,
// keeping interior periods so "U.S." is seen as one unit.
func precedingWord(runes []rune, i int) string {
	end := i
	j := i - 1
	for j >= 0 && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '.') {
		j--
	}
	word := string(runes[j+1 : end])
	return strings.TrimSuffix(word, ".")
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}

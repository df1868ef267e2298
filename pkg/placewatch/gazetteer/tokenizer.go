package gazetteer

import (
	"strings"
	"unicode"
)

// Tokenize splits text into word tokens. A token is a maximal run of
// alphanumeric characters; everything else is a boundary. Case is
// preserved so that matching stays case-sensitive on the stored name.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		}
	}

	// Don't forget the last token
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

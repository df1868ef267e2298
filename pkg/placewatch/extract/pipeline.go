// Package extract turns parsed feed entries into persistence-ready
// bundles of article, place-tag, and place-mention records.
package extract

import (
	"github.com/cognicore/placewatch/pkg/placewatch/gazetteer"
	"github.com/cognicore/placewatch/pkg/placewatch/sentence"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

// Mention locations inside an entry.
const (
	LocationTitle   = "title"
	LocationSummary = "summary"
)

// Mention is one occurrence of a place inside a specific piece of
// text: the title, or one sentence of the summary.
type Mention struct {
	PlaceID  int64
	Context  string // the sentence or title that matched
	Location string // LocationTitle or LocationSummary
}

// Bundle is the structured output of extraction for one entry, ready
// for the insertion coordinator. PlaceTags is always the deduplicated
// projection of the mention place ids; PlaceMentions keeps full
// multiplicity in scan order.
type Bundle struct {
	Article       store.Article
	PlaceTags     []int64
	PlaceMentions []Mention
}

// Pipeline scans entries against a gazetteer index. The sentence
// splitter is an injected capability, never package state.
type Pipeline struct {
	index    *gazetteer.Index
	splitter sentence.Splitter
}

// NewPipeline creates an extraction pipeline over one market's index.
func NewPipeline(index *gazetteer.Index, splitter sentence.Splitter) *Pipeline {
	return &Pipeline{index: index, splitter: splitter}
}

// Extract scans one entry and assembles its bundle. The second return
// is false when the entry mentions no indexed place; such entries are
// not persisted at all. A validation failure returns an error wrapping
// internalerr.ErrInvalidEntry; the caller skips the entry and the
// batch continues.
func (p *Pipeline) Extract(feedID int64, e Entry) (*Bundle, bool, error) {
	if err := e.Validate(); err != nil {
		return nil, false, err
	}

	var mentions []Mention

	// Title scanned as a single unit, one mention per distinct id.
	for _, id := range uniqueIDs(p.index.Find(e.Title, gazetteer.AllMatches)) {
		mentions = append(mentions, Mention{
			PlaceID:  id,
			Context:  e.Title,
			Location: LocationTitle,
		})
	}

	// Each summary sentence scanned independently. A place mentioned
	// in three sentences yields three mentions; the tag-level dedupe
	// happens below.
	for _, sent := range p.splitter.Split(e.Summary) {
		for _, id := range uniqueIDs(p.index.Find(sent, gazetteer.AllMatches)) {
			mentions = append(mentions, Mention{
				PlaceID:  id,
				Context:  sent,
				Location: LocationSummary,
			})
		}
	}

	if len(mentions) == 0 {
		return nil, false, nil
	}

	tagIDs := make([]int64, 0, len(mentions))
	for _, m := range mentions {
		tagIDs = append(tagIDs, m.PlaceID)
	}

	return &Bundle{
		Article: store.Article{
			FeedID:    feedID,
			Headline:  e.Title,
			URL:       e.Link,
			ContentID: e.ContentID,
			Date:      e.Date,
			Summary:   e.Summary,
		},
		PlaceTags:     uniqueIDs(tagIDs),
		PlaceMentions: mentions,
	}, true, nil
}

// MentionsFor returns the bundle's mentions for one place id, in order.
func (b *Bundle) MentionsFor(placeID int64) []Mention {
	var out []Mention
	for _, m := range b.PlaceMentions {
		if m.PlaceID == placeID {
			out = append(out, m)
		}
	}
	return out
}

func uniqueIDs(in []int64) []int64 {
	set := make(map[int64]struct{}, len(in))
	var out []int64
	for _, id := range in {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Package persist coordinates the multi-table insertion of extraction
// bundles: article row, then tag rows, then mention rows.
package persist

import (
	"context"
	"fmt"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

// Coordinator persists bundles with referential correctness and
// idempotence across repeated runs. It does not retry and does not
// roll back: a failed insert abandons the rest of the entry's chain,
// leaving already-committed rows in place. Callers needing atomicity
// wrap the store in a transaction at its own boundary.
type Coordinator struct {
	store store.Store
}

// NewCoordinator wires a store into a coordinator.
func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

// InsertBundle runs the insertion protocol in strict order:
//
//  1. Insert the article row and obtain its article_id. The insert is
//     always issued; identifying an existing row is the store's
//     constraint, not a decision made here.
//  2. For each unique place id, insert-or-identify the tag row keyed
//     (article_id, place_id).
//  3. Only for tags reported as newly inserted, insert that place's
//     mention rows. A pre-existing tag means a rerun over processed
//     data; its mentions are already persisted and are skipped.
//
// A mention row is therefore never written before its owning tag row,
// and a tag is never written twice for the same (article_id, place_id).
func (c *Coordinator) InsertBundle(ctx context.Context, b *extract.Bundle) error {
	articleID, _, err := c.store.UpsertArticle(ctx, b.Article)
	if err != nil {
		return fmt.Errorf("insert article %q: %w", b.Article.URL, err)
	}

	for _, placeID := range b.PlaceTags {
		tagID, outcome, err := c.store.UpsertPlaceTag(ctx, store.PlaceTag{
			ArticleID: articleID,
			PlaceID:   placeID,
		})
		if err != nil {
			return fmt.Errorf("upsert tag (article %d, place %d): %w", articleID, placeID, err)
		}

		switch outcome {
		case store.Existing:
			continue
		case store.Inserted:
		default:
			return fmt.Errorf("tag (article %d, place %d) outcome %d: %w",
				articleID, placeID, outcome, internalerr.ErrBadOutcome)
		}

		for _, m := range b.MentionsFor(placeID) {
			_, err := c.store.InsertPlaceMention(ctx, store.PlaceMention{
				TagID:    tagID,
				Context:  m.Context,
				Location: m.Location,
			})
			if err != nil {
				return fmt.Errorf("insert mention (tag %d): %w", tagID, err)
			}
		}
	}

	return nil
}

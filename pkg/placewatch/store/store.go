// Package store defines the persistence boundary for placewatch.
// The column names carried by the row structs are the interchange
// contract with the relational schema and must not be renamed.
package store

import (
	"context"
	"time"
)

// Outcome reports what an insert-or-identify call did.
type Outcome int

const (
	// Inserted means the row was newly created by this call.
	Inserted Outcome = iota + 1
	// Existing means a row already held the natural key and its id was
	// returned instead.
	Existing
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Existing:
		return "existing"
	}
	return "unknown"
}

// Store is the interface for persisting and reading placewatch data.
type Store interface {
	Close() error

	// Places returns the (place_name, place_id) pairs of one market,
	// used to build the gazetteer index.
	Places(ctx context.Context, marketID int64) ([]Place, error)

	// UpsertPlace inserts a place for a market if the name is absent
	// and returns its id either way.
	UpsertPlace(ctx context.Context, marketID int64, name string) (int64, error)

	// UpsertArticle is the insert-or-identify primitive over the
	// articles table, keyed by url. The coordinator always issues the
	// insert; deduplication is this layer's constraint, not the
	// coordinator's.
	UpsertArticle(ctx context.Context, a Article) (int64, Outcome, error)

	// UpsertPlaceTag is the insert-or-identify primitive over the
	// natural key (article_id, place_id). It returns the tag_id and
	// whether the row was newly inserted or already existing.
	UpsertPlaceTag(ctx context.Context, t PlaceTag) (int64, Outcome, error)

	// InsertPlaceMention inserts a mention row under an existing tag
	// and returns its mention_id.
	InsertPlaceMention(ctx context.Context, m PlaceMention) (int64, error)
}

// Place is one row of the places table, scoped to a market.
type Place struct {
	ID   int64  // place_id
	Name string // place_name
}

// Article holds the columns of one articles row.
type Article struct {
	FeedID    int64     // feed_id
	Headline  string    // headline
	URL       string    // url
	ContentID string    // content_id; empty when the feed carries no id
	Date      time.Time // date (calendar date)
	Summary   string    // summary
}

// PlaceTag holds the columns of one place_tags row.
type PlaceTag struct {
	ArticleID int64 // article_id
	PlaceID   int64 // place_id
}

// PlaceMention holds the columns of one place_mentions row.
type PlaceMention struct {
	TagID    int64  // tag_id
	Context  string // context: the sentence or title that matched
	Location string // location: "title" or "summary"
}

package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
	"github.com/cognicore/placewatch/pkg/placewatch/store/memstore"
)

func testBundle() *extract.Bundle {
	return &extract.Bundle{
		Article: store.Article{
			FeedID:   3,
			Headline: "Seattle rain continues",
			URL:      "https://example.org/item-1",
			Date:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
			Summary:  "Portland braces for storms. Seattle remains dry.",
		},
		PlaceTags: []int64{10, 11},
		PlaceMentions: []extract.Mention{
			{PlaceID: 10, Context: "Seattle rain continues", Location: extract.LocationTitle},
			{PlaceID: 11, Context: "Portland braces for storms.", Location: extract.LocationSummary},
			{PlaceID: 10, Context: "Seattle remains dry.", Location: extract.LocationSummary},
		},
	}
}

func TestInsertBundle(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(ms)

	if err := c.InsertBundle(context.Background(), testBundle()); err != nil {
		t.Fatal(err)
	}

	if got := len(ms.Articles()); got != 1 {
		t.Errorf("articles = %d, want 1", got)
	}
	if got := len(ms.Tags()); got != 2 {
		t.Errorf("tags = %d, want 2", got)
	}
	if got := len(ms.Mentions()); got != 3 {
		t.Errorf("mentions = %d, want 3", got)
	}

	// Every mention row points at a committed tag row.
	tags := ms.Tags()
	for id, m := range ms.Mentions() {
		if _, ok := tags[m.TagID]; !ok {
			t.Errorf("mention %d references missing tag %d", id, m.TagID)
		}
	}
}

func TestInsertBundleMentionsFollowTheirTag(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(ms)

	if err := c.InsertBundle(context.Background(), testBundle()); err != nil {
		t.Fatal(err)
	}

	// The two Seattle mentions share one tag; Portland's is separate.
	tags := ms.Tags()
	perTag := make(map[int64]int)
	for _, m := range ms.Mentions() {
		perTag[m.TagID]++
	}
	for tagID, tag := range tags {
		want := 1
		if tag.PlaceID == 10 {
			want = 2
		}
		if perTag[tagID] != want {
			t.Errorf("tag %d (place %d): %d mentions, want %d", tagID, tag.PlaceID, perTag[tagID], want)
		}
	}
}

func TestInsertBundleRerunIsIdempotent(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(ms)
	ctx := context.Background()

	if err := c.InsertBundle(ctx, testBundle()); err != nil {
		t.Fatal(err)
	}
	tagsBefore := len(ms.Tags())
	mentionsBefore := len(ms.Mentions())

	// Rerun on the identical bundle: the article identifies to the
	// same id, every tag comes back Existing, and no mention rows are
	// added.
	if err := c.InsertBundle(ctx, testBundle()); err != nil {
		t.Fatal(err)
	}

	if got := len(ms.Articles()); got != 1 {
		t.Errorf("articles = %d after rerun, want 1", got)
	}
	if got := len(ms.Tags()); got != tagsBefore {
		t.Errorf("tags grew from %d to %d on rerun", tagsBefore, got)
	}
	if got := len(ms.Mentions()); got != mentionsBefore {
		t.Errorf("mentions grew from %d to %d on rerun", mentionsBefore, got)
	}

	seen := make(map[store.PlaceTag]int)
	for _, tag := range ms.Tags() {
		seen[tag]++
		if seen[tag] > 1 {
			t.Errorf("duplicate tag for %+v", tag)
		}
	}
}

func TestInsertBundleNewTagOnExistingArticle(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(ms)
	ctx := context.Background()

	if err := c.InsertBundle(ctx, testBundle()); err != nil {
		t.Fatal(err)
	}

	// An updated entry for the same url mentions a new place: the new
	// tag and its mentions are added, the old ones are untouched.
	b := testBundle()
	b.PlaceTags = append(b.PlaceTags, 12)
	b.PlaceMentions = append(b.PlaceMentions, extract.Mention{
		PlaceID: 12, Context: "Olympia issued an advisory.", Location: extract.LocationSummary,
	})

	if err := c.InsertBundle(ctx, b); err != nil {
		t.Fatal(err)
	}

	if got := len(ms.Tags()); got != 3 {
		t.Errorf("tags = %d, want 3", got)
	}
	if got := len(ms.Mentions()); got != 4 {
		t.Errorf("mentions = %d, want 4", got)
	}
}

func TestInsertBundleArticleFailureAbandonsChain(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(ms)

	ms.FailNext = errors.New("connection reset")
	if err := c.InsertBundle(context.Background(), testBundle()); err == nil {
		t.Fatal("Expected error")
	}

	if len(ms.Articles()) != 0 || len(ms.Tags()) != 0 || len(ms.Mentions()) != 0 {
		t.Error("Nothing should be committed after article insert failure")
	}
}

func TestInsertBundleTagFailureLeavesArticle(t *testing.T) {
	ms := memstore.New()
	c := NewCoordinator(&failTagStore{Store: ms})

	err := c.InsertBundle(context.Background(), testBundle())
	if err == nil {
		t.Fatal("Expected tag failure")
	}

	// Already-committed rows are not rolled back; nothing downstream
	// of the failed tag is written.
	if len(ms.Articles()) != 1 {
		t.Error("Committed article row must remain after tag failure")
	}
	if len(ms.Tags()) != 0 {
		t.Error("No tags may exist after tag failure")
	}
	if len(ms.Mentions()) != 0 {
		t.Error("No mentions may exist after tag failure")
	}
}

func TestInsertBundleBadOutcome(t *testing.T) {
	c := NewCoordinator(badOutcomeStore{})

	err := c.InsertBundle(context.Background(), testBundle())
	if err == nil {
		t.Fatal("Expected contract violation error")
	}
	if !errors.Is(err, internalerr.ErrBadOutcome) {
		t.Errorf("Expected ErrBadOutcome, got %v", err)
	}
}

// failTagStore passes article inserts through and fails every tag upsert.
type failTagStore struct {
	*memstore.Store
}

func (s *failTagStore) UpsertPlaceTag(ctx context.Context, t store.PlaceTag) (int64, store.Outcome, error) {
	return 0, 0, errors.New("constraint violation")
}

// badOutcomeStore returns an out-of-contract outcome value.
type badOutcomeStore struct{}

func (badOutcomeStore) Close() error { return nil }
func (badOutcomeStore) Places(ctx context.Context, marketID int64) ([]store.Place, error) {
	return nil, nil
}
func (badOutcomeStore) UpsertPlace(ctx context.Context, marketID int64, name string) (int64, error) {
	return 0, nil
}
func (badOutcomeStore) UpsertArticle(ctx context.Context, a store.Article) (int64, store.Outcome, error) {
	return 1, store.Inserted, nil
}
func (badOutcomeStore) UpsertPlaceTag(ctx context.Context, t store.PlaceTag) (int64, store.Outcome, error) {
	return 1, store.Outcome(99), nil
}
func (badOutcomeStore) InsertPlaceMention(ctx context.Context, m store.PlaceMention) (int64, error) {
	return 1, nil
}

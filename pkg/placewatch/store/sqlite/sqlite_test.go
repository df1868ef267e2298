package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "placewatch.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPlacesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertPlace(ctx, 1, "Seattle")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertPlace(ctx, 1, "Portland"); err != nil {
		t.Fatal(err)
	}

	// Same name, same market: identified, not duplicated.
	again, err := s.UpsertPlace(ctx, 1, "Seattle")
	if err != nil {
		t.Fatal(err)
	}
	if again != id1 {
		t.Errorf("UpsertPlace returned %d, want existing id %d", again, id1)
	}

	places, err := s.Places(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 2 {
		t.Errorf("Places = %v, want 2 rows", places)
	}

	other, err := s.Places(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("Markets must be isolated, got %v", other)
	}
}

func TestUpsertArticleOutcome(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := store.Article{
		FeedID:    1,
		Headline:  "Seattle rain continues",
		URL:       "https://example.org/item-1",
		ContentID: "item-1",
		Date:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Summary:   "Portland braces for storms.",
	}

	id1, out, err := s.UpsertArticle(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if out != store.Inserted {
		t.Errorf("first upsert outcome = %v, want inserted", out)
	}

	id2, out, err := s.UpsertArticle(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if out != store.Existing || id2 != id1 {
		t.Errorf("second upsert = (%d, %v), want (%d, existing)", id2, out, id1)
	}
}

func TestUpsertPlaceTagOutcome(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	articleID, _, err := s.UpsertArticle(ctx, store.Article{
		FeedID:   1,
		Headline: "h",
		URL:      "https://example.org/a",
		Date:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	tag := store.PlaceTag{ArticleID: articleID, PlaceID: 10}

	id1, out, err := s.UpsertPlaceTag(ctx, tag)
	if err != nil {
		t.Fatal(err)
	}
	if out != store.Inserted {
		t.Errorf("first tag outcome = %v", out)
	}

	id2, out, err := s.UpsertPlaceTag(ctx, tag)
	if err != nil {
		t.Fatal(err)
	}
	if out != store.Existing || id2 != id1 {
		t.Errorf("duplicate tag = (%d, %v), want (%d, existing)", id2, out, id1)
	}
}

func TestInsertPlaceMention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	articleID, _, err := s.UpsertArticle(ctx, store.Article{
		FeedID:   1,
		Headline: "h",
		URL:      "https://example.org/a",
		Date:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	tagID, _, err := s.UpsertPlaceTag(ctx, store.PlaceTag{ArticleID: articleID, PlaceID: 10})
	if err != nil {
		t.Fatal(err)
	}

	id, err := s.InsertPlaceMention(ctx, store.PlaceMention{
		TagID:    tagID,
		Context:  "Seattle rain continues",
		Location: "title",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("expected generated mention_id")
	}

	// Foreign keys are on: a mention under a missing tag is rejected.
	if _, err := s.InsertPlaceMention(ctx, store.PlaceMention{
		TagID:    tagID + 999,
		Context:  "x",
		Location: "summary",
	}); err == nil {
		t.Error("mention without owning tag must fail")
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertPlace(ctx, 1, "Seattle"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Every operation on a dead handle must be distinguishable from an
	// ordinary per-row failure, so batch runners can abort the run.
	_, _, err := s.UpsertArticle(ctx, store.Article{
		FeedID:   3,
		Headline: "Seattle rain continues",
		URL:      "https://example.org/closed",
		Date:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("UpsertArticle on closed store = %v, want ErrStoreUnavailable", err)
	}

	if _, err := s.Places(ctx, 1); !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("Places on closed store = %v, want ErrStoreUnavailable", err)
	}

	_, _, err = s.UpsertPlaceTag(ctx, store.PlaceTag{ArticleID: 1, PlaceID: 1})
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("UpsertPlaceTag on closed store = %v, want ErrStoreUnavailable", err)
	}

	_, err = s.InsertPlaceMention(ctx, store.PlaceMention{TagID: 1, Context: "x", Location: "title"})
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("InsertPlaceMention on closed store = %v, want ErrStoreUnavailable", err)
	}
}

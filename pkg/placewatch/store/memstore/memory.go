// Package memstore is an in-memory implementation of store.Store for
// tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

type tagKey struct {
	articleID int64
	placeID   int64
}

// Store keeps all rows in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	nextArticleID int64
	nextTagID     int64
	nextMentionID int64
	nextPlaceID   int64

	places    map[int64][]store.Place // market id → places
	articles  map[int64]store.Article
	urlIndex  map[string]int64 // article natural key → article id
	tags      map[int64]store.PlaceTag
	tagIndex  map[tagKey]int64 // natural key → tag id
	mentions  map[int64]store.PlaceMention

	// FailNext makes the next mutating call return this error once.
	FailNext error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextArticleID: 1,
		nextTagID:     1,
		nextMentionID: 1,
		nextPlaceID:   1,
		places:        make(map[int64][]store.Place),
		articles:      make(map[int64]store.Article),
		urlIndex:      make(map[string]int64),
		tags:          make(map[int64]store.PlaceTag),
		tagIndex:      make(map[tagKey]int64),
		mentions:      make(map[int64]store.PlaceMention),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Places returns the places of one market.
func (s *Store) Places(ctx context.Context, marketID int64) ([]store.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Place, len(s.places[marketID]))
	copy(out, s.places[marketID])
	return out, nil
}

// UpsertPlace inserts a place if the name is absent for the market.
func (s *Store) UpsertPlace(ctx context.Context, marketID int64, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return 0, err
	}

	for _, p := range s.places[marketID] {
		if p.Name == name {
			return p.ID, nil
		}
	}
	id := s.nextPlaceID
	s.nextPlaceID++
	s.places[marketID] = append(s.places[marketID], store.Place{ID: id, Name: name})
	return id, nil
}

// UpsertArticle inserts an article row or identifies the existing one
// by url.
func (s *Store) UpsertArticle(ctx context.Context, a store.Article) (int64, store.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return 0, 0, err
	}

	if id, ok := s.urlIndex[a.URL]; ok {
		return id, store.Existing, nil
	}

	id := s.nextArticleID
	s.nextArticleID++
	s.articles[id] = a
	s.urlIndex[a.URL] = id
	return id, store.Inserted, nil
}

// UpsertPlaceTag implements the insert-or-identify primitive.
func (s *Store) UpsertPlaceTag(ctx context.Context, t store.PlaceTag) (int64, store.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return 0, 0, err
	}

	key := tagKey{articleID: t.ArticleID, placeID: t.PlaceID}
	if id, ok := s.tagIndex[key]; ok {
		return id, store.Existing, nil
	}

	id := s.nextTagID
	s.nextTagID++
	s.tags[id] = t
	s.tagIndex[key] = id
	return id, store.Inserted, nil
}

// InsertPlaceMention inserts a mention row under an existing tag.
func (s *Store) InsertPlaceMention(ctx context.Context, m store.PlaceMention) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return 0, err
	}

	if _, ok := s.tags[m.TagID]; !ok {
		return 0, fmt.Errorf("memstore: mention for unknown tag %d", m.TagID)
	}

	id := s.nextMentionID
	s.nextMentionID++
	s.mentions[id] = m
	return id, nil
}

// SeedPlaces replaces the places of one market.
func (s *Store) SeedPlaces(marketID int64, places []store.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.places[marketID] = append([]store.Place(nil), places...)
}

// Articles returns all article rows keyed by article_id.
func (s *Store) Articles() map[int64]store.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]store.Article, len(s.articles))
	for id, a := range s.articles {
		out[id] = a
	}
	return out
}

// Tags returns all tag rows keyed by tag_id.
func (s *Store) Tags() map[int64]store.PlaceTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]store.PlaceTag, len(s.tags))
	for id, t := range s.tags {
		out[id] = t
	}
	return out
}

// Mentions returns all mention rows keyed by mention_id.
func (s *Store) Mentions() map[int64]store.PlaceMention {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]store.PlaceMention, len(s.mentions))
	for id, m := range s.mentions {
		out[id] = m
	}
	return out
}

// takeFailure consumes a queued failure; callers hold the lock.
func (s *Store) takeFailure() error {
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return err
	}
	return nil
}

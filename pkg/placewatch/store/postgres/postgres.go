// Package postgres implements store.Store over PostgreSQL using a
// pgx connection pool. This is the production backend; the
// insert-or-identify primitives report their outcome from a CTE so
// the coordinator can branch without a second round-trip.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/puddle/v2"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

// pgStore implements the Store interface using PostgreSQL.
type pgStore struct {
	db *pgxpool.Pool
}

// Open connects a pool, verifies the connection, and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %v: %w", err, internalerr.ErrStoreUnavailable)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &pgStore{db: pool}, nil
}

// Close releases the pool.
func (s *pgStore) Close() error {
	s.db.Close()
	return nil
}

// classify marks errors that mean the pool or connection is unusable,
// so a batch runner can abort instead of failing every remaining
// entry. Server-side errors (constraint violations) pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	var connectErr *pgconn.ConnectError
	if errors.As(err, &netErr) || errors.As(err, &connectErr) ||
		errors.Is(err, puddle.ErrClosedPool) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%v: %w", err, internalerr.ErrStoreUnavailable)
	}
	return err
}

// Places returns the (place_name, place_id) pairs of one market.
func (s *pgStore) Places(ctx context.Context, marketID int64) ([]store.Place, error) {
	rows, err := s.db.Query(ctx,
		`SELECT place_id, place_name FROM places WHERE market_id = $1 ORDER BY place_id`, marketID)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", classify(err))
	}
	defer rows.Close()

	var places []store.Place
	for rows.Next() {
		var p store.Place
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan place: %w", classify(err))
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating places: %w", classify(err))
	}
	return places, nil
}

// UpsertPlace inserts a place if absent and returns its id.
func (s *pgStore) UpsertPlace(ctx context.Context, marketID int64, name string) (int64, error) {
	query := `
		WITH ins AS (
			INSERT INTO places (market_id, place_name)
			VALUES ($1, $2)
			ON CONFLICT (market_id, place_name) DO NOTHING
			RETURNING place_id
		)
		SELECT place_id FROM ins
		UNION ALL
		SELECT place_id FROM places WHERE market_id = $1 AND place_name = $2
		LIMIT 1
	`

	var id int64
	if err := s.db.QueryRow(ctx, query, marketID, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert place %q: %w", name, classify(err))
	}
	return id, nil
}

// UpsertArticle inserts an article row or identifies the existing one
// by url, reporting which happened.
func (s *pgStore) UpsertArticle(ctx context.Context, a store.Article) (int64, store.Outcome, error) {
	query := `
		WITH ins AS (
			INSERT INTO articles (feed_id, headline, url, content_id, date, summary)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
			ON CONFLICT (url) DO NOTHING
			RETURNING article_id
		)
		SELECT 'inserted' AS status, article_id FROM ins
		UNION ALL
		SELECT 'existing' AS status, article_id FROM articles WHERE url = $3
		LIMIT 1
	`

	var status string
	var id int64
	err := s.db.QueryRow(ctx, query,
		a.FeedID, a.Headline, a.URL, a.ContentID, a.Date, a.Summary,
	).Scan(&status, &id)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert article %q: %w", a.URL, classify(err))
	}
	return id, outcomeFromStatus(status), nil
}

// UpsertPlaceTag is the insert-or-identify primitive over the
// (article_id, place_id) natural key.
func (s *pgStore) UpsertPlaceTag(ctx context.Context, t store.PlaceTag) (int64, store.Outcome, error) {
	query := `
		WITH ins AS (
			INSERT INTO place_tags (article_id, place_id)
			VALUES ($1, $2)
			ON CONFLICT (article_id, place_id) DO NOTHING
			RETURNING tag_id
		)
		SELECT 'inserted' AS status, tag_id FROM ins
		UNION ALL
		SELECT 'existing' AS status, tag_id FROM place_tags
		WHERE article_id = $1 AND place_id = $2
		LIMIT 1
	`

	var status string
	var id int64
	err := s.db.QueryRow(ctx, query, t.ArticleID, t.PlaceID).Scan(&status, &id)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert tag (article %d, place %d): %w", t.ArticleID, t.PlaceID, classify(err))
	}
	return id, outcomeFromStatus(status), nil
}

// InsertPlaceMention inserts a mention row under an existing tag.
func (s *pgStore) InsertPlaceMention(ctx context.Context, m store.PlaceMention) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO place_mentions (tag_id, context, location)
		VALUES ($1, $2, $3)
		RETURNING mention_id
	`, m.TagID, m.Context, m.Location).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert mention (tag %d): %w", m.TagID, classify(err))
	}
	return id, nil
}

// outcomeFromStatus maps the CTE status column onto the enum. The
// query can only produce the two contract values; anything else would
// surface as ErrBadOutcome at the coordinator.
func outcomeFromStatus(status string) store.Outcome {
	switch status {
	case "inserted":
		return store.Inserted
	case "existing":
		return store.Existing
	}
	return store.Outcome(0)
}

// schema is the DDL for the placewatch tables.
const schema = `
CREATE TABLE IF NOT EXISTS places (
	place_id BIGSERIAL PRIMARY KEY,
	market_id BIGINT NOT NULL,
	place_name TEXT NOT NULL,
	UNIQUE (market_id, place_name)
);

CREATE TABLE IF NOT EXISTS articles (
	article_id BIGSERIAL PRIMARY KEY,
	feed_id BIGINT NOT NULL,
	headline TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	content_id TEXT,
	date DATE NOT NULL,
	summary TEXT
);

CREATE TABLE IF NOT EXISTS place_tags (
	tag_id BIGSERIAL PRIMARY KEY,
	article_id BIGINT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
	place_id BIGINT NOT NULL,
	UNIQUE (article_id, place_id)
);

CREATE TABLE IF NOT EXISTS place_mentions (
	mention_id BIGSERIAL PRIMARY KEY,
	tag_id BIGINT NOT NULL REFERENCES place_tags(tag_id) ON DELETE CASCADE,
	context TEXT NOT NULL,
	location TEXT NOT NULL
);
`

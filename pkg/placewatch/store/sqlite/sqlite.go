// Package sqlite implements store.Store over an embedded SQLite
// database, used for local runs and the bootstrap tool.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes
// the schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// classify marks errors that mean the handle itself is unusable, so a
// batch runner can abort instead of failing every remaining entry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%v: %w", err, internalerr.ErrStoreUnavailable)
	}
	return err
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS places (
	place_id INTEGER PRIMARY KEY AUTOINCREMENT,
	market_id INTEGER NOT NULL,
	place_name TEXT NOT NULL,
	UNIQUE(market_id, place_name)
);

CREATE TABLE IF NOT EXISTS articles (
	article_id INTEGER PRIMARY KEY AUTOINCREMENT,
	feed_id INTEGER NOT NULL,
	headline TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	content_id TEXT,
	date TEXT NOT NULL,
	summary TEXT
);

CREATE TABLE IF NOT EXISTS place_tags (
	tag_id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	place_id INTEGER NOT NULL,
	UNIQUE(article_id, place_id),
	FOREIGN KEY(article_id) REFERENCES articles(article_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS place_mentions (
	mention_id INTEGER PRIMARY KEY AUTOINCREMENT,
	tag_id INTEGER NOT NULL,
	context TEXT NOT NULL,
	location TEXT NOT NULL,
	FOREIGN KEY(tag_id) REFERENCES place_tags(tag_id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Places returns the (place_name, place_id) pairs of one market.
func (s *sqliteStore) Places(ctx context.Context, marketID int64) ([]store.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id, place_name FROM places WHERE market_id = ? ORDER BY place_id`, marketID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var places []store.Place
	for rows.Next() {
		var p store.Place
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, classify(err)
		}
		places = append(places, p)
	}
	return places, classify(rows.Err())
}

// UpsertPlace inserts a place if absent and returns its id.
func (s *sqliteStore) UpsertPlace(ctx context.Context, marketID int64, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO places (market_id, place_name) VALUES (?, ?)
ON CONFLICT(market_id, place_name) DO NOTHING
RETURNING place_id;
`, marketID, name).Scan(&id)
	if err == sql.ErrNoRows {
		err = s.db.QueryRowContext(ctx,
			`SELECT place_id FROM places WHERE market_id = ? AND place_name = ?`,
			marketID, name).Scan(&id)
	}
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// UpsertArticle inserts an article row or identifies the existing one
// by url.
func (s *sqliteStore) UpsertArticle(ctx context.Context, a store.Article) (int64, store.Outcome, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO articles (feed_id, headline, url, content_id, date, summary)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO NOTHING
RETURNING article_id;
`,
		a.FeedID,
		a.Headline,
		a.URL,
		nullString(a.ContentID),
		a.Date.Format(time.DateOnly),
		a.Summary,
	).Scan(&id)
	if err == sql.ErrNoRows {
		if err := s.db.QueryRowContext(ctx,
			`SELECT article_id FROM articles WHERE url = ?`, a.URL).Scan(&id); err != nil {
			return 0, 0, classify(err)
		}
		return id, store.Existing, nil
	}
	if err != nil {
		return 0, 0, classify(err)
	}
	return id, store.Inserted, nil
}

// UpsertPlaceTag is the insert-or-identify primitive over the
// (article_id, place_id) natural key.
func (s *sqliteStore) UpsertPlaceTag(ctx context.Context, t store.PlaceTag) (int64, store.Outcome, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO place_tags (article_id, place_id) VALUES (?, ?)
ON CONFLICT(article_id, place_id) DO NOTHING
RETURNING tag_id;
`, t.ArticleID, t.PlaceID).Scan(&id)
	if err == sql.ErrNoRows {
		if err := s.db.QueryRowContext(ctx,
			`SELECT tag_id FROM place_tags WHERE article_id = ? AND place_id = ?`,
			t.ArticleID, t.PlaceID).Scan(&id); err != nil {
			return 0, 0, classify(err)
		}
		return id, store.Existing, nil
	}
	if err != nil {
		return 0, 0, classify(err)
	}
	return id, store.Inserted, nil
}

// InsertPlaceMention inserts a mention row under an existing tag.
func (s *sqliteStore) InsertPlaceMention(ctx context.Context, m store.PlaceMention) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO place_mentions (tag_id, context, location)
VALUES (?, ?, ?)
RETURNING mention_id;
`, m.TagID, m.Context, m.Location).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert mention: %w", classify(err))
	}
	return id, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

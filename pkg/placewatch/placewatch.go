// Package placewatch detects mentions of known place names in news
// article text and persists normalized article, tag, and mention
// records for media monitoring.
package placewatch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
	"github.com/cognicore/placewatch/pkg/placewatch/gazetteer"
	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/persist"
	"github.com/cognicore/placewatch/pkg/placewatch/sentence"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
)

// Watcher is the main extraction-and-persistence facade.
type Watcher struct {
	store       store.Store
	splitter    sentence.Splitter
	coordinator *persist.Coordinator
	log         zerolog.Logger
	entropy     *ulid.MonotonicEntropy
}

// Options configures a Watcher instance.
type Options struct {
	Store    store.Store
	Splitter sentence.Splitter
	Logger   zerolog.Logger
}

// New creates a Watcher with the given dependencies. A nil splitter
// defaults to the English rule-based one.
func New(opts Options) *Watcher {
	splitter := opts.Splitter
	if splitter == nil {
		splitter = sentence.NewEnglishSplitter()
	}
	return &Watcher{
		store:       opts.Store,
		splitter:    splitter,
		coordinator: persist.NewCoordinator(opts.Store),
		log:         opts.Logger,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Watcher.
func (w *Watcher) Close() error {
	return w.store.Close()
}

// BuildIndex loads one market's places and builds its gazetteer
// index. No extraction proceeds without a valid index: an empty place
// list surfaces immediately as a configuration error.
func (w *Watcher) BuildIndex(ctx context.Context, marketID int64) (*gazetteer.Index, error) {
	places, err := w.store.Places(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("load places for market %d: %w", marketID, err)
	}

	entries := make([]gazetteer.Place, len(places))
	for i, p := range places {
		entries[i] = gazetteer.Place{ID: p.ID, Name: p.Name}
	}

	ix, err := gazetteer.NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("market %d: %w", marketID, err)
	}

	w.log.Debug().Int64("market_id", marketID).Int("places", ix.Len()).Msg("gazetteer index built")
	return ix, nil
}

// EntryFailure records one entry that could not be processed.
type EntryFailure struct {
	Link string
	Err  error
}

// Report carries the aggregate counts of one processing run.
type Report struct {
	RunID     string
	Processed int // bundles persisted
	Skipped   int // entries with no place mention
	Failures  []EntryFailure
}

// Failed returns the number of failed entries.
func (r *Report) Failed() int { return len(r.Failures) }

// ProcessEntries runs each entry through extraction and insertion,
// strictly one at a time: the tag-existence signal the coordinator
// branches on is only observed once per tag, so two entries that could
// map to the same article must never interleave.
//
// Per-entry failures are logged and recorded on the report; the batch
// continues. The run aborts early only when the context is done or
// the store reports itself unusable.
func (w *Watcher) ProcessEntries(ctx context.Context, ix *gazetteer.Index, feedID int64, entries []extract.Entry) (Report, error) {
	report := Report{RunID: ulid.MustNew(ulid.Now(), w.entropy).String()}
	pipeline := extract.NewPipeline(ix, w.splitter)

	log := w.log.With().Str("run_id", report.RunID).Int64("feed_id", feedID).Logger()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		bundle, ok, err := pipeline.Extract(feedID, e)
		if err != nil {
			log.Warn().Err(err).Str("link", e.Link).Msg("entry skipped")
			report.Failures = append(report.Failures, EntryFailure{Link: e.Link, Err: err})
			continue
		}
		if !ok {
			report.Skipped++
			continue
		}

		if err := w.coordinator.InsertBundle(ctx, bundle); err != nil {
			if errors.Is(err, internalerr.ErrStoreUnavailable) {
				return report, fmt.Errorf("store unusable, aborting run: %w", err)
			}
			log.Error().Err(err).Str("link", e.Link).Msg("insert failed")
			report.Failures = append(report.Failures, EntryFailure{Link: e.Link, Err: err})
			continue
		}

		report.Processed++
	}

	log.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Msg("run complete")

	return report, nil
}

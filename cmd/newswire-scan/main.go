// newswire-scan queries the article search API for every place in a
// market over a date range and records the mentions found. Jobs are
// staged through a Redis queue, so a rate-limited run resumes from the
// leftover jobs the next time it starts.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cognicore/placewatch/internal/newswire"
	"github.com/cognicore/placewatch/pkg/placewatch"
	"github.com/cognicore/placewatch/pkg/placewatch/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (required)")
		marketID   = flag.Int64("market", 0, "Market id to scan (required)")
		feedID     = flag.Int64("feed", 0, "Feed id to record articles under (required)")
		days       = flag.Int("days", 1, "How many days back to search")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}
	if *marketID == 0 {
		log.Fatal("--market required")
	}
	if *feedID == 0 {
		log.Fatal("--feed required")
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if err := run(*configPath, *marketID, *feedID, *days, logger); err != nil {
		logger.Fatal().Err(err).Msg("Scan failed")
	}
}

func run(configPath string, marketID, feedID int64, days int, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	st, err := placewatch.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}

	w := placewatch.New(placewatch.Options{Store: st, Logger: logger})
	defer w.Close()

	ix, err := w.BuildIndex(ctx, marketID)
	if err != nil {
		return err
	}

	places, err := st.Places(ctx, marketID)
	if err != nil {
		return err
	}
	byID := make(map[int64]string, len(places))
	for _, p := range places {
		byID[p.ID] = p.Name
	}

	client, err := newswire.NewClient(cfg.Newswire.Endpoint, cfg.Newswire.APIKeys, nil)
	if err != nil {
		return err
	}
	client.PageSize = cfg.Newswire.PageSize

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queue := newswire.NewQueue(rdb, cfg.Redis.Queue)

	// Leftover jobs from a rate-limited run are already queued; only
	// top up with the current window.
	pending, err := queue.Len(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		logger.Info().Int64("jobs", pending).Msg("Resuming leftover jobs")
	}

	end := time.Now().UTC()
	begin := end.AddDate(0, 0, -days)
	if err := queue.Push(ctx, newswire.JobsForPlaces(byID, begin, end)...); err != nil {
		return err
	}

	scanner := newswire.NewScanner(client, queue, logger)
	entries, err := scanner.Drain(ctx)
	if err != nil && !errors.Is(err, newswire.ErrRateLimited) {
		return err
	}
	if errors.Is(err, newswire.ErrRateLimited) {
		logger.Warn().Msg("Rate limited, remaining jobs deferred to next run")
	}

	report, err := w.ProcessEntries(ctx, ix, feedID, entries)
	if err != nil {
		return err
	}
	logger.Info().Str("run", report.RunID).
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Msg("Newswire scan complete")

	return nil
}

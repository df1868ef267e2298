// rss-scan fetches every configured feed for a market and records the
// place mentions found in the new entries.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/cognicore/placewatch/internal/feed"
	"github.com/cognicore/placewatch/pkg/placewatch"
	"github.com/cognicore/placewatch/pkg/placewatch/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (required)")
		marketID   = flag.Int64("market", 0, "Market id to scan (required)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}
	if *marketID == 0 {
		log.Fatal("--market required")
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if err := run(*configPath, *marketID, logger); err != nil {
		logger.Fatal().Err(err).Msg("Scan failed")
	}
}

func run(configPath string, marketID int64, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	market, err := cfg.Market(marketID)
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

	ix, err := w.BuildIndex(ctx, market.ID)
	if err != nil {
		return err
	}
	logger.Info().Int("places", ix.Len()).Int64("market", market.ID).
		Msg("Place index ready")

	fetcher := feed.NewFetcher(nil, logger)

	for _, f := range market.Feeds {
		entries, err := fetcher.Fetch(ctx, f.URL)
		if err != nil {
			// One unreachable feed should not stop the others.
			logger.Error().Str("feed", f.Name).Err(err).Msg("Feed fetch failed")
			continue
		}

		report, err := w.ProcessEntries(ctx, ix, f.ID, entries)
		if err != nil {
			return err
		}
		logger.Info().Str("feed", f.Name).Str("run", report.RunID).
			Int("processed", report.Processed).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed()).
			Msg("Feed scan complete")
	}

	return nil
}

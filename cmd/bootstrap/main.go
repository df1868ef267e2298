// bootstrap creates the storage schema and seeds the place table for
// each configured market.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/cognicore/placewatch/pkg/placewatch"
	"github.com/cognicore/placewatch/pkg/placewatch/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (required)")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("Bootstrap failed")
	}
}

func run(configPath string, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Opening the store creates the schema when it does not exist yet.
	st, err := placewatch.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, m := range cfg.Markets {
		seeded := 0
		for _, name := range m.Places {
			if _, err := st.UpsertPlace(ctx, m.ID, name); err != nil {
				return err
			}
			seeded++
		}
		logger.Info().Int64("market", m.ID).Str("name", m.Name).
			Int("places", seeded).Msg("Market seeded")
	}

	return nil
}

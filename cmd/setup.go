package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/config"
	"github.com/kozaktomas/facebot/internal/database/postgres"
	"github.com/kozaktomas/facebot/internal/encoder"
	"github.com/kozaktomas/facebot/internal/recognizer"
	"github.com/kozaktomas/facebot/internal/service"
	"github.com/kozaktomas/facebot/internal/vision"
)

// buildService loads the config, connects to PostgreSQL and assembles the
// recognition service shared by every subcommand.
func buildService(ctx context.Context) (*config.Config, *postgres.Store, *service.Service, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	store, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}

	tz, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Stats.Timezone).Msg("unknown timezone, falling back to UTC")
		tz = time.UTC
	}

	provider, err := vision.FromConfig(ctx, &cfg.Vision)
	if err != nil {
		if !errors.Is(err, vision.ErrNotConfigured) {
			_ = store.Close()
			return nil, nil, nil, err
		}
		provider = nil
		log.Info().Msg("vision provider not configured, note suggestions disabled")
	}

	opts := recognizer.Options{
		DistThreshold: cfg.Classifier.DistThreshold,
		ProbThreshold: cfg.Classifier.ProbThreshold,
	}
	svc := service.New(store, encoder.NewClient(cfg.Encoder.URL, cfg.Encoder.Dim), provider, opts, tz)
	return cfg, store, svc, nil
}

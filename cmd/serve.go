package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facebot/internal/bot"
	"github.com/kozaktomas/facebot/internal/botstate"
	"github.com/kozaktomas/facebot/internal/config"
	"github.com/kozaktomas/facebot/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Telegram bot and the ops API",
	Long: `Start the facebot service: the Telegram bot polls for commands and
photos, the ops HTTP API serves health, stats and model metadata.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, store, svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cfg.Telegram.Token == "" {
		return errors.New("TELEGRAM_TOKEN environment variable is required")
	}

	states, err := newStateStore(cfg)
	if err != nil {
		return err
	}

	b, err := bot.New(&cfg.Telegram, svc, states, store)
	if err != nil {
		return err
	}
	if err := bot.ImportRootAdmins(ctx, store, cfg.Telegram.RootAdmins); err != nil {
		return err
	}

	server := web.NewServer(&cfg.Web, svc)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	go func() { errCh <- b.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			cancel()
			return err
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown failed")
	}
	return nil
}

// newStateStore picks the command-state backend: Redis when configured, an
// in-process map otherwise.
func newStateStore(cfg *config.Config) (botstate.Store, error) {
	ttl := time.Duration(cfg.Redis.StateTTL) * time.Second
	if cfg.Redis.URL == "" {
		return botstate.NewMemoryStore(ttl), nil
	}
	states, err := botstate.NewRedisStore(cfg.Redis.URL, ttl)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("command state persisted in redis")
	return states, nil
}

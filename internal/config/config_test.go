package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLASSIFIER_DIST_THRESHOLD", "")
	t.Setenv("CLASSIFIER_PROB_THRESHOLD", "")
	t.Setenv("ENCODER_DIM", "")
	t.Setenv("STATS_TIMEZONE", "")

	cfg := Load()

	if cfg.Classifier.DistThreshold != 0.6 {
		t.Errorf("expected default dist threshold 0.6, got %f", cfg.Classifier.DistThreshold)
	}
	if cfg.Classifier.ProbThreshold != 0.0 {
		t.Errorf("expected default prob threshold 0.0, got %f", cfg.Classifier.ProbThreshold)
	}
	if cfg.Encoder.Dim != 128 {
		t.Errorf("expected default encoder dim 128, got %d", cfg.Encoder.Dim)
	}
	if cfg.Stats.Timezone != "Asia/Hong_Kong" {
		t.Errorf("expected default stats timezone Asia/Hong_Kong, got %s", cfg.Stats.Timezone)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLASSIFIER_DIST_THRESHOLD", "0.45")
	t.Setenv("PUBLIC_USER", "true")
	t.Setenv("ROOT_ADMINS", "Alice, @bob,")

	cfg := Load()

	if cfg.Classifier.DistThreshold != 0.45 {
		t.Errorf("expected dist threshold 0.45, got %f", cfg.Classifier.DistThreshold)
	}
	if !cfg.Telegram.PublicUser {
		t.Error("expected public user mode enabled")
	}
	if len(cfg.Telegram.RootAdmins) != 2 {
		t.Fatalf("expected 2 root admins, got %d", len(cfg.Telegram.RootAdmins))
	}
	if cfg.Telegram.RootAdmins[0] != "@alice" {
		t.Errorf("expected '@alice', got '%s'", cfg.Telegram.RootAdmins[0])
	}
	if cfg.Telegram.RootAdmins[1] != "@bob" {
		t.Errorf("expected '@bob', got '%s'", cfg.Telegram.RootAdmins[1])
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected fallback to default 25, got %d", cfg.Database.MaxOpenConns)
	}
}

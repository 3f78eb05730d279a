package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed classifier.yaml
var classifierYAML []byte

type Config struct {
	Telegram   TelegramConfig
	Encoder    EncoderConfig
	Classifier ClassifierConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Vision     VisionConfig
	Web        WebConfig
	Stats      StatsConfig
}

type TelegramConfig struct {
	Token      string
	RootAdmins []string // usernames imported as root_admin on startup
	PublicUser bool     // when true, unknown senders get the user role
}

type EncoderConfig struct {
	URL string // face encoder sidecar, defaults to http://localhost:8000
	Dim int    // encoding dimension, defaults to 128
}

// ClassifierConfig holds prediction thresholds. Defaults come from the
// embedded classifier.yaml and can be overridden per-deployment.
type ClassifierConfig struct {
	DistThreshold float64 `yaml:"dist_threshold"` // max nearest-neighbor distance for a confident match
	ProbThreshold float64 `yaml:"prob_threshold"` // min vote share for a confident match
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	URL      string // optional; empty keeps command state in memory
	StateTTL int    // command state TTL in seconds (default 1800)
}

type VisionConfig struct {
	Provider  string // "openai" or "gemini"; empty disables /suggestnote
	OpenAIKey string
	GeminiKey string
}

type WebConfig struct {
	Host string
	Port int
}

type StatsConfig struct {
	Timezone string // timezone for per-day command counters
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool treats "true", "1" and "yes" (case-insensitive) as true.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// envString returns the env value or a default when unset.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// splitUsernames parses a comma-separated username list, lowercases each
// entry and ensures the @ prefix.
func splitUsernames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		out = append(out, name)
	}
	return out
}

func Load() *Config {
	var classifier ClassifierConfig
	if err := yaml.Unmarshal(classifierYAML, &classifier); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded classifier.yaml: " + err.Error())
	}
	classifier.DistThreshold = envFloat("CLASSIFIER_DIST_THRESHOLD", classifier.DistThreshold)
	classifier.ProbThreshold = envFloat("CLASSIFIER_PROB_THRESHOLD", classifier.ProbThreshold)

	return &Config{
		Telegram: TelegramConfig{
			Token:      os.Getenv("TELEGRAM_TOKEN"),
			RootAdmins: splitUsernames(os.Getenv("ROOT_ADMINS")),
			PublicUser: envBool("PUBLIC_USER"),
		},
		Encoder: EncoderConfig{
			URL: os.Getenv("ENCODER_URL"),
			Dim: envInt("ENCODER_DIM", 128),
		},
		Classifier: classifier,
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			StateTTL: envInt("STATE_TTL_SECONDS", 1800),
		},
		Vision: VisionConfig{
			Provider:  strings.ToLower(os.Getenv("VISION_PROVIDER")),
			OpenAIKey: os.Getenv("OPENAI_TOKEN"),
			GeminiKey: os.Getenv("GEMINI_API_KEY"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
		Stats: StatsConfig{
			Timezone: envString("STATS_TIMEZONE", "Asia/Hong_Kong"),
		},
	}
}

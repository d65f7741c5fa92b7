package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries all process-level settings, resolved from the environment.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string

	DBPath   string
	HTTPAddr string

	OTLPEndpoint string
	ServiceName  string

	MinRequired int
	MaxResults  int
	MaxAttempts int
}

// Load reads configuration from the environment, applying defaults for
// everything except the provider credentials.
func Load() (Config, error) {
	cfg := Config{
		AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		DBPath:          envOr("COMPIQ_DB_PATH", "compiq.db"),
		HTTPAddr:        envOr("COMPIQ_HTTP_ADDR", ":8080"),
		OTLPEndpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:     envOr("OTEL_SERVICE_NAME", "compiq"),
		MinRequired:     envOrInt("COMPIQ_MIN_REQUIRED", 3),
		MaxResults:      envOrInt("COMPIQ_MAX_RESULTS", 10),
		MaxAttempts:     envOrInt("COMPIQ_MAX_ATTEMPTS", 3),
	}
	if cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

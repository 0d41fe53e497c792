package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sequencer.
type Config struct {
	// ArtifactsDir is the base directory for manifests and json-sequences on disk.
	// Empty means "no artifacts directory", which makes filesystem reads fall
	// back to the embedded resources.
	ArtifactsDir string
	// BaseURL enables the HTTP manifest tier when set.
	BaseURL string
	// ForceEnv overrides environment detection: "browser", "node" or "embedded".
	ForceEnv string

	DisableJSONCatalogFallback bool
	ValidatePayloads           bool
	WatchCatalogs              bool
	ReplayTopics               []string

	HTTPAddr string
	// WSOriginPatterns are host patterns, in path.Match syntax, allowed to open
	// topic streams from another origin. Same-host requests are always allowed.
	WSOriginPatterns []string
	LogFormat        string
	LogLevel         string

	TracingEnabled     bool
	TracingServiceName string
	TracingZipkinURL   string
}

// New loads configuration from the environment, reading a .env file first if present.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		ArtifactsDir:               os.Getenv("SEQUENCER_ARTIFACTS_DIR"),
		BaseURL:                    strings.TrimRight(os.Getenv("SEQUENCER_BASE_URL"), "/"),
		ForceEnv:                   strings.ToLower(strings.TrimSpace(os.Getenv("SEQUENCER_FORCE_ENV"))),
		DisableJSONCatalogFallback: envBool("SEQUENCER_DISABLE_JSON_CATALOG_FALLBACK", false),
		ValidatePayloads:           envBool("SEQUENCER_VALIDATE_PAYLOADS", false),
		WatchCatalogs:              envBool("SEQUENCER_WATCH_CATALOGS", false),
		ReplayTopics:               envList("SEQUENCER_REPLAY_TOPICS"),
		HTTPAddr:                   envOr("SEQUENCER_HTTP_ADDR", ":8085"),
		WSOriginPatterns:           envList("SEQUENCER_WS_ORIGINS"),
		LogFormat:                  envOr("LOG_FORMAT", "text"),
		LogLevel:                   envOr("LOG_LEVEL", "info"),
		TracingEnabled:             envBool("SEQUENCER_TRACING_ENABLED", false),
		TracingServiceName:         envOr("SEQUENCER_TRACING_SERVICE_NAME", "sequencer"),
		TracingZipkinURL:           envOr("SEQUENCER_TRACING_ZIPKIN_URL", "http://localhost:9411/api/v2/spans"),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

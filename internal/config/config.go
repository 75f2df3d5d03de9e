// Package config provides environment-driven configuration for the
// sideseat observability backend.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/sideseat/sideseat/internal/logger"
)

// Config holds immutable configuration for the ingest and query paths.
type Config struct {
	// Store connection settings. The columnar store (DuckDB in production)
	// and the relational metadata store are external collaborators; this
	// only carries what the in-repo reference engine needs to connect.
	StoreDSN string

	// RedisAddr configures the Streams pub/sub bridge. Empty disables it.
	RedisAddr     string
	RedisPassword string

	// FilesMinSizeBytes / FilesMaxSizeBytes bound C1 extraction (§4.1).
	FilesMinSizeBytes int
	FilesMaxSizeBytes int

	// BackpressureRetryAfterSecs is returned in Retry-After on 503 (§5).
	BackpressureRetryAfterSecs int

	// QueryMaxSpansPerTrace bounds get_trace/list_spans result sizes (§5).
	QueryMaxSpansPerTrace int
	// QueryMaxFilterSuggestions bounds filter-options cardinality (§5).
	QueryMaxFilterSuggestions int
	// QueryMaxTopStats bounds stats breakdown lists (§5).
	QueryMaxTopStats int

	// IncludeNonGenAIDefault is the default value of the list_traces
	// include_nongenai flag when the caller omits it (§4.8).
	IncludeNonGenAIDefault bool

	// SelfTraceEnabled turns on the server's own OTel self-instrumentation
	// of the ingest pipeline (internal/telemetry), separate from the OTLP
	// payloads the server receives from other applications.
	SelfTraceEnabled bool

	// Logger is used by every package that accepts one.
	Logger logger.Logger
}

// FromEnv loads configuration from environment variables with defaults.
//
// Supported environment variables:
//   - SIDESEAT_STORE_DSN: DSN for the reference columnar/relational store
//   - SIDESEAT_REDIS_ADDR: Redis address for the pub/sub bridge
//   - SIDESEAT_REDIS_PASSWORD: Redis password
//   - SIDESEAT_FILES_MIN_SIZE_BYTES: minimum decoded size to extract (default 1024)
//   - SIDESEAT_FILES_MAX_SIZE_BYTES: maximum decoded size to extract (default 50MB)
//   - SIDESEAT_BACKPRESSURE_RETRY_AFTER_SECS: Retry-After seconds on 503 (default 5)
//   - SIDESEAT_QUERY_MAX_SPANS_PER_TRACE: row cap for a single trace (default 10000)
//   - SIDESEAT_QUERY_MAX_FILTER_SUGGESTIONS: row cap for filter-options (default 200)
//   - SIDESEAT_QUERY_MAX_TOP_STATS: row cap for stats breakdowns (default 25)
//   - SIDESEAT_SELF_TRACE_ENABLED: emit the server's own ingest spans to stdout (default false)
func FromEnv() *Config {
	return &Config{
		StoreDSN:                   getEnvString("SIDESEAT_STORE_DSN", "file::memory:?cache=shared"),
		RedisAddr:                  getEnvString("SIDESEAT_REDIS_ADDR", ""),
		RedisPassword:              getEnvString("SIDESEAT_REDIS_PASSWORD", ""),
		FilesMinSizeBytes:          getEnvInt("SIDESEAT_FILES_MIN_SIZE_BYTES", 1024),
		FilesMaxSizeBytes:          getEnvInt("SIDESEAT_FILES_MAX_SIZE_BYTES", 50*1024*1024),
		BackpressureRetryAfterSecs: getEnvInt("SIDESEAT_BACKPRESSURE_RETRY_AFTER_SECS", 5),
		QueryMaxSpansPerTrace:      getEnvInt("SIDESEAT_QUERY_MAX_SPANS_PER_TRACE", 10000),
		QueryMaxFilterSuggestions:  getEnvInt("SIDESEAT_QUERY_MAX_FILTER_SUGGESTIONS", 200),
		QueryMaxTopStats:           getEnvInt("SIDESEAT_QUERY_MAX_TOP_STATS", 25),
		IncludeNonGenAIDefault:     getEnvBool("SIDESEAT_INCLUDE_NONGENAI_DEFAULT", false),
		SelfTraceEnabled:           getEnvBool("SIDESEAT_SELF_TRACE_ENABLED", false),
		Logger:                     logger.NewDefaultLogger("sideseat"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(strings.TrimSpace(value)) == "true"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

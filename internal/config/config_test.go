package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SIDESEAT_STORE_DSN",
		"SIDESEAT_REDIS_ADDR",
		"SIDESEAT_REDIS_PASSWORD",
		"SIDESEAT_FILES_MIN_SIZE_BYTES",
		"SIDESEAT_FILES_MAX_SIZE_BYTES",
		"SIDESEAT_BACKPRESSURE_RETRY_AFTER_SECS",
		"SIDESEAT_QUERY_MAX_SPANS_PER_TRACE",
		"SIDESEAT_QUERY_MAX_FILTER_SUGGESTIONS",
		"SIDESEAT_QUERY_MAX_TOP_STATS",
		"SIDESEAT_INCLUDE_NONGENAI_DEFAULT",
		"SIDESEAT_SELF_TRACE_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, "file::memory:?cache=shared", cfg.StoreDSN)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, 1024, cfg.FilesMinSizeBytes)
	assert.Equal(t, 50*1024*1024, cfg.FilesMaxSizeBytes)
	assert.Equal(t, 5, cfg.BackpressureRetryAfterSecs)
	assert.Equal(t, 10000, cfg.QueryMaxSpansPerTrace)
	assert.Equal(t, 200, cfg.QueryMaxFilterSuggestions)
	assert.Equal(t, 25, cfg.QueryMaxTopStats)
	assert.False(t, cfg.IncludeNonGenAIDefault)
	assert.False(t, cfg.SelfTraceEnabled)
}

func TestFromEnv_LoadsEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIDESEAT_STORE_DSN", "postgres://example")
	t.Setenv("SIDESEAT_FILES_MIN_SIZE_BYTES", "2048")
	t.Setenv("SIDESEAT_QUERY_MAX_TOP_STATS", "50")
	t.Setenv("SIDESEAT_INCLUDE_NONGENAI_DEFAULT", "true")

	cfg := FromEnv()

	assert.Equal(t, "postgres://example", cfg.StoreDSN)
	assert.Equal(t, 2048, cfg.FilesMinSizeBytes)
	assert.Equal(t, 50, cfg.QueryMaxTopStats)
	assert.True(t, cfg.IncludeNonGenAIDefault)
}

func TestFromEnv_TrimsWhitespace(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIDESEAT_STORE_DSN", "  dsn-with-spaces  ")

	cfg := FromEnv()

	assert.Equal(t, "dsn-with-spaces", cfg.StoreDSN)
}

func TestFromEnv_InvalidIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIDESEAT_QUERY_MAX_TOP_STATS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, 25, cfg.QueryMaxTopStats)
}

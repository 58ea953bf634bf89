package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/maktaba_test")

	cfg := LoadConfig()

	require.Equal(t, "postgres://localhost/maktaba_test", cfg.DatabaseURL)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "local", cfg.StorageType)
	require.Equal(t, 768, cfg.EmbedDim)
	require.Equal(t, 500, cfg.ChunkMaxTokens)
	require.Equal(t, 50, cfg.ChunkOverlapTokens)
	require.Equal(t, 5, cfg.IngestBatchSize)
	require.Equal(t, 15, cfg.HeartbeatIntervalSeconds)
	require.Equal(t, 10, cfg.StallTimeoutMinutes)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/maktaba_test")
	t.Setenv("PORT", "9999")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("CHUNK_MAX_TOKENS", "256")

	cfg := LoadConfig()

	require.Equal(t, "9999", cfg.Port)
	require.Equal(t, "s3", cfg.StorageType)
	require.Equal(t, 256, cfg.ChunkMaxTokens)
}

func TestGetEnvIntBadValue(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	require.Equal(t, 42, getEnvInt("SOME_INT", 42))
}

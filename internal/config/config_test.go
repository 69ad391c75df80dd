package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 50, cfg.Session.RetainRows)
	assert.Equal(t, 1000, cfg.Ingestion.PageSize)
	assert.Equal(t, 100, cfg.Ingestion.SubBatchSize)
	assert.Equal(t, 20, cfg.Enrichment.MetadataBatchSize)
	assert.Equal(t, 10*time.Second, cfg.Enrichment.PriceBucket)
	assert.Equal(t, 5*time.Minute, cfg.Enrichment.PriceWindow)
	assert.InDelta(t, 1e9, cfg.Enrichment.AssumedTotalSupply, 0)
	assert.Equal(t, []string{"bot1", "bot2", "bot3"}, cfg.Coordination.SlotIDs)
	assert.Equal(t, "memory", cfg.Coordination.Backend)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
session:
  timeout: 2m
  max_transfers: 250
coordination:
  backend: postgres
  slot_ids: [alpha, beta]
storage:
  postgres_dsn: postgres://u:p@localhost:5432/lab
slots:
  - id: alpha
    solanafm_key: fm-alpha
    birdeye_key: be-alpha
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 250, cfg.Session.MaxTransfers)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Coordination.SlotIDs)
	assert.Equal(t, path, cfg.Server.ConfigPath)

	cred := cfg.SlotCredential("alpha")
	assert.Equal(t, "fm-alpha", cred.SolanaFMKey)
	assert.Equal(t, "be-alpha", cred.BirdeyeKey)

	missing := cfg.SlotCredential("beta")
	assert.Equal(t, "beta", missing.ID)
	assert.Empty(t, missing.SolanaFMKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WALLETLAB_SESSION_RETAIN_ROWS", "75")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Session.RetainRows)
}

func TestLoad_EnvOverrideWithoutFileKey(t *testing.T) {
	t.Setenv("WALLETLAB_COORDINATION_BACKEND", "postgres")
	t.Setenv("WALLETLAB_STORAGE_POSTGRES_DSN", "postgres://lab@localhost/lab")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Coordination.Backend)
	assert.Equal(t, "postgres://lab@localhost/lab", cfg.Storage.PostgresDSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "coordination:\n  backend: etcd\n"},
		{"postgres without dsn", "coordination:\n  backend: postgres\n"},
		{"redis without addr", "coordination:\n  backend: redis\n"},
		{"bad log level", "logging:\n  level: trace\n"},
		{"zero retain", "session:\n  retain_rows: 0\n"},
		{"cache without clickhouse", "enrichment:\n  price_cache_enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

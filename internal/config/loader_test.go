package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[Database]
Path = "~/safe-test/safe.db"

[Security]
Seed = "from-file"

[Service]
ChainTimeout = "3s"
LockStripes = 8

[Log]
Level = "debug"
[Log.Subsystems]
repository = "warn"

[[Chains]]
ChainID = "euphoria-2"
Prefix = "aura"
Denom = "ueaura"
Symbol = "EAURA"
CoinDecimals = 6
LCD = "http://localhost:1317"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Security.Seed)
	assert.Equal(t, 3*time.Second, cfg.Service.ChainTimeout)
	assert.Equal(t, 8, cfg.Service.LockStripes)
	// untouched keys keep their defaults
	assert.Equal(t, 1024, cfg.Service.RosterCacheSize)
	assert.EqualValues(t, 3, cfg.Reconcile.Attempts)
	assert.Equal(t, "warn", cfg.Log.Subsystems["repository"])

	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, "euphoria-2", cfg.Chains[0].ChainID)
	assert.EqualValues(t, 6, cfg.Chains[0].CoinDecimals)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "safe-test", "safe.db"), cfg.DBPath())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("SAFE_SEED", "from-env")
	t.Setenv("SAFE_CHAIN_TIMEOUT", "250ms")
	t.Setenv("SAFE_DB_PATH", "/tmp/override.db")
	t.Setenv("SAFE_RECONCILE_INTERVAL", "1m")

	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Security.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Service.ChainTimeout)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath())
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, "aura-testnet-2", cfg.Chains[0].ChainID)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Chains = append(cfg.Chains, cfg.Chains[0])
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Service.ChainTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Chains[0].LCD = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Reconcile.Attempts = 0
	assert.Error(t, cfg.Validate())
}

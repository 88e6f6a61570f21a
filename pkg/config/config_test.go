package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "file", cfg.Storage.Kind)
	assert.Equal(t, "req-", cfg.Naming.AcquirePrefix)
	assert.Equal(t, "ret-", cfg.Naming.ReturnPrefix)
	assert.Equal(t, 3600, cfg.Request.DefaultTimeoutSeconds)
}

func TestLoadMergesExplicitFileOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostbroker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  region: eu-west-1
storage:
  kind: kv
  kv_path: /var/lib/hostbroker/store.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Provider.Region)
	assert.Equal(t, "kv", cfg.Storage.Kind)
	assert.Equal(t, "/var/lib/hostbroker/store.db", cfg.Storage.KVPath)
	// Fields untouched by the file keep their default value.
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
}

func TestLoadMissingExplicitFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Storage.Kind, cfg.Storage.Kind)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("HOSTBROKER_AWS_REGION", "ap-southeast-2")
	t.Setenv("HOSTBROKER_REQUEST_MAX_MACHINES_PER_REQUEST", "250")

	dir := t.TempDir()
	path := filepath.Join(dir, "hostbroker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  region: eu-west-1
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ap-southeast-2", cfg.Provider.Region)
	assert.Equal(t, 250, cfg.Request.MaxMachinesPerRequest)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 50, cfg.Workflow.MaxBatchSpan)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.False(t, cfg.ZAPIEnabled())
	assert.True(t, cfg.ZAPI.Interactive)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("MONGODB_DATABASE", "crew_test")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ZAPI_INSTANCE", "inst")
	t.Setenv("ZAPI_TOKEN", "tok")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "crew_test", cfg.MongoDB.Database)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.True(t, cfg.ZAPIEnabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locale: en
workflow:
  units_per_floor: 8
log:
  format: console
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, 8, cfg.Workflow.UnitsPerFloor)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("bad store driver", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Store.Driver = "postgres"
		assert.ErrorContains(t, cfg.Validate(), "validation failed")
	})

	t.Run("mongo without uri", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.MongoDB.URI = ""
		assert.ErrorContains(t, cfg.Validate(), "mongodb.uri")
	})

	t.Run("unknown timezone", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sha1", cfg.Hash)
	assert.Equal(t, 0, cfg.Jobs)
	assert.True(t, cfg.Compress)
	assert.True(t, cfg.Progress)
	require.NoError(t, cfg.Validate())
}

func TestDefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".gosure.yaml"), DefaultPath())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hash: xxh3\njobs: 4\ncompression: false\nprogress: false\n"), 0o644))

	cfg := Default()
	require.NoError(t, Load(path, cfg, true))
	assert.Equal(t, "xxh3", cfg.Hash)
	assert.Equal(t, 4, cfg.Jobs)
	assert.False(t, cfg.Compress)
	assert.False(t, cfg.Progress)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("GOSURE_TEST_CACHE", "/tmp/cache.db")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: ${GOSURE_TEST_CACHE}\n"), 0o644))

	cfg := Default()
	require.NoError(t, Load(path, cfg, true))
	assert.Equal(t, "/tmp/cache.db", cfg.Cache)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := Default()
	assert.NoError(t, Load(missing, cfg, false), "implicit path may be absent")
	assert.Error(t, Load(missing, cfg, true), "explicit path must exist")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Hash = "md5"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Jobs = -1
	assert.Error(t, cfg.Validate())
}

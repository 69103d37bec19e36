package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"STATLAB_API_KEY", "OPENROUTER_API_KEY", "STATLAB_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY", "STATLAB_DATASET_SIZE", "STATLAB_SEED"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 200, c.DatasetSize)
	assert.Equal(t, int64(0), c.Seed)
	assert.Equal(t, "gemini", c.DefaultProvider)
	assert.Equal(t, 3, c.NarrationConcurrency)
	assert.Equal(t, filepath.Join(home, ".statlab", "datasets"), c.DatasetsDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset_size: 75\nseed: 9\ndatasets_dir: ~/data\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, c.DatasetSize)
	assert.Equal(t, int64(9), c.Seed)
	assert.Equal(t, filepath.Join(home, "data"), c.DatasetsDir)

	t.Setenv("STATLAB_DATASET_SIZE", "30")
	t.Setenv("GEMINI_API_KEY", "g-secret-key")
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, c.DatasetSize)
	assert.Equal(t, "g-secret-key", c.GeminiAPIKey)
	assert.Equal(t, "g-secret-key", c.APIKeyFor("gemini"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("seed", "42"))
	require.NoError(t, c.Set("default_provider", "OpenRouter"))
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".statlab", "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), again.Seed)
	assert.Equal(t, "openrouter", again.DefaultProvider)
}

func TestSetAndGet(t *testing.T) {
	c := &Global{}
	require.NoError(t, c.Set("dataset_size", "500"))
	require.NoError(t, c.Set("temperature", "0.25"))
	require.NoError(t, c.Set("api_key", "sk-abcdefghij"))

	v, err := c.Get("dataset_size")
	require.NoError(t, err)
	assert.Equal(t, "500", v)
	v, _ = c.Get("temperature")
	assert.Equal(t, "0.250", v)
	v, _ = c.Get("api_key")
	assert.Equal(t, "sk-****hij", v)

	assert.Error(t, c.Set("dataset_size", "0"))
	assert.Error(t, c.Set("max_tokens", "-1"))
	assert.Error(t, c.Set("default_provider", "bogus"))
	assert.True(t, errors.Is(c.Set("nope", "1"), ErrUnknownKey))
	_, err = c.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	for _, k := range Keys() {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "******", Mask("abc"))
	assert.Equal(t, "abc****xyz", Mask("abcdefxyz"))
}

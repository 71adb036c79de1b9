package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabase(t *testing.T) {
	for _, key := range []string{"NEWSFLASH_CONFIG", "NEWSFLASH_DB_HOST", "NEWSFLASH_DB_USER", "NEWSFLASH_DB_PASSWORD", "NEWSFLASH_DB_NAME"} {
		t.Setenv(key, "")
	}

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLoadFromFileWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db.internal
  user: analyzer
  password: secret
  database: newsflash
`), 0o600))
	t.Setenv("NEWSFLASH_CONFIG", path)
	for _, key := range []string{"NEWSFLASH_DB_HOST", "NEWSFLASH_DB_USER", "NEWSFLASH_DB_PASSWORD", "NEWSFLASH_DB_NAME", "NEWSFLASH_OLLAMA_URL", "NEWSFLASH_OLLAMA_MODEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Ollama.APIURL)
	assert.Equal(t, "llama2", cfg.Ollama.Model)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "jin10", cfg.Sites[0].Scanner)
	assert.Equal(t, 30, cfg.Sites[0].WindowMinutes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEWSFLASH_CONFIG", "")
	t.Setenv("NEWSFLASH_DB_HOST", "override-host")
	t.Setenv("NEWSFLASH_DB_USER", "override-user")
	t.Setenv("NEWSFLASH_DB_PASSWORD", "override-pass")
	t.Setenv("NEWSFLASH_DB_NAME", "override-db")
	t.Setenv("NEWSFLASH_OLLAMA_MODEL", "mistral")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "override-host", cfg.Database.Host)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
}

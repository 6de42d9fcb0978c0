package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TABBYCAT_ADDR", "TABBYCAT_DATA_URL", "TABBYCAT_DATA_DIR", "TABBYCAT_INSIGHT_URL",
		"TABBYCAT_LOG_LEVEL", "TABBYCAT_INSIGHT_TIMEOUT", "TABBYCAT_DATA_TIMEOUT", "TABBYCAT_SESSION_TTL",
	} {
		t.Setenv(k, "")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultInsightTimeout, cfg.Insights.Timeout)
	assert.Equal(t, DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Error(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "tabbycat.yaml")
	yml := `
server:
  addr: ":8080"
data:
  base_url: "http://backend:5000"
  paths:
    speakers: /api/speakers
insights:
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Run("yaml values", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "http://backend:5000", cfg.Data.BaseURL)
		assert.Equal(t, "/api/speakers", cfg.Data.Paths["speakers"])
		assert.Equal(t, 2*time.Second, cfg.Insights.Timeout)
		// insight URL falls back to the data backend
		assert.Equal(t, "http://backend:5000", cfg.Insights.BaseURL)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("env overrides yaml", func(t *testing.T) {
		t.Setenv("TABBYCAT_DATA_DIR", "./data")
		t.Setenv("TABBYCAT_INSIGHT_TIMEOUT", "750ms")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "./data", cfg.Data.Dir)
		assert.Empty(t, cfg.Data.BaseURL)
		assert.Equal(t, 750*time.Millisecond, cfg.Insights.Timeout)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("TABBYCAT_SESSION_TTL", "soon")
		_, err := Load(path)
		assert.ErrorContains(t, err, "TABBYCAT_SESSION_TTL")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    DataConfig
		wantErr bool
	}{
		{"url only", DataConfig{BaseURL: "https://tabbycat.example"}, false},
		{"dir only", DataConfig{Dir: "data"}, false},
		{"both", DataConfig{BaseURL: "http://a", Dir: "data"}, true},
		{"neither", DataConfig{}, true},
		{"not http", DataConfig{BaseURL: "ftp://a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Data: tt.data}
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

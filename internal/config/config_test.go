package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, BackendElasticsearch, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.MaxCompetitors)
	assert.Equal(t, appstore.DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, "8501", cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("LLM_API_KEY", "sk-ant")
	t.Setenv("STORE_BACKEND", "local")
	t.Setenv("STORE_DATA_DIR", "/tmp/kp")
	t.Setenv("FETCH_TIMEOUT", "3s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.Equal(t, BackendLocal, cfg.Store.Backend)
	assert.Equal(t, "/tmp/kp", cfg.Store.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  provider: ollama\nstore:\n  backend: local\n  data_dir: ./kp-data\nfetch:\n  max_competitors: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "./kp-data", cfg.Store.DataDir)
	assert.Equal(t, 2, cfg.Fetch.MaxCompetitors)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:   LLMConfig{Provider: "groq", APIKey: "k"},
			Store: StoreConfig{Backend: BackendElasticsearch, Host: "https://es:9200", APIKey: "k"},
			Fetch: FetchConfig{Timeout: time.Second, MaxCompetitors: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing llm key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "bard" }, wantErr: "llm.provider"},
		{name: "missing store host", mutate: func(c *Config) { c.Store.Host = "" }, wantErr: "store.host"},
		{name: "missing store credential", mutate: func(c *Config) { c.Store.APIKey = "" }, wantErr: "store.api_key"},
		{name: "basic auth is enough", mutate: func(c *Config) {
			c.Store.APIKey = ""
			c.Store.Username = "elastic"
			c.Store.Password = "secret"
		}},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "typesense" }, wantErr: "store.backend"},
		{name: "zero timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }, wantErr: "fetch.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStore_IgnoresLLM(t *testing.T) {
	cfg := &Config{
		LLM:   LLMConfig{Provider: "groq"},
		Store: StoreConfig{Backend: BackendLocal, DataDir: t.TempDir()},
	}
	assert.NoError(t, cfg.ValidateStore())
	assert.ErrorContains(t, cfg.ValidateLLM(), "llm.api_key")

	cfg.Store = StoreConfig{Backend: BackendElasticsearch}
	err := cfg.ValidateStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.host")
	assert.Contains(t, err.Error(), "store.api_key")
}

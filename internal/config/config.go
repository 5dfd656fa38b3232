// Package config loads keyword planner settings from .env files, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendLocal         = "local"
)

// Config is the full application configuration.
type Config struct {
	LLM    LLMConfig
	Store  StoreConfig
	Fetch  FetchConfig
	Server ServerConfig
	Log    LogConfig
}

// LLMConfig selects and authenticates the language model provider.
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// StoreConfig points at the document store.
type StoreConfig struct {
	Backend  string
	Host     string
	APIKey   string
	Username string
	Password string
	DataDir  string
	// IndexPrefix is prepended to Elasticsearch index names.
	IndexPrefix string
}

// FetchConfig controls app-store page fetching.
type FetchConfig struct {
	Timeout        time.Duration
	UserAgent      string
	MaxCompetitors int
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string
	Port string
}

// LogConfig controls log output.
type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("store.backend", BackendElasticsearch)
	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.user_agent", appstore.DefaultUserAgent)
	v.SetDefault("fetch.max_competitors", 3)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8501")
	v.SetDefault("log.level", "info")
}

// Load reads configuration. .env is loaded first (missing file is fine), then
// cfgFile if given (or ./config.yaml when present), then environment variables.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		LLM: LLMConfig{
			Provider: strings.ToLower(v.GetString("llm.provider")),
			APIKey:   v.GetString("llm.api_key"),
			Model:    v.GetString("llm.model"),
			BaseURL:  v.GetString("llm.base_url"),
			Timeout:  v.GetDuration("llm.timeout"),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(v.GetString("store.backend")),
			Host:        v.GetString("store.host"),
			APIKey:      v.GetString("store.api_key"),
			Username:    v.GetString("store.username"),
			Password:    v.GetString("store.password"),
			DataDir:     v.GetString("store.data_dir"),
			IndexPrefix: v.GetString("store.index_prefix"),
		},
		Fetch: FetchConfig{
			Timeout:        v.GetDuration("fetch.timeout"),
			UserAgent:      v.GetString("fetch.user_agent"),
			MaxCompetitors: v.GetInt("fetch.max_competitors"),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetString("server.port"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	return cfg, nil
}

// providerKeyFromEnv falls back to the provider's conventional variable.
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// Validate reports every missing or inconsistent required value.
func (c *Config) Validate() error {
	return errors.Join(c.ValidateStore(), c.ValidateLLM(), c.validateFetch())
}

// ValidateLLM checks the model provider settings.
func (c *Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "groq", "openai", "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
		}
	case "lmstudio", "ollama":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	return nil
}

// ValidateStore checks the document store settings. Every command needs them.
func (c *Config) ValidateStore() error {
	var errs []error

	switch c.Store.Backend {
	case BackendElasticsearch:
		if c.Store.Host == "" {
			errs = append(errs, errors.New("store.host is required for the elasticsearch backend"))
		}
		if c.Store.APIKey == "" && (c.Store.Username == "" || c.Store.Password == "") {
			errs = append(errs, errors.New("store.api_key or store.username/store.password is required for the elasticsearch backend"))
		}
	case BackendLocal:
		if c.Store.DataDir == "" {
			errs = append(errs, errors.New("store.data_dir is required for the local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.backend %q", c.Store.Backend))
	}

	return errors.Join(errs...)
}

func (c *Config) validateFetch() error {
	var errs []error
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxCompetitors < 0 {
		errs = append(errs, errors.New("fetch.max_competitors must not be negative"))
	}
	return errors.Join(errs...)
}

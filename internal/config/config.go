// Package config provides configuration loading and structs for the Youyaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Model     ModelConfig     `yaml:"model"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SearchConfig holds history search settings.
type SearchConfig struct {
	TopKCandidates int     `yaml:"top_k_candidates"`
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	TitleBoost     float64 `yaml:"title_boost"`
	SnippetLength  int     `yaml:"snippet_length"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string          `yaml:"host"`
	Port               int             `yaml:"port"`
	CORSAllowedOrigins []string        `yaml:"cors_allowed_origins"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`
	RequestTimeout     time.Duration   `yaml:"request_timeout"`
}

// RateLimitConfig bounds summarize requests per client IP.
type RateLimitConfig struct {
	Requests int64         `yaml:"requests"`
	Period   time.Duration `yaml:"period"`
}

// StorageConfig holds paths for the history database and search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ModelConfig selects and configures the summarization backend.
type ModelConfig struct {
	// Provider is one of mock, http, openai or vertex.
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Name      string        `yaml:"name"`
	ProjectID string        `yaml:"project_id"`
	Region    string        `yaml:"region"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

// TokenizerConfig selects the token counting encoding.
type TokenizerConfig struct {
	Encoding string `yaml:"encoding"`
}

// PipelineConfig holds chunking and recursion settings.
type PipelineConfig struct {
	MaxTokens       int           `yaml:"max_tokens"`
	MaxDepth        int           `yaml:"max_depth"`
	MaxConcurrency  int           `yaml:"max_concurrency"`
	MinChunkWords   int           `yaml:"min_chunk_words"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	ShortInputWords int           `yaml:"short_input_words"`
	EventBuffer     int           `yaml:"event_buffer"`
}

// Load reads and parses the config file at path, applies .env and environment
// overrides, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := LoadDotEnv(configDir); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config built only from defaults and the environment.
// Used when no config file exists.
func Default() (*Config, error) {
	var cfg Config
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSAllowedOrigins == nil {
		cfg.Server.CORSAllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.RateLimit.Requests == 0 {
		cfg.Server.RateLimit.Requests = 10
	}
	if cfg.Server.RateLimit.Period == 0 {
		cfg.Server.RateLimit.Period = time.Minute
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/youyaku/data/db/summaries.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/youyaku/data/indices/bleve"
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "mock"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 2 * time.Minute
	}
	if cfg.Model.CacheSize == 0 {
		cfg.Model.CacheSize = 256
	}
	if cfg.Model.Region == "" {
		cfg.Model.Region = "us-central1"
	}
	if cfg.Tokenizer.Encoding == "" {
		cfg.Tokenizer.Encoding = "cl100k_base"
	}
	if cfg.Pipeline.MaxTokens == 0 {
		cfg.Pipeline.MaxTokens = 1024
	}
	if cfg.Pipeline.MaxDepth == 0 {
		cfg.Pipeline.MaxDepth = 3
	}
	if cfg.Pipeline.MaxConcurrency == 0 {
		cfg.Pipeline.MaxConcurrency = 2
	}
	if cfg.Pipeline.MinChunkWords == 0 {
		cfg.Pipeline.MinChunkWords = 15
	}
	if cfg.Pipeline.RetryDelay == 0 {
		cfg.Pipeline.RetryDelay = 250 * time.Millisecond
	}
	if cfg.Pipeline.ShortInputWords == 0 {
		cfg.Pipeline.ShortInputWords = 10
	}
	if cfg.Pipeline.EventBuffer == 0 {
		cfg.Pipeline.EventBuffer = 256
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 200
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

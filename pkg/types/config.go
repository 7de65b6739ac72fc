package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "els-search/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// APIConfig holds settings for the Elsevier API client.
type APIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the search endpoint root; the index name is appended to it.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as X-ELS-APIKey.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// InstToken is the optional institutional token sent as X-ELS-Insttoken.
	InstToken string `json:"insttoken,omitempty" yaml:"insttoken,omitempty" mapstructure:"insttoken"`

	// MaxRetries bounds retries on HTTP 429 and 503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// CacheSize is the number of pages kept in the response cache (0 disables it).
	// Cursor requests are never cached.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// SearchConfig holds default execution parameters for searches.
type SearchConfig struct {
	// Index is the default target collection (default "scopus").
	Index string `json:"index" yaml:"index" mapstructure:"index"`

	// View selects the API response view (e.g. "STANDARD", "COMPLETE").
	View string `json:"view,omitempty" yaml:"view,omitempty" mapstructure:"view"`

	// Count is the page size requested per call (default 25).
	Count int `json:"count" yaml:"count" mapstructure:"count"`

	// GetAll fetches every page up to the retrieval ceiling.
	GetAll bool `json:"get_all" yaml:"get_all" mapstructure:"get_all"`

	// UseCursor requests cursor-based pagination.
	UseCursor bool `json:"use_cursor" yaml:"use_cursor" mapstructure:"use_cursor"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default "info").
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json" (default "console").
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File, when set, also writes logs to a rotating file.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`

	MaxSizeMB  int  `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// StoreConfig holds settings for the search history database.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/els-search.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// BatchConfig holds settings for query-file runs.
type BatchConfig struct {
	// Workers bounds how many searches run at once (default 2).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// Config groups all settings.
type Config struct {
	API    APIConfig    `json:"api" yaml:"api" mapstructure:"api"`
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Batch  BatchConfig  `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// DefaultConfig returns the settings used when no config file or flag overrides them.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "els-search/0.1",
			},
			BaseURL:    "https://api.elsevier.com/content/search/",
			MaxRetries: 5,
		},
		Search: SearchConfig{
			Index: "scopus",
			Count: 25,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Store: StoreConfig{Path: "data/els-search.db"},
		Batch: BatchConfig{Workers: 2},
	}
}

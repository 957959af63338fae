// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultBaseURL is the results API resource endpoint.
const DefaultBaseURL = "https://api.diplomazonebd.com/results"

// DefaultWorkers bounds concurrent record processing when no value is set.
const DefaultWorkers = 4

// DefaultExtension is the data file extension considered during directory scans.
const DefaultExtension = ".json"

// HTTPConfig holds shared HTTP settings for calls to the results API.
type HTTPConfig struct {
	// Timeout is the per-request timeout. Zero leaves requests unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "results-sync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// APIConfig locates and authenticates against the results API.
type APIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the single resource endpoint used for GET, POST and PUT.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Token is an optional bearer token. Empty sends no Authorization header.
	Token string `json:"-" yaml:"-" mapstructure:"token"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" for human-readable lines or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// SyncConfig groups every setting the sync command needs.
type SyncConfig struct {
	API APIConfig `json:"api" yaml:"api" mapstructure:"api"`
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Workers bounds the number of records processed concurrently, and so
	// the number of in-flight API calls (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// InsertOnly skips the existence lookup and inserts every record.
	InsertOnly bool `json:"insert_only" yaml:"insert_only" mapstructure:"insert_only"`

	// Extension is the file extension matched when scanning a directory.
	Extension string `json:"extension" yaml:"extension" mapstructure:"extension"`
}

// EffectiveWorkers returns Workers, or DefaultWorkers when unset or invalid.
func (c SyncConfig) EffectiveWorkers() int {
	if c.Workers < 1 {
		return DefaultWorkers
	}
	return c.Workers
}

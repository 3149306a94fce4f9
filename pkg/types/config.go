// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds settings for the Scholar HTTP client.
type HTTPConfig struct {
	// Timeout is the per-request timeout applied by the client.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond caps the request rate against the profile source.
	// Zero or negative disables the limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// RetryPolicy configures the outer attempt loop. A policy with
// MaxAttempts of 1 is the fail-fast variant: no retries, no backoff.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// Jitter is the upper bound of the random duration added to each backoff.
	Jitter time.Duration `json:"jitter" yaml:"jitter"`

	// MaxDelay caps the doubling backoff (jitter excluded).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// ProxyConfig holds settings for the best-effort proxy selector.
type ProxyConfig struct {
	// Enabled turns proxy discovery on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// URL is an explicit proxy tried before any free-proxy source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// MaxCandidates bounds how many candidates are validated per selection.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// Timeout bounds a single candidate validation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// ValidationTarget is the URL each candidate must reach.
	ValidationTarget string `json:"validation_target" yaml:"validation_target"`
}

// FetchConfig holds everything a fetch run needs. It replaces the fixed
// constants of a one-off script so that the entry point owns them.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ProfileID is the Google Scholar user identifier (the "user=" parameter).
	ProfileID string `json:"profile_id" yaml:"profile_id"`

	// BaseURL is the Scholar origin, e.g. "https://scholar.google.com".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MaxPublications truncates the publication listing.
	MaxPublications int `json:"max_publications" yaml:"max_publications"`

	// OutputPath is the JSON file written on success.
	OutputPath string `json:"output" yaml:"output"`

	// YAMLOutputPath, when set, receives a YAML copy of the collection.
	YAMLOutputPath string `json:"yaml_output,omitempty" yaml:"yaml_output,omitempty"`

	// ItemDelayMin and ItemDelayMax bound the random pause before each
	// per-publication detail fetch.
	ItemDelayMin time.Duration `json:"item_delay_min" yaml:"item_delay_min"`
	ItemDelayMax time.Duration `json:"item_delay_max" yaml:"item_delay_max"`

	Retry RetryPolicy `json:"retry" yaml:"retry"`
	Proxy ProxyConfig `json:"proxy" yaml:"proxy"`
}

// Defaults used when a config value is left at its zero value.
const (
	DefaultProfileID        = "oPSq5PQAAAAJ"
	DefaultBaseURL          = "https://scholar.google.com"
	DefaultMaxPublications  = 50
	DefaultOutputPath       = "publications.json"
	DefaultMaxAttempts      = 6
	DefaultBaseDelay        = 5 * time.Second
	DefaultJitter           = 6 * time.Second
	DefaultMaxDelay         = 60 * time.Second
	DefaultItemDelayMin     = 600 * time.Millisecond
	DefaultItemDelayMax     = 1 * time.Second
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultRequestsPerSec   = 1.0
	DefaultProxyCandidates  = 20
	DefaultProxyTimeout     = 8 * time.Second
	DefaultValidationTarget = "https://scholar.google.com/"
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// DefaultFetchConfig returns the configuration used when nothing is overridden.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		HTTPConfig: HTTPConfig{
			Timeout:           DefaultHTTPTimeout,
			UserAgent:         DefaultUserAgent,
			RequestsPerSecond: DefaultRequestsPerSec,
		},
		ProfileID:       DefaultProfileID,
		BaseURL:         DefaultBaseURL,
		MaxPublications: DefaultMaxPublications,
		OutputPath:      DefaultOutputPath,
		ItemDelayMin:    DefaultItemDelayMin,
		ItemDelayMax:    DefaultItemDelayMax,
		Retry: RetryPolicy{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			Jitter:      DefaultJitter,
			MaxDelay:    DefaultMaxDelay,
		},
		Proxy: ProxyConfig{
			Enabled:          true,
			MaxCandidates:    DefaultProxyCandidates,
			Timeout:          DefaultProxyTimeout,
			ValidationTarget: DefaultValidationTarget,
		},
	}
}

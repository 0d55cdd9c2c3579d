package inventory

import "errors"

// Errors for inventory configuration
var (
	ErrConfigMissingBaseURL = errors.New("inventory: base url is required")
	ErrConfigMissingAPIKey  = errors.New("inventory: api key is required")
)

// Config holds configuration for the inventory source-of-record API.
type Config struct {
	// BaseURL is the API root.
	BaseURL string
	// APIKey authenticates every request.
	APIKey string
	// ImageFeedURL is the auxiliary image feed root. Empty disables the feed;
	// callers then fall back to the image URLs embedded in product records.
	ImageFeedURL string
	// PageSize is the page size requested on listing calls.
	PageSize int
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// NewConfig creates an inventory configuration with defaults.
func NewConfig(baseURL, apiKey string) *Config {
	return &Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		PageSize:       100,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and fills absent defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

package storefront

import "errors"

// Errors for storefront configuration
var (
	ErrConfigMissingBaseURL = errors.New("storefront: base url is required")
	ErrConfigMissingToken   = errors.New("storefront: access token is required")
	ErrConfigBadBatchSize   = errors.New("storefront: batch size must be between 1 and 250")
)

// Config holds configuration for the storefront REST API.
type Config struct {
	// BaseURL is the API root, including the version segment.
	BaseURL string
	// AccessToken authenticates every request.
	AccessToken string
	// LocationID is the inventory location quantities are written to.
	LocationID string
	// PageSize is the page size requested on listing calls.
	PageSize int
	// MaxBatchSize bounds items per batch mutation request.
	MaxBatchSize int
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// NewConfig creates a storefront configuration with defaults.
func NewConfig(baseURL, accessToken string) *Config {
	return &Config{
		BaseURL:        baseURL,
		AccessToken:    accessToken,
		LocationID:     "primary",
		PageSize:       100,
		MaxBatchSize:   50,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and fills absent defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.AccessToken == "" {
		return ErrConfigMissingToken
	}
	if c.LocationID == "" {
		c.LocationID = "primary"
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 50
	}
	if c.MaxBatchSize > 250 {
		return ErrConfigBadBatchSize
	}
	return nil
}

package binance

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
)

// Config holds the Binance adapter configuration. API credentials are
// optional: without them the adapter runs sessionless and authenticated
// operations degrade to empty results.
type Config struct {
	ApiKey    string `json:"api_key" yaml:"api_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key" validate:"required_with=ApiKey"`
	// BaseURL overrides the endpoint; takes precedence over UseTestnet.
	BaseURL    string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	UseTestnet bool   `json:"use_testnet" yaml:"use_testnet"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance config", err)
	}

	return nil
}

// HasSession reports whether API credentials are configured.
func (c *Config) HasSession() bool {
	return c.ApiKey != "" && c.SecretKey != ""
}

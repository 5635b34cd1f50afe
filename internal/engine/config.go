package engine

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultInterval            = "1m"
	DefaultPollIntervalMs      = 100
	DefaultReconcileIntervalMs = 1000
	DefaultRefreshIntervalMs   = 1000
	DefaultRepriceIntervalMs   = 1000
	DefaultPriceHistoryLimit   = 1000
)

// Config holds the configuration for the trading engine. Interval values
// are in milliseconds; zero picks the default.
type Config struct {
	// Symbols is the list of symbols the engine trades.
	Symbols []string `json:"symbols" yaml:"symbols" jsonschema:"description=Symbols to trade" validate:"required,min=1,dive,required"`

	// Interval is the bar interval fed to the strategy (e.g. 1m, 1h).
	Interval string `json:"interval" yaml:"interval" jsonschema:"description=Bar interval,default=1m"`

	// PollIntervalMs is the order dispatch cadence.
	PollIntervalMs int `json:"poll_interval_ms" yaml:"poll_interval_ms" jsonschema:"description=Order dispatch cadence in milliseconds,default=100" validate:"omitempty,gt=0"`

	// ReconcileIntervalMs is the open-order reconciliation cadence.
	ReconcileIntervalMs int `json:"reconcile_interval_ms" yaml:"reconcile_interval_ms" jsonschema:"description=Open order reconciliation cadence in milliseconds,default=1000" validate:"omitempty,gt=0"`

	// RefreshIntervalMs is the market data refresh cadence.
	RefreshIntervalMs int `json:"refresh_interval_ms" yaml:"refresh_interval_ms" jsonschema:"description=Market data refresh cadence in milliseconds,default=1000" validate:"omitempty,gt=0"`

	// RepriceIntervalMs is the position mark-to-market cadence.
	RepriceIntervalMs int `json:"reprice_interval_ms" yaml:"reprice_interval_ms" jsonschema:"description=Position repricing cadence in milliseconds,default=1000" validate:"omitempty,gt=0"`

	// PriceHistoryLimit caps the cached price history per symbol.
	PriceHistoryLimit int `json:"price_history_limit" yaml:"price_history_limit" jsonschema:"description=Cached prices per symbol,default=1000" validate:"omitempty,gt=0"`

	// OrderNotional is the quote amount committed per buy signal. Zero
	// runs the engine signal-only, placing no orders.
	OrderNotional float64 `json:"order_notional" yaml:"order_notional" jsonschema:"description=Quote amount per buy signal (0 disables order placement)" validate:"omitempty,gt=0"`

	// StrategyConfig is the YAML string handed to the strategy.
	StrategyConfig string `json:"strategy_config" yaml:"strategy_config" jsonschema:"description=YAML configuration passed to the strategy"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine config", err)
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}

	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = DefaultPollIntervalMs
	}

	if c.ReconcileIntervalMs <= 0 {
		c.ReconcileIntervalMs = DefaultReconcileIntervalMs
	}

	if c.RefreshIntervalMs <= 0 {
		c.RefreshIntervalMs = DefaultRefreshIntervalMs
	}

	if c.RepriceIntervalMs <= 0 {
		c.RepriceIntervalMs = DefaultRepriceIntervalMs
	}

	if c.PriceHistoryLimit <= 0 {
		c.PriceHistoryLimit = DefaultPriceHistoryLimit
	}

	return c
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c Config) reconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMs) * time.Millisecond
}

func (c Config) refreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

func (c Config) repriceInterval() time.Duration {
	return time.Duration(c.RepriceIntervalMs) * time.Millisecond
}

// ParseConfig parses a YAML configuration string into a validated Config.
func ParseConfig(yamlConfig string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(yamlConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfigSchema returns the JSON schema for Config.
func GetConfigSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{})

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultShortPeriod = 5
	defaultLongPeriod  = 20
)

// smaConfig is the YAML configuration for the crossover policy.
type smaConfig struct {
	ShortPeriod int `yaml:"short_period"`
	LongPeriod  int `yaml:"long_period"`
}

// SMACrossover buys when the short moving average crosses above the long
// one and sells when it crosses below. It keeps its own close-price
// window, so it only needs the bars the engine feeds it.
type SMACrossover struct {
	shortPeriod int
	longPeriod  int
	closes      []float64
}

// NewSMACrossover creates a crossover policy with the given periods.
// Non-positive periods fall back to defaults during Initialize.
func NewSMACrossover(shortPeriod, longPeriod int) *SMACrossover {
	return &SMACrossover{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		closes:      nil,
	}
}

// Name implements Strategy.
func (s *SMACrossover) Name() string {
	return fmt.Sprintf("SMA_Cross_%d_%d", s.shortPeriod, s.longPeriod)
}

// Initialize implements Strategy. The config string is YAML; an empty
// string keeps the constructor values or defaults.
func (s *SMACrossover) Initialize(config string) error {
	if config != "" {
		var cfg smaConfig
		if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
		}

		if cfg.ShortPeriod > 0 {
			s.shortPeriod = cfg.ShortPeriod
		}

		if cfg.LongPeriod > 0 {
			s.longPeriod = cfg.LongPeriod
		}
	}

	if s.shortPeriod <= 0 {
		s.shortPeriod = defaultShortPeriod
	}

	if s.longPeriod <= 0 {
		s.longPeriod = defaultLongPeriod
	}

	if s.shortPeriod >= s.longPeriod {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"short period %d must be below long period %d", s.shortPeriod, s.longPeriod)
	}

	return nil
}

// ProcessBar implements Strategy.
func (s *SMACrossover) ProcessBar(ctx Context, bar types.Bar) (types.Signal, error) {
	s.closes = append(s.closes, bar.Close)

	// One close beyond the long window is enough to detect a cross.
	if max := s.longPeriod + 1; len(s.closes) > max {
		s.closes = s.closes[len(s.closes)-max:]
	}

	hold := types.Signal{
		Time:   bar.Time,
		Type:   types.SignalTypeHold,
		Symbol: bar.Symbol,
		Reason: "no crossover",
	}

	if len(s.closes) <= s.longPeriod {
		hold.Reason = "warming up"

		return hold, nil
	}

	shortMA := sma(s.closes, s.shortPeriod)
	longMA := sma(s.closes, s.longPeriod)

	prev := s.closes[:len(s.closes)-1]
	prevShortMA := sma(prev, s.shortPeriod)
	prevLongMA := sma(prev, s.longPeriod)

	hasPosition := false
	if ctx.Positions != nil {
		if pos, ok := ctx.Positions.GetPosition(bar.Symbol); ok {
			hasPosition = pos.Quantity > 0
		}
	}

	if shortMA > longMA && prevShortMA <= prevLongMA && !hasPosition {
		return types.Signal{
			Time:   bar.Time,
			Type:   types.SignalTypeBuy,
			Symbol: bar.Symbol,
			Reason: fmt.Sprintf("short MA %.4f crossed above long MA %.4f", shortMA, longMA),
		}, nil
	}

	if shortMA < longMA && prevShortMA >= prevLongMA && hasPosition {
		return types.Signal{
			Time:   bar.Time,
			Type:   types.SignalTypeSell,
			Symbol: bar.Symbol,
			Reason: fmt.Sprintf("short MA %.4f crossed below long MA %.4f", shortMA, longMA),
		}, nil
	}

	return hold, nil
}

// sma averages the last period closes.
func sma(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}

	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}

	return sum / float64(period)
}

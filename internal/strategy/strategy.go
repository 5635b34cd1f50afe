// Package strategy defines the contract trading policies implement and a
// simple reference policy. Strategies only produce signals; order
// placement and position management stay with the engine.
package strategy

import (
	"github.com/rxtech-lab/argo-exec/internal/marketdata"
	"github.com/rxtech-lab/argo-exec/internal/position"
	"github.com/rxtech-lab/argo-exec/internal/types"
)

// Context carries everything a strategy may consult when processing a
// bar. Fields can be nil when a capability is not wired.
type Context struct {
	// Market provides cached prices, bars and order books.
	Market *marketdata.Cache
	// Positions provides current holdings and PnL.
	Positions *position.Manager
}

// Strategy is the interface every trading policy implements.
type Strategy interface {
	// Initialize sets up the strategy with a configuration string.
	// The engine is responsible for reading the config file; the
	// strategy decodes the string itself.
	Initialize(config string) error
	// ProcessBar consumes one bar and returns a signal. A strategy
	// with nothing to say returns a hold signal, not an error.
	ProcessBar(ctx Context, bar types.Bar) (types.Signal, error)
	// Name returns the name of the strategy.
	Name() string
}

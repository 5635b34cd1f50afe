package types

import "time"

type SignalType string

const (
	// SignalTypeBuy is a signal that tells the engine to buy
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell is a signal that tells the engine to sell
	SignalTypeSell SignalType = "sell"
	// SignalTypeHold is a signal that tells the engine to take no action
	SignalTypeHold SignalType = "hold"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Symbol is the symbol of the signal
	Symbol string
	// Reason is the reason for the signal
	Reason string
}

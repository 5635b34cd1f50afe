package types

import "time"

// Bar is one OHLCV aggregate over a fixed interval (a kline).
type Bar struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// PriceLevel is one order book level.
type PriceLevel struct {
	Price  float64 `json:"price" yaml:"price"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// OrderBook is a snapshot of the book for one symbol, best price first on
// both sides.
type OrderBook struct {
	Bids []PriceLevel `json:"bids" yaml:"bids"`
	Asks []PriceLevel `json:"asks" yaml:"asks"`
}

// Trade is one executed trade reported by the venue.
type Trade struct {
	ID            int64     `json:"id" yaml:"id"`
	Price         float64   `json:"price" yaml:"price"`
	Quantity      float64   `json:"quantity" yaml:"quantity"`
	QuoteQuantity float64   `json:"quote_quantity" yaml:"quote_quantity"`
	Time          time.Time `json:"time" yaml:"time"`
	IsBuyerMaker  bool      `json:"is_buyer_maker" yaml:"is_buyer_maker"`
	IsBestMatch   bool      `json:"is_best_match" yaml:"is_best_match"`
}

package types

// Position represents current holdings of a symbol. Mark is the price the
// holding was last valued at.
type Position struct {
	Symbol   string  `json:"symbol" yaml:"symbol"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Mark     float64 `json:"mark" yaml:"mark"`
}

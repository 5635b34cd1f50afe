package types

import (
	"time"

	"github.com/rxtech-lab/argo-exec/pkg/errors"
)

type Side string

type OrderType string

type TimeInForce string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeStopLoss        OrderType = "STOP_LOSS"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderTypeLimitMaker      OrderType = "LIMIT_MAKER"
)

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// SideFromString converts a venue-side string to a Side.
func SideFromString(s string) (Side, error) {
	switch Side(s) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSide, "unknown order side: %q", s)
	}
}

// OrderTypeFromString converts a venue-side string to an OrderType.
func OrderTypeFromString(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeLimit, OrderTypeMarket, OrderTypeStopLoss, OrderTypeStopLossLimit,
		OrderTypeTakeProfit, OrderTypeTakeProfitLimit, OrderTypeLimitMaker:
		return OrderType(s), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrderType, "unknown order type: %q", s)
	}
}

// Order is a single order intent tracked by the order manager.
//
// ID is the local identifier, assigned exactly once at creation by the
// order manager's counter and never reused. RemoteID is the venue-assigned
// identifier; it stays zero until the venue-facing driver binds it after
// dispatch, and is written at most once per dispatch.
type Order struct {
	ID          int64       `json:"id" yaml:"id"`
	Symbol      string      `json:"symbol" yaml:"symbol"`
	Side        Side        `json:"side" yaml:"side"`
	Type        OrderType   `json:"type" yaml:"type"`
	Quantity    float64     `json:"quantity" yaml:"quantity"`
	Price       float64     `json:"price" yaml:"price"`
	StopPrice   float64     `json:"stop_price" yaml:"stop_price"`
	IcebergQty  float64     `json:"iceberg_qty" yaml:"iceberg_qty"`
	TimeInForce TimeInForce `json:"time_in_force" yaml:"time_in_force"`
	// RecvWindow is the maximum request-processing delay tolerated by the
	// venue, in milliseconds. Zero means the venue default.
	RecvWindow  int64     `json:"recv_window" yaml:"recv_window"`
	RemoteID    int64     `json:"remote_id" yaml:"remote_id"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}

// CancelIntent is a queued request to cancel an order. LocalID refers to
// the order manager's id; the driver resolves the venue id through the
// directory at dispatch time.
type CancelIntent struct {
	LocalID int64  `json:"local_id" yaml:"local_id"`
	Symbol  string `json:"symbol" yaml:"symbol"`
}

// OrderSnapshot is the venue's view of one order at query time.
type OrderSnapshot struct {
	Order       Order       `json:"order" yaml:"order"`
	Status      OrderStatus `json:"status" yaml:"status"`
	ExecutedQty float64     `json:"executed_qty" yaml:"executed_qty"`
}

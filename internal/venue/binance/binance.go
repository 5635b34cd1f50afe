// Package binance implements the venue capability against the Binance spot
// API. The adapter is stateless: every call goes straight to the venue.
package binance

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/utils"
	"github.com/rxtech-lab/argo-exec/internal/venue"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for
	// BTC-like assets. Production systems should use symbol-specific
	// precision from Binance exchange info (e.g. LOT_SIZE, PRICE_FILTER).
	DecimalPrecision = 8

	// defaultDepthLimit is the number of book levels fetched per side.
	defaultDepthLimit = 100

	// defaultTradesLimit caps a trade history fetch.
	defaultTradesLimit = 500
)

// Adapter implements venue.Venue over the Binance REST API.
type Adapter struct {
	client           Client
	config           Config
	log              *logger.Logger
	decimalPrecision int
}

var _ venue.Venue = (*Adapter)(nil)

// NewAdapter creates a Binance venue adapter. With UseTestnet set it
// connects to the spot testnet; Config.BaseURL takes precedence.
func NewAdapter(config Config, log *logger.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &Adapter{
		client:           &realClient{client: client},
		config:           config,
		log:              log,
		decimalPrecision: DecimalPrecision,
	}, nil
}

// newAdapterWithClient creates an adapter with a custom client. Used for
// testing with mock clients.
func newAdapterWithClient(client Client, config Config, log *logger.Logger) *Adapter {
	return &Adapter{
		client:           client,
		config:           config,
		log:              log,
		decimalPrecision: DecimalPrecision,
	}
}

// Submit sends an order to Binance and returns the venue order id plus the
// immediately filled quantity. Without a session it degrades to a zero
// result and a diagnostic log line.
func (a *Adapter) Submit(ctx context.Context, order *types.Order) (venue.SubmitResult, error) {
	if !a.config.HasSession() {
		a.log.Warn("submit skipped: no session configured", zap.Int64("local_id", order.ID))

		return venue.SubmitResult{}, nil
	}

	side, err := sideToBinance(order.Side)
	if err != nil {
		return venue.SubmitResult{}, err
	}

	orderType, err := orderTypeToBinance(order.Type)
	if err != nil {
		return venue.SubmitResult{}, err
	}

	roundedQty := utils.RoundToDecimalPrecision(order.Quantity, a.decimalPrecision)

	service := a.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(orderType).
		Quantity(strconv.FormatFloat(roundedQty, 'f', a.decimalPrecision, 64)).
		NewClientOrderID(uuid.NewString())

	if order.Price > 0 {
		service = service.Price(strconv.FormatFloat(order.Price, 'f', -1, 64))
	}

	if order.StopPrice > 0 {
		service = service.StopPrice(strconv.FormatFloat(order.StopPrice, 'f', -1, 64))
	}

	if order.IcebergQty > 0 {
		service = service.IcebergQuantity(strconv.FormatFloat(order.IcebergQty, 'f', -1, 64))
	}

	if order.Type == types.OrderTypeLimit || order.Type == types.OrderTypeStopLossLimit ||
		order.Type == types.OrderTypeTakeProfitLimit {
		tif := order.TimeInForce
		if tif == "" {
			tif = types.TimeInForceGTC
		}

		service = service.TimeInForce(binance.TimeInForceType(tif))
	}

	if order.RecvWindow > 0 {
		service = service.RecvWindow(order.RecvWindow)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return venue.SubmitResult{}, classifyError("failed to place order on Binance", err)
	}

	filled, err := strconv.ParseFloat(res.ExecutedQuantity, 64)
	if err != nil {
		a.log.Warn("unparseable executed quantity in order response",
			zap.String("executed_qty", res.ExecutedQuantity))

		filled = 0
	}

	return venue.SubmitResult{RemoteID: res.OrderID, FilledQty: filled}, nil
}

// Cancel cancels an order by venue id.
func (a *Adapter) Cancel(ctx context.Context, remoteID int64, symbol string) error {
	if !a.config.HasSession() {
		a.log.Warn("cancel skipped: no session configured", zap.Int64("remote_id", remoteID))

		return nil
	}

	_, err := a.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(remoteID).
		Do(ctx)
	if err != nil {
		return classifyError("failed to cancel order on Binance", err)
	}

	return nil
}

// QueryStatus fetches the venue's view of one order.
func (a *Adapter) QueryStatus(ctx context.Context, remoteID int64, symbol string) (types.OrderSnapshot, error) {
	if !a.config.HasSession() {
		a.log.Warn("query status skipped: no session configured", zap.Int64("remote_id", remoteID))

		return types.OrderSnapshot{}, nil
	}

	res, err := a.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(remoteID).
		Do(ctx)
	if err != nil {
		return types.OrderSnapshot{}, classifyError("failed to query order on Binance", err)
	}

	order, err := orderFromBinance(res)
	if err != nil {
		return types.OrderSnapshot{}, err
	}

	executed, err := strconv.ParseFloat(res.ExecutedQuantity, 64)
	if err != nil {
		return types.OrderSnapshot{}, errors.Wrap(errors.ErrCodeVenueMalformed,
			"unparseable executed quantity", err)
	}

	return types.OrderSnapshot{
		Order:       order,
		Status:      types.OrderStatus(res.Status),
		ExecutedQty: executed,
	}, nil
}

// ListOpenOrders lists open orders, optionally restricted to one symbol.
// A malformed record aborts the rest of the batch; rows parsed so far are
// returned.
func (a *Adapter) ListOpenOrders(ctx context.Context, symbol optional.Option[string]) ([]types.Order, error) {
	if !a.config.HasSession() {
		a.log.Warn("list open orders skipped: no session configured")

		return []types.Order{}, nil
	}

	service := a.client.NewListOpenOrdersService()
	if symbol.IsSome() {
		service = service.Symbol(symbol.Unwrap())
	}

	res, err := service.Do(ctx)
	if err != nil {
		return nil, classifyError("failed to list open orders on Binance", err)
	}

	orders := make([]types.Order, 0, len(res))

	for _, o := range res {
		order, err := orderFromBinance(o)
		if err != nil {
			a.log.Warn("malformed open order record, truncating batch",
				zap.Int64("remote_id", o.OrderID), zap.Error(err))

			break
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// ListTrades lists executed trades for a symbol, best effort on malformed
// records.
func (a *Adapter) ListTrades(ctx context.Context, symbol string) ([]types.Trade, error) {
	if !a.config.HasSession() {
		a.log.Warn("list trades skipped: no session configured")

		return []types.Trade{}, nil
	}

	res, err := a.client.NewHistoricalTradesService().
		Symbol(symbol).
		Limit(defaultTradesLimit).
		Do(ctx)
	if err != nil {
		return nil, classifyError("failed to list trades on Binance", err)
	}

	trades := make([]types.Trade, 0, len(res))

	for _, t := range res {
		trade, err := tradeFromBinance(t)
		if err != nil {
			a.log.Warn("malformed trade record, truncating batch",
				zap.Int64("trade_id", t.ID), zap.Error(err))

			break
		}

		trades = append(trades, trade)
	}

	return trades, nil
}

// Balances returns free quantity per asset.
func (a *Adapter) Balances(ctx context.Context) (map[string]float64, error) {
	if !a.config.HasSession() {
		a.log.Warn("balances skipped: no session configured")

		return map[string]float64{}, nil
	}

	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classifyError("failed to get account info from Binance", err)
	}

	balances := make(map[string]float64, len(account.Balances))

	for _, b := range account.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			a.log.Warn("malformed balance record, truncating batch",
				zap.String("asset", b.Asset), zap.Error(err))

			break
		}

		balances[b.Asset] = free
	}

	return balances, nil
}

// OrderBook returns the current book snapshot, best price first.
func (a *Adapter) OrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	res, err := a.client.NewDepthService().
		Symbol(symbol).
		Limit(defaultDepthLimit).
		Do(ctx)
	if err != nil {
		return types.OrderBook{}, classifyError("failed to fetch order book from Binance", err)
	}

	book := types.OrderBook{
		Bids: make([]types.PriceLevel, 0, len(res.Bids)),
		Asks: make([]types.PriceLevel, 0, len(res.Asks)),
	}

	for _, bid := range res.Bids {
		level, err := priceLevel(bid.Price, bid.Quantity)
		if err != nil {
			a.log.Warn("malformed bid level, truncating batch", zap.Error(err))

			break
		}

		book.Bids = append(book.Bids, level)
	}

	for _, ask := range res.Asks {
		level, err := priceLevel(ask.Price, ask.Quantity)
		if err != nil {
			a.log.Warn("malformed ask level, truncating batch", zap.Error(err))

			break
		}

		book.Asks = append(book.Asks, level)
	}

	return book, nil
}

// Bars returns OHLCV bars for the query window.
func (a *Adapter) Bars(ctx context.Context, query venue.BarsQuery) ([]types.Bar, error) {
	limit := query.Limit
	if limit <= 0 || limit > venue.BarsMaxLimit {
		limit = venue.BarsMaxLimit
	}

	service := a.client.NewKlinesService().
		Symbol(query.Symbol).
		Interval(query.Interval).
		Limit(limit)

	if query.Start.IsSome() {
		service = service.StartTime(query.Start.Unwrap().UnixMilli())
	}

	if query.End.IsSome() {
		service = service.EndTime(query.End.Unwrap().UnixMilli())
	}

	res, err := service.Do(ctx)
	if err != nil {
		return nil, classifyError("failed to fetch klines from Binance", err)
	}

	bars := make([]types.Bar, 0, len(res))

	for _, k := range res {
		bar, err := barFromKline(query.Symbol, k)
		if err != nil {
			a.log.Warn("malformed kline record, truncating batch",
				zap.Int64("open_time", k.OpenTime), zap.Error(err))

			break
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// LastPrice returns the latest traded price for a symbol.
func (a *Adapter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	res, err := a.client.NewListPricesService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return 0, classifyError("failed to fetch price from Binance", err)
	}

	if len(res) == 0 {
		return 0, errors.Newf(errors.ErrCodeVenueNotFound, "no price for symbol %s", symbol)
	}

	price, err := strconv.ParseFloat(res[0].Price, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable price", err)
	}

	return price, nil
}

// Conversions

func sideToBinance(side types.Side) (binance.SideType, error) {
	switch side {
	case types.SideBuy:
		return binance.SideTypeBuy, nil
	case types.SideSell:
		return binance.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSide, "unsupported order side: %s", side)
	}
}

func orderTypeToBinance(orderType types.OrderType) (binance.OrderType, error) {
	switch orderType {
	case types.OrderTypeLimit:
		return binance.OrderTypeLimit, nil
	case types.OrderTypeMarket:
		return binance.OrderTypeMarket, nil
	case types.OrderTypeStopLoss:
		return binance.OrderTypeStopLoss, nil
	case types.OrderTypeStopLossLimit:
		return binance.OrderTypeStopLossLimit, nil
	case types.OrderTypeTakeProfit:
		return binance.OrderTypeTakeProfit, nil
	case types.OrderTypeTakeProfitLimit:
		return binance.OrderTypeTakeProfitLimit, nil
	case types.OrderTypeLimitMaker:
		return binance.OrderTypeLimitMaker, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrderType, "unsupported order type: %s", orderType)
	}
}

// orderFromBinance converts a venue order record. The local id is left
// zero; directory resolution belongs to the reconciler.
func orderFromBinance(o *binance.Order) (types.Order, error) {
	price, err := strconv.ParseFloat(o.Price, 64)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable price", err)
	}

	quantity, err := strconv.ParseFloat(o.OrigQuantity, 64)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable quantity", err)
	}

	stopPrice, err := strconv.ParseFloat(o.StopPrice, 64)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable stop price", err)
	}

	icebergQty, err := strconv.ParseFloat(o.IcebergQuantity, 64)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable iceberg quantity", err)
	}

	side, err := types.SideFromString(string(o.Side))
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable side", err)
	}

	orderType, err := types.OrderTypeFromString(string(o.Type))
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable order type", err)
	}

	return types.Order{
		ID:          0,
		Symbol:      o.Symbol,
		Side:        side,
		Type:        orderType,
		Quantity:    quantity,
		Price:       price,
		StopPrice:   stopPrice,
		IcebergQty:  icebergQty,
		TimeInForce: types.TimeInForce(o.TimeInForce),
		RecvWindow:  0,
		RemoteID:    o.OrderID,
		SubmittedAt: time.UnixMilli(o.Time),
	}, nil
}

func tradeFromBinance(t *binance.Trade) (types.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return types.Trade{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable trade price", err)
	}

	quantity, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return types.Trade{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable trade quantity", err)
	}

	quoteQty, err := strconv.ParseFloat(t.QuoteQuantity, 64)
	if err != nil {
		return types.Trade{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable trade quote quantity", err)
	}

	return types.Trade{
		ID:            t.ID,
		Price:         price,
		Quantity:      quantity,
		QuoteQuantity: quoteQty,
		Time:          time.UnixMilli(t.Time),
		IsBuyerMaker:  t.IsBuyerMaker,
		IsBestMatch:   t.IsBestMatch,
	}, nil
}

func barFromKline(symbol string, k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable open", err)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable high", err)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable low", err)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable close", err)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable volume", err)
	}

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(k.OpenTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

func priceLevel(price, volume string) (types.PriceLevel, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return types.PriceLevel{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable level price", err)
	}

	v, err := strconv.ParseFloat(volume, 64)
	if err != nil {
		return types.PriceLevel{}, errors.Wrap(errors.ErrCodeVenueMalformed, "unparseable level volume", err)
	}

	return types.PriceLevel{Price: p, Volume: v}, nil
}

// classifyError maps transport and API failures onto the venue error codes.
func classifyError(message string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -2014, -2015, -1002:
			return errors.Wrap(errors.ErrCodeVenueUnauthenticated, message, err)
		case -2013:
			return errors.Wrap(errors.ErrCodeVenueNotFound, message, err)
		case -2011:
			return errors.Wrap(errors.ErrCodeVenueRejected, message, err)
		default:
			return errors.Wrap(errors.ErrCodeVenueRejected, message, err)
		}
	}

	return errors.Wrap(errors.ErrCodeVenueTransient, message, err)
}

package broker

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// BinanceDecimalPrecision is the fallback quantity precision, satoshi level.
	BinanceDecimalPrecision = 8
	defaultQuoteAsset       = "USDT"
)

// Service interfaces for mocking the Binance API.

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListPricesService interface for latest ticker prices.
type ListPricesService interface {
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// BinanceClient abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewListPricesService() ListPricesService
}

type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

var _ Venue = (*BinanceVenue)(nil)

// BinanceVenue trades Binance spot. Cash is the free balance of the quote
// asset; a position is the total balance of the base asset. Equity values
// every held asset at its last price against the quote asset.
type BinanceVenue struct {
	client           BinanceClient
	quoteAsset       string
	decimalPrecision int
	logger           *logger.Logger
}

// NewBinanceVenue creates a Binance venue. BaseURL takes precedence over
// Testnet.
func NewBinanceVenue(config BinanceConfig, log *logger.Logger) (*BinanceVenue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceVenueWithClient(&realBinanceClient{client: client}, config.QuoteAsset, log), nil
}

func newBinanceVenueWithClient(client BinanceClient, quoteAsset string, log *logger.Logger) *BinanceVenue {
	if quoteAsset == "" {
		quoteAsset = defaultQuoteAsset
	}

	return &BinanceVenue{
		client:           client,
		quoteAsset:       strings.ToUpper(quoteAsset),
		decimalPrecision: BinanceDecimalPrecision,
		logger:           log.Named("venue.binance"),
	}
}

func (b *BinanceVenue) Name() string {
	return VenueBinance
}

func (b *BinanceVenue) Symbol(symbol string) (string, error) {
	return TranslateSymbol(VenueBinance, symbol)
}

func (b *BinanceVenue) Balance(ctx context.Context) (types.Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Balance{}, errors.Wrap(errors.ErrCodeBalanceQueryFailed, "failed to get account info from Binance", err)
	}

	free, _ := assetBalance(account, b.quoteAsset)

	equity, err := b.equity(ctx, account)
	if err != nil {
		return types.Balance{}, err
	}

	return types.Balance{Cash: free, Equity: equity}, nil
}

// equity sums the quote balance and every other asset marked at its
// <ASSET><QUOTE> ticker price. Assets without such a market are skipped.
func (b *BinanceVenue) equity(ctx context.Context, account *binance.Account) (float64, error) {
	total := decimal.Zero
	holdings := make(map[string]decimal.Decimal)

	for _, balance := range account.Balances {
		amount := parseDecimal(balance.Free).Add(parseDecimal(balance.Locked))
		if amount.IsZero() {
			continue
		}

		if balance.Asset == b.quoteAsset {
			total = total.Add(amount)

			continue
		}

		holdings[balance.Asset+b.quoteAsset] = amount
	}

	if len(holdings) == 0 {
		return total.InexactFloat64(), nil
	}

	prices, err := b.client.NewListPricesService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeBalanceQueryFailed, "failed to get ticker prices from Binance", err)
	}

	for _, price := range prices {
		amount, ok := holdings[price.Symbol]
		if !ok {
			continue
		}

		total = total.Add(amount.Mul(parseDecimal(price.Price)))
		delete(holdings, price.Symbol)
	}

	for symbol := range holdings {
		b.logger.Debug("No ticker price for held asset, excluded from equity", zap.String("symbol", symbol))
	}

	return total.InexactFloat64(), nil
}

func (b *BinanceVenue) Position(ctx context.Context, venueSymbol string) (float64, error) {
	base, ok := strings.CutSuffix(venueSymbol, b.quoteAsset)
	if !ok || base == "" {
		return 0, errors.Newf(errors.ErrCodeUnknownSymbol, "%s is not quoted in %s", venueSymbol, b.quoteAsset)
	}

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePositionQueryFailed, "failed to get account info from Binance", err)
	}

	free, locked := assetBalance(account, base)

	return free + locked, nil
}

func (b *BinanceVenue) PlaceOrder(ctx context.Context, order types.VenueOrder) (types.Execution, error) {
	var side binance.SideType

	switch order.Side {
	case types.SideBuy:
		side = binance.SideTypeBuy
	case types.SideSell:
		side = binance.SideTypeSell
	default:
		return types.Execution{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", order.Side)
	}

	quantity, err := formatQuantity(order.Size, b.decimalPrecision)
	if err != nil {
		return types.Execution{}, err
	}

	service := b.client.NewCreateOrderService().
		Symbol(order.VenueSymbol).
		Side(side).
		Quantity(quantity).
		NewClientOrderID(order.ClientID)

	switch order.Type {
	case types.OrderTypeMarket:
		service = service.Type(binance.OrderTypeMarket)
	case types.OrderTypeLimit:
		service = service.Type(binance.OrderTypeLimit).
			Price(strconv.FormatFloat(order.LimitPrice, 'f', -1, 64)).
			TimeInForce(binance.TimeInForceTypeGTC)
	default:
		return types.Execution{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type: %s", order.Type)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.Execution{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	return b.execution(order.VenueSymbol, resp), nil
}

func (b *BinanceVenue) execution(venueSymbol string, resp *binance.CreateOrderResponse) types.Execution {
	executed := parseDecimal(resp.ExecutedQuantity)
	quote := parseDecimal(resp.CummulativeQuoteQuantity)

	avg := decimal.Zero
	if executed.IsPositive() {
		avg = quote.Div(executed)
	}

	base := strings.TrimSuffix(venueSymbol, b.quoteAsset)
	commission := decimal.Zero

	for _, fill := range resp.Fills {
		fee := parseDecimal(fill.Commission)

		switch fill.CommissionAsset {
		case b.quoteAsset:
			commission = commission.Add(fee)
		case base:
			commission = commission.Add(fee.Mul(parseDecimal(fill.Price)))
		default:
			b.logger.Debug("Commission paid in a third asset is not booked",
				zap.String("asset", fill.CommissionAsset),
				zap.String("amount", fill.Commission),
			)
		}
	}

	return types.Execution{
		VenueOrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:       mapBinanceOrderStatus(resp.Status),
		FilledSize:   executed.InexactFloat64(),
		AveragePrice: avg.InexactFloat64(),
		Commission:   commission.InexactFloat64(),
		Time:         time.UnixMilli(resp.TransactTime).UTC(),
		Message:      string(resp.Status),
	}
}

func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusSubmitted
	}
}

func assetBalance(account *binance.Account, asset string) (float64, float64) {
	for _, balance := range account.Balances {
		if balance.Asset == asset {
			return parseDecimal(balance.Free).InexactFloat64(), parseDecimal(balance.Locked).InexactFloat64()
		}
	}

	return 0, 0
}

// formatQuantity truncates size to precision decimals so the venue never
// receives more than requested.
func formatQuantity(size float64, precision int) (string, error) {
	if size <= 0 {
		return "", errors.New(errors.ErrCodeInvalidOrder, "order quantity must be greater than zero")
	}

	truncated := decimal.NewFromFloat(size).Truncate(int32(precision))
	if !truncated.IsPositive() {
		return "", errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places", size, precision)
	}

	return truncated.String(), nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	return d
}

package broker

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	alpacaPaperURL = "https://paper-api.alpaca.markets"
	alpacaLiveURL  = "https://api.alpaca.markets"
)

// AlpacaClient is the subset of *alpaca.Client the venue uses.
type AlpacaClient interface {
	GetAccount() (*alpaca.Account, error)
	GetPosition(symbol string) (*alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
}

var _ Venue = (*AlpacaVenue)(nil)

// AlpacaVenue trades US equities and crypto through Alpaca.
type AlpacaVenue struct {
	client AlpacaClient
	logger *logger.Logger
}

// NewAlpacaVenue creates an Alpaca venue. BaseURL takes precedence over
// Paper.
func NewAlpacaVenue(config AlpacaConfig, log *logger.Logger) (*AlpacaVenue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = alpacaLiveURL
		if config.Paper {
			baseURL = alpacaPaperURL
		}
	}

	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    config.ApiKey,
		APISecret: config.SecretKey,
		BaseURL:   baseURL,
	})

	return newAlpacaVenueWithClient(client, log), nil
}

func newAlpacaVenueWithClient(client AlpacaClient, log *logger.Logger) *AlpacaVenue {
	return &AlpacaVenue{
		client: client,
		logger: log.Named("venue.alpaca"),
	}
}

func (a *AlpacaVenue) Name() string {
	return VenueAlpaca
}

func (a *AlpacaVenue) Symbol(symbol string) (string, error) {
	return TranslateSymbol(VenueAlpaca, symbol)
}

func (a *AlpacaVenue) Balance(ctx context.Context) (types.Balance, error) {
	account, err := callWithContext(ctx, a.client.GetAccount)
	if err != nil {
		return types.Balance{}, errors.Wrap(errors.ErrCodeBalanceQueryFailed, "failed to get account from Alpaca", err)
	}

	return types.Balance{
		Cash:   account.Cash.InexactFloat64(),
		Equity: account.Equity.InexactFloat64(),
	}, nil
}

func (a *AlpacaVenue) Position(ctx context.Context, venueSymbol string) (float64, error) {
	// Positions of crypto pairs are keyed without the slash.
	key := strings.ReplaceAll(venueSymbol, "/", "")

	position, err := callWithContext(ctx, func() (*alpaca.Position, error) {
		return a.client.GetPosition(key)
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, nil
		}

		return 0, errors.Wrap(errors.ErrCodePositionQueryFailed, "failed to get position from Alpaca", err)
	}

	return position.Qty.InexactFloat64(), nil
}

func (a *AlpacaVenue) PlaceOrder(ctx context.Context, order types.VenueOrder) (types.Execution, error) {
	qty := decimal.NewFromFloat(order.Size)

	req := alpaca.PlaceOrderRequest{
		Symbol:        order.VenueSymbol,
		Qty:           &qty,
		ClientOrderID: order.ClientID,
		TimeInForce:   alpaca.Day,
	}

	if IsCryptoSymbol(order.VenueSymbol) {
		req.TimeInForce = alpaca.GTC
	}

	switch order.Side {
	case types.SideBuy:
		req.Side = alpaca.Buy
	case types.SideSell:
		req.Side = alpaca.Sell
	default:
		return types.Execution{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", order.Side)
	}

	switch order.Type {
	case types.OrderTypeMarket:
		req.Type = alpaca.Market
	case types.OrderTypeLimit:
		limit := decimal.NewFromFloat(order.LimitPrice)
		req.Type = alpaca.Limit
		req.LimitPrice = &limit
	default:
		return types.Execution{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type: %s", order.Type)
	}

	placed, err := callWithContext(ctx, func() (*alpaca.Order, error) {
		return a.client.PlaceOrder(req)
	})
	if err != nil {
		return types.Execution{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Alpaca", err)
	}

	if order.Type == types.OrderTypeMarket {
		settled, err := pollUntilSettled(ctx, func() (*alpaca.Order, bool, error) {
			current, err := a.client.GetOrder(placed.ID)
			if err != nil {
				return nil, false, err
			}

			return current, mapAlpacaOrderStatus(current.Status).IsTerminal(), nil
		})
		if err != nil {
			a.logger.Warn("Failed to follow Alpaca order", zap.String("order_id", placed.ID), zap.Error(err))
		}

		if settled != nil {
			placed = settled
		}
	}

	return alpacaExecution(placed), nil
}

func alpacaExecution(order *alpaca.Order) types.Execution {
	exec := types.Execution{
		VenueOrderID: order.ID,
		Status:       mapAlpacaOrderStatus(order.Status),
		FilledSize:   order.FilledQty.InexactFloat64(),
		Time:         time.Now().UTC(),
		Message:      order.Status,
	}

	if order.FilledAvgPrice != nil {
		exec.AveragePrice = order.FilledAvgPrice.InexactFloat64()
	}

	if order.FilledAt != nil {
		exec.Time = order.FilledAt.UTC()
	}

	return exec
}

func mapAlpacaOrderStatus(status string) types.OrderStatus {
	switch status {
	case "filled":
		return types.OrderStatusFilled
	case "canceled", "expired", "done_for_day":
		return types.OrderStatusCancelled
	case "rejected":
		return types.OrderStatusRejected
	default:
		return types.OrderStatusSubmitted
	}
}

package broker

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const (
	oandaPracticeURL = "https://api-fxpractice.oanda.com"
	oandaLiveURL     = "https://api-fxtrade.oanda.com"
)

type oandaAccountSummary struct {
	Account struct {
		Balance string `json:"balance"`
		NAV     string `json:"NAV"`
	} `json:"account"`
}

type oandaPositionResponse struct {
	Position struct {
		Long struct {
			Units string `json:"units"`
		} `json:"long"`
		Short struct {
			Units string `json:"units"`
		} `json:"short"`
	} `json:"position"`
}

type oandaOrderRequest struct {
	Order oandaOrder `json:"order"`
}

type oandaOrder struct {
	Type             string                 `json:"type"`
	Instrument       string                 `json:"instrument"`
	Units            string                 `json:"units"`
	Price            string                 `json:"price,omitempty"`
	TimeInForce      string                 `json:"timeInForce"`
	PositionFill     string                 `json:"positionFill"`
	ClientExtensions oandaClientExtensions `json:"clientExtensions"`
}

type oandaClientExtensions struct {
	ID string `json:"id"`
}

type oandaOrderResponse struct {
	OrderCreateTransaction struct {
		ID string `json:"id"`
	} `json:"orderCreateTransaction"`
	OrderFillTransaction *struct {
		ID         string `json:"id"`
		Price      string `json:"price"`
		Units      string `json:"units"`
		Commission string `json:"commission"`
		Time       string `json:"time"`
	} `json:"orderFillTransaction"`
	OrderCancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
}

type oandaError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

var _ Venue = (*OandaVenue)(nil)

// OandaVenue trades forex and metals through the OANDA v20 REST API.
// Units are whole numbers; fractional sizes are truncated.
type OandaVenue struct {
	client    *resty.Client
	accountID string
	logger    *logger.Logger
}

// NewOandaVenue creates an OANDA venue. BaseURL takes precedence over
// Practice.
func NewOandaVenue(config OandaConfig, log *logger.Logger) (*OandaVenue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = oandaLiveURL
		if config.Practice {
			baseURL = oandaPracticeURL
		}
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(config.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept-Datetime-Format", "RFC3339")

	return &OandaVenue{
		client:    client,
		accountID: config.AccountID,
		logger:    log.Named("venue.oanda"),
	}, nil
}

func (o *OandaVenue) Name() string {
	return VenueOanda
}

func (o *OandaVenue) Symbol(symbol string) (string, error) {
	return TranslateSymbol(VenueOanda, symbol)
}

func (o *OandaVenue) Balance(ctx context.Context) (types.Balance, error) {
	var summary oandaAccountSummary

	var apiErr oandaError

	resp, err := o.client.R().
		SetContext(ctx).
		SetPathParam("account", o.accountID).
		SetResult(&summary).
		SetError(&apiErr).
		Get("/v3/accounts/{account}/summary")
	if err := oandaFailure(resp, err, apiErr); err != nil {
		return types.Balance{}, errors.Wrap(errors.ErrCodeBalanceQueryFailed, "failed to get OANDA account summary", err)
	}

	return types.Balance{
		Cash:   parseDecimal(summary.Account.Balance).InexactFloat64(),
		Equity: parseDecimal(summary.Account.NAV).InexactFloat64(),
	}, nil
}

func (o *OandaVenue) Position(ctx context.Context, venueSymbol string) (float64, error) {
	var position oandaPositionResponse

	var apiErr oandaError

	resp, err := o.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"account": o.accountID, "instrument": venueSymbol}).
		SetResult(&position).
		SetError(&apiErr).
		Get("/v3/accounts/{account}/positions/{instrument}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return 0, nil
	}

	if err := oandaFailure(resp, err, apiErr); err != nil {
		return 0, errors.Wrap(errors.ErrCodePositionQueryFailed, "failed to get OANDA position", err)
	}

	long := parseDecimal(position.Position.Long.Units)
	short := parseDecimal(position.Position.Short.Units)

	return long.Add(short).InexactFloat64(), nil
}

func (o *OandaVenue) PlaceOrder(ctx context.Context, order types.VenueOrder) (types.Execution, error) {
	units, err := formatQuantity(order.Size, 0)
	if err != nil {
		return types.Execution{}, err
	}

	if order.Side == types.SideSell {
		units = "-" + units
	}

	body := oandaOrderRequest{Order: oandaOrder{
		Type:             "MARKET",
		Instrument:       order.VenueSymbol,
		Units:            units,
		TimeInForce:      "FOK",
		PositionFill:     "DEFAULT",
		ClientExtensions: oandaClientExtensions{ID: order.ClientID},
	}}

	if order.Type == types.OrderTypeLimit {
		body.Order.Type = "LIMIT"
		body.Order.Price = strconv.FormatFloat(order.LimitPrice, 'f', -1, 64)
		body.Order.TimeInForce = "GTC"
	}

	var result oandaOrderResponse

	var apiErr oandaError

	resp, err := o.client.R().
		SetContext(ctx).
		SetPathParam("account", o.accountID).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v3/accounts/{account}/orders")
	if err := oandaFailure(resp, err, apiErr); err != nil {
		return types.Execution{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place OANDA order", err)
	}

	exec := types.Execution{
		VenueOrderID: result.OrderCreateTransaction.ID,
		Status:       types.OrderStatusSubmitted,
		Time:         time.Now().UTC(),
	}

	if fill := result.OrderFillTransaction; fill != nil {
		exec.Status = types.OrderStatusFilled
		exec.FilledSize = parseDecimal(fill.Units).Abs().InexactFloat64()
		exec.AveragePrice = parseDecimal(fill.Price).InexactFloat64()
		exec.Commission = parseDecimal(fill.Commission).InexactFloat64()

		if t, err := time.Parse(time.RFC3339Nano, fill.Time); err == nil {
			exec.Time = t.UTC()
		}
	}

	if cancel := result.OrderCancelTransaction; cancel != nil && result.OrderFillTransaction == nil {
		exec.Status = types.OrderStatusRejected
		exec.Message = cancel.Reason
	}

	return exec, nil
}

func oandaFailure(resp *resty.Response, err error, apiErr oandaError) error {
	if err != nil {
		return err
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeOrderFailed, "oanda returned %d: %s %s", resp.StatusCode(), apiErr.ErrorCode, apiErr.ErrorMessage)
	}

	return nil
}

package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

const (
	okxBaseURL         = "https://www.okx.com"
	okxTimestampLayout = "2006-01-02T15:04:05.000Z"
	okxQuantityDigits  = 8
)

type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type okxBalance struct {
	TotalEq string `json:"totalEq"`
	Details []struct {
		Ccy      string `json:"ccy"`
		AvailBal string `json:"availBal"`
		CashBal  string `json:"cashBal"`
	} `json:"details"`
}

type okxOrderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	ClOrdID string `json:"clOrdId"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px,omitempty"`
	TgtCcy  string `json:"tgtCcy,omitempty"`
}

type okxOrderAck struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

type okxOrderDetail struct {
	OrdID     string `json:"ordId"`
	State     string `json:"state"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	Fee       string `json:"fee"`
	FeeCcy    string `json:"feeCcy"`
	FillTime  string `json:"fillTime"`
}

var _ Venue = (*OKXVenue)(nil)

// OKXVenue trades OKX spot through the v5 REST API. Requests are signed
// with HMAC-SHA256 over timestamp, method, path and body.
type OKXVenue struct {
	client     *resty.Client
	apiKey     string
	secretKey  string
	passphrase string
	quoteAsset string
	now        func() time.Time
	logger     *logger.Logger
}

// NewOKXVenue creates an OKX venue.
func NewOKXVenue(config OKXConfig, log *logger.Logger) (*OKXVenue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = okxBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")

	if config.Demo {
		client.SetHeader("x-simulated-trading", "1")
	}

	quote := strings.ToUpper(config.QuoteAsset)
	if quote == "" {
		quote = defaultQuoteAsset
	}

	return &OKXVenue{
		client:     client,
		apiKey:     config.ApiKey,
		secretKey:  config.SecretKey,
		passphrase: config.Passphrase,
		quoteAsset: quote,
		now:        time.Now,
		logger:     log.Named("venue.okx"),
	}, nil
}

func (o *OKXVenue) Name() string {
	return VenueOKX
}

func (o *OKXVenue) Symbol(symbol string) (string, error) {
	return TranslateSymbol(VenueOKX, symbol)
}

func (o *OKXVenue) Balance(ctx context.Context) (types.Balance, error) {
	balances, err := o.balances(ctx, o.quoteAsset)
	if err != nil {
		return types.Balance{}, errors.Wrap(errors.ErrCodeBalanceQueryFailed, "failed to get OKX balance", err)
	}

	balance := types.Balance{}

	if len(balances) > 0 {
		balance.Equity = parseDecimal(balances[0].TotalEq).InexactFloat64()

		for _, detail := range balances[0].Details {
			if detail.Ccy == o.quoteAsset {
				balance.Cash = parseDecimal(detail.AvailBal).InexactFloat64()
			}
		}
	}

	return balance, nil
}

func (o *OKXVenue) Position(ctx context.Context, venueSymbol string) (float64, error) {
	base, _, ok := strings.Cut(venueSymbol, "-")
	if !ok {
		return 0, errors.Newf(errors.ErrCodeUnknownSymbol, "%s is not an OKX instrument id", venueSymbol)
	}

	balances, err := o.balances(ctx, base)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePositionQueryFailed, "failed to get OKX balance", err)
	}

	for _, balance := range balances {
		for _, detail := range balance.Details {
			if detail.Ccy == base {
				return parseDecimal(detail.CashBal).InexactFloat64(), nil
			}
		}
	}

	return 0, nil
}

func (o *OKXVenue) PlaceOrder(ctx context.Context, order types.VenueOrder) (types.Execution, error) {
	size, err := formatQuantity(order.Size, okxQuantityDigits)
	if err != nil {
		return types.Execution{}, err
	}

	req := okxOrderRequest{
		InstID:  order.VenueSymbol,
		TdMode:  "cash",
		ClOrdID: strings.ReplaceAll(order.ClientID, "-", ""),
		Side:    strings.ToLower(string(order.Side)),
		OrdType: "market",
		Sz:      size,
		TgtCcy:  "base_ccy",
	}

	if order.Type == types.OrderTypeLimit {
		req.OrdType = "limit"
		req.Px = strconv.FormatFloat(order.LimitPrice, 'f', -1, 64)
		req.TgtCcy = ""
	}

	var ack okxEnvelope[okxOrderAck]
	if err := o.do(ctx, "POST", "/api/v5/trade/order", nil, req, &ack); err != nil {
		return types.Execution{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place OKX order", err)
	}

	if len(ack.Data) == 0 {
		return types.Execution{}, errors.New(errors.ErrCodeOrderFailed, "OKX returned no order acknowledgement")
	}

	if ack.Data[0].SCode != "0" {
		return types.Execution{
			Status:  types.OrderStatusRejected,
			Message: ack.Data[0].SMsg,
			Time:    o.now().UTC(),
		}, nil
	}

	ordID := ack.Data[0].OrdID
	exec := types.Execution{VenueOrderID: ordID, Status: types.OrderStatusSubmitted, Time: o.now().UTC()}

	detail, err := pollUntilSettled(ctx, func() (okxOrderDetail, bool, error) {
		d, err := o.order(ctx, order.VenueSymbol, ordID)
		if err != nil {
			return okxOrderDetail{}, false, err
		}

		return d, mapOKXOrderState(d.State).IsTerminal(), nil
	})
	if err != nil {
		o.logger.Warn("Failed to follow OKX order", zap.String("order_id", ordID), zap.Error(err))

		return exec, nil
	}

	return o.execution(order.VenueSymbol, exec, detail), nil
}

func (o *OKXVenue) execution(venueSymbol string, exec types.Execution, detail okxOrderDetail) types.Execution {
	if detail.OrdID == "" {
		return exec
	}

	exec.Status = mapOKXOrderState(detail.State)
	exec.Message = detail.State
	exec.FilledSize = parseDecimal(detail.AccFillSz).InexactFloat64()

	avg := parseDecimal(detail.AvgPx)
	exec.AveragePrice = avg.InexactFloat64()

	// OKX reports charged fees as negative amounts.
	fee := parseDecimal(detail.Fee).Neg()

	base, _, _ := strings.Cut(venueSymbol, "-")

	switch detail.FeeCcy {
	case o.quoteAsset:
		exec.Commission = fee.InexactFloat64()
	case base:
		exec.Commission = fee.Mul(avg).InexactFloat64()
	}

	if ms, err := strconv.ParseInt(detail.FillTime, 10, 64); err == nil && ms > 0 {
		exec.Time = time.UnixMilli(ms).UTC()
	}

	return exec
}

func (o *OKXVenue) balances(ctx context.Context, ccy string) ([]okxBalance, error) {
	var out okxEnvelope[okxBalance]
	if err := o.do(ctx, "GET", "/api/v5/account/balance", url.Values{"ccy": {ccy}}, nil, &out); err != nil {
		return nil, err
	}

	return out.Data, nil
}

func (o *OKXVenue) order(ctx context.Context, instID, ordID string) (okxOrderDetail, error) {
	var out okxEnvelope[okxOrderDetail]
	if err := o.do(ctx, "GET", "/api/v5/trade/order", url.Values{"instId": {instID}, "ordId": {ordID}}, nil, &out); err != nil {
		return okxOrderDetail{}, err
	}

	if len(out.Data) == 0 {
		return okxOrderDetail{}, errors.Newf(errors.ErrCodeOrderNotFound, "OKX order %s not found", ordID)
	}

	return out.Data[0], nil
}

// do sends a signed request and decodes the envelope into out. A non-zero
// envelope code is an error.
func (o *OKXVenue) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	payload := ""

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOrder, "failed to encode OKX request", err)
		}

		payload = string(raw)
	}

	timestamp := o.now().UTC().Format(okxTimestampLayout)

	req := o.client.R().
		SetContext(ctx).
		SetHeader("OK-ACCESS-KEY", o.apiKey).
		SetHeader("OK-ACCESS-SIGN", signOKX(o.secretKey, timestamp, method, requestPath, payload)).
		SetHeader("OK-ACCESS-TIMESTAMP", timestamp).
		SetHeader("OK-ACCESS-PASSPHRASE", o.passphrase)

	if payload != "" {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, requestPath)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeOrderFailed, "okx returned %d: %s", resp.StatusCode(), resp.String())
	}

	var envelope okxEnvelope[json.RawMessage]
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode OKX response", err)
	}

	if envelope.Code != "0" {
		return errors.Newf(errors.ErrCodeOrderFailed, "okx error %s: %s", envelope.Code, envelope.Msg)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode OKX response", err)
	}

	return nil
}

// signOKX returns base64(HMAC-SHA256(secret, timestamp+method+path+body)).
func signOKX(secret, timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + strings.ToUpper(method) + requestPath + body))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func mapOKXOrderState(state string) types.OrderStatus {
	switch state {
	case "filled":
		return types.OrderStatusFilled
	case "canceled", "mmp_canceled":
		return types.OrderStatusCancelled
	default:
		return types.OrderStatusSubmitted
	}
}

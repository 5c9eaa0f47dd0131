// Package binance implements the exchange.Exchange interface against the
// Binance spot REST API.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/rmarques/cryptobot/internal/core"
	"github.com/rmarques/cryptobot/internal/exchange"
)

const (
	baseURL    = "https://api.binance.com"
	recvWindow = 5000
)

// Client is a Binance spot client. Public endpoints need no credentials;
// account and order endpoints require an API key/secret pair.
type Client struct {
	http      *resty.Client
	apiKey    string
	apiSecret string
	now       func() time.Time
}

// New creates a Binance client.
func New(apiKey, apiSecret string) *Client {
	http := resty.New()
	http.SetBaseURL(baseURL)
	http.SetTimeout(10 * time.Second)
	http.SetHeader("Accept", "application/json")

	return &Client{
		http:      http,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
	}
}

// NewWithBaseURL creates a client with custom base URL (for testing)
func NewWithBaseURL(apiKey, apiSecret, url string) *Client {
	c := New(apiKey, apiSecret)
	c.http.SetBaseURL(url)
	return c
}

func (c *Client) Name() string {
	return "binance"
}

// GetRecentCandles fetches the most recent closed klines for symbol.
func (c *Client) GetRecentCandles(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": toInterval(interval),
			"limit":    strconv.Itoa(limit),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrDataUnavailable, apiError(resp))
	}

	var klines [][]any
	if err := json.Unmarshal(resp.Body(), &klines); err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("decoding klines: %w", err))
	}

	candles := make([]core.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 7 {
			continue
		}

		closeStr, _ := k[4].(string)
		closeTime, _ := k[6].(float64)

		close, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}

		candles = append(candles, core.Candle{
			Symbol:    symbol,
			Interval:  interval,
			Close:     close,
			CloseTime: time.UnixMilli(int64(closeTime)),
		})
	}

	if len(candles) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no klines returned for %s", symbol))
	}
	return candles, nil
}

// GetLotConstraints fetches exchange filter metadata and extracts the
// LOT_SIZE triplet plus the optional notional floor. A symbol without a
// LOT_SIZE filter cannot be sized and fails with SYMBOL_NOT_FOUND.
func (c *Client) GetLotConstraints(ctx context.Context, symbol string) (*core.LotConstraints, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get("/api/v3/exchangeInfo")
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrSymbolNotFound, apiError(resp))
	}

	var info exchangeInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("decoding exchange info: %w", err))
	}
	if len(info.Symbols) == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("symbol %s not listed", symbol))
	}

	sym := info.Symbols[0]
	constraints := &core.LotConstraints{
		Symbol:     sym.Symbol,
		BaseAsset:  sym.BaseAsset,
		QuoteAsset: sym.QuoteAsset,
	}

	var haveLotSize bool
	for _, f := range sym.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			minQty, err1 := decimal.NewFromString(f.MinQty)
			maxQty, err2 := decimal.NewFromString(f.MaxQty)
			step, err3 := decimal.NewFromString(f.StepSize)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("malformed LOT_SIZE filter for %s", symbol))
			}
			constraints.MinQty = minQty
			constraints.MaxQty = maxQty
			constraints.StepSize = step
			haveLotSize = true
		case "MIN_NOTIONAL", "NOTIONAL":
			if notional, err := decimal.NewFromString(f.MinNotional); err == nil {
				constraints.MinNotional = notional
			}
		}
	}

	if !haveLotSize {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("symbol %s has no LOT_SIZE filter", symbol))
	}
	return constraints, nil
}

// GetCurrentPrice fetches the latest ticker price for symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get("/api/v3/ticker/price")
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, err)
	}
	if resp.IsError() {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, apiError(resp))
	}

	var ticker tickerPrice
	if err := json.Unmarshal(resp.Body(), &ticker); err != nil {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("decoding ticker: %w", err))
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("malformed price %q", ticker.Price))
	}
	return price, nil
}

// GetFreeBalance fetches the free balance of asset from the signed account
// endpoint. An asset absent from the account reports a zero balance.
func (c *Client) GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	params := url.Values{}
	query := c.signQuery(params)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryParamsFromValues(query).
		Get("/api/v3/account")
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, err)
	}
	if resp.IsError() {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, apiError(resp))
	}

	var account accountInfo
	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		return decimal.Zero, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("decoding account: %w", err))
	}

	for _, b := range account.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return decimal.Zero, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("malformed balance %q", b.Free))
		}
		return free, nil
	}
	return decimal.Zero, nil
}

// PlaceMarketOrder submits a signed market order.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, quantity decimal.Decimal) (*exchange.OrderConfirmation, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", quantity.String())
	query := c.signQuery(params)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryParamsFromValues(query).
		Post("/api/v3/order")
	if err != nil {
		return nil, core.WrapError(core.ErrOrderRejected, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrOrderRejected, apiError(resp))
	}

	var order orderResponse
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, core.WrapError(core.ErrOrderRejected, fmt.Errorf("decoding order response: %w", err))
	}

	executed, err := decimal.NewFromString(order.ExecutedQty)
	if err != nil {
		executed = quantity
	}

	return &exchange.OrderConfirmation{
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          side,
		Status:        order.Status,
		ExecutedQty:   executed,
		AvgFillPrice:  avgFillPrice(order.Fills),
		TransactTime:  time.UnixMilli(order.TransactTime),
	}, nil
}

// signQuery appends timestamp, recvWindow and the HMAC-SHA256 signature
// Binance requires on account and order endpoints.
func (c *Client) signQuery(params url.Values) url.Values {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(recvWindow))

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(params.Encode()))
	params.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	return params
}

// avgFillPrice returns the quantity-weighted mean of the reported fills.
func avgFillPrice(fills []orderFill) decimal.Decimal {
	var notional, qty decimal.Decimal
	for _, f := range fills {
		price, err1 := decimal.NewFromString(f.Price)
		fqty, err2 := decimal.NewFromString(f.Qty)
		if err1 != nil || err2 != nil {
			continue
		}
		notional = notional.Add(price.Mul(fqty))
		qty = qty.Add(fqty)
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return notional.Div(qty)
}

func apiError(resp *resty.Response) error {
	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Errorf("binance status %d code %d: %s", resp.StatusCode(), apiErr.Code, apiErr.Msg)
	}
	return fmt.Errorf("binance status %d", resp.StatusCode())
}

func toInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "30m":
		return interval
	case "1h", "2h", "4h":
		return interval
	case "1d":
		return "1d"
	case "1w":
		return "1w"
	default:
		return "1h"
	}
}

// Binance API response types
type exchangeInfo struct {
	Symbols []struct {
		Symbol     string         `json:"symbol"`
		BaseAsset  string         `json:"baseAsset"`
		QuoteAsset string         `json:"quoteAsset"`
		Filters    []symbolFilter `json:"filters"`
	} `json:"symbols"`
}

type symbolFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	MaxQty      string `json:"maxQty"`
	StepSize    string `json:"stepSize"`
	MinNotional string `json:"minNotional"`
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type accountInfo struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type orderFill struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

type orderResponse struct {
	Symbol        string      `json:"symbol"`
	OrderID       int64       `json:"orderId"`
	ClientOrderID string      `json:"clientOrderId"`
	TransactTime  int64       `json:"transactTime"`
	ExecutedQty   string      `json:"executedQty"`
	Status        string      `json:"status"`
	Fills         []orderFill `json:"fills"`
}

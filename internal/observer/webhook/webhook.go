// Package webhook implements an HTTP webhook observer. Events are posted as
// JSON; delivery failures are dropped silently because observer callbacks
// carry no failure channel back into the trading core.
package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rmarques/cryptobot/internal/core"
)

// Webhook posts observer events to a single URL.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a webhook observer for url. headers may be nil.
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) OnLogMessage(message, severity string) {
	w.post(map[string]any{
		"type":     "log",
		"message":  message,
		"severity": severity,
		"time":     time.Now().Format(time.RFC3339),
	})
}

func (w *Webhook) OnPriceUpdate(symbol string, price float64) {
	w.post(map[string]any{
		"type":   "price",
		"symbol": symbol,
		"price":  price,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (w *Webhook) OnOperation(op core.Operation) {
	w.post(map[string]any{
		"type":        "operation",
		"session_id":  op.SessionID,
		"side":        op.Type,
		"symbol":      op.Symbol,
		"price":       op.Price.String(),
		"quantity":    op.Quantity.String(),
		"total_value": op.TotalValue.String(),
		"time":        op.Time.Format(time.RFC3339),
	})
}

func (w *Webhook) post(payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const DefaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayConfig configures the Razorpay orders client.
type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// Razorpay talks to the Razorpay orders API.
type Razorpay struct {
	cfg    RazorpayConfig
	client *http.Client
}

func NewRazorpay(cfg RazorpayConfig) *Razorpay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRazorpayBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Razorpay{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount int64) (OrderHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   amount,
		Currency: r.cfg.Currency,
		Receipt:  strings.ToLower(ulid.Make().String()),
	})
	if err != nil {
		return OrderHandle{}, fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(r.cfg.BaseURL, "/")+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return OrderHandle{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return OrderHandle{}, fmt.Errorf("create order: %w", ErrTimeout)
		}
		return OrderHandle{}, fmt.Errorf("create order: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return OrderHandle{}, fmt.Errorf("read order response: %w", ErrTimeout)
		}
		return OrderHandle{}, fmt.Errorf("read order response: %w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode/100 != 2 {
		return OrderHandle{}, fmt.Errorf("create order: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return OrderHandle{}, fmt.Errorf("decode order response: %w: %v", ErrUnavailable, err)
	}
	if out.ID == "" {
		return OrderHandle{}, fmt.Errorf("create order: %w: empty order id", ErrUnavailable)
	}

	return OrderHandle{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}

func (r *Razorpay) Verify(receipt Receipt) bool {
	return VerifySignature(r.cfg.KeySecret, receipt)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Authority = (*Razorpay)(nil)

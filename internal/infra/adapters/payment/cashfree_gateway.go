// File: internal/infra/adapters/payment/cashfree_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*CashfreeGateway)(nil)

const (
	cashfreeProdURL    = "https://api.cashfree.com/pg"
	cashfreeSandboxURL = "https://sandbox.cashfree.com/pg"
)

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cashfree: http %d: %s %s", e.Status, e.Code, e.Message)
}

type CashfreeOptions struct {
	ClientID     string
	ClientSecret string
	APIVersion   string
	Sandbox      bool
	BaseURL      string // takes precedence over Sandbox when set
	Timeout      time.Duration
}

// CashfreeGateway implements adapter.PaymentGateway against the Cashfree PG REST API.
type CashfreeGateway struct {
	clientID     string
	clientSecret string
	apiVersion   string
	baseURL      string
	client       *http.Client
}

func NewCashfreeGateway(opts CashfreeOptions) (*CashfreeGateway, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New("cashfree client credentials empty")
	}
	base := cashfreeProdURL
	if opts.Sandbox {
		base = cashfreeSandboxURL
	}
	if opts.BaseURL != "" {
		if _, err := url.Parse(opts.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid cashfree base url: %w", err)
		}
		base = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "2023-08-01"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &CashfreeGateway{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		apiVersion:   opts.APIVersion,
		baseURL:      base,
		client:       &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (g *CashfreeGateway) Name() string { return "cashfree" }

type cfCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name,omitempty"`
}

type cfOrder struct {
	CFOrderID        flexString      `json:"cf_order_id"`
	OrderID          string          `json:"order_id"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	OrderStatus      string          `json:"order_status"`
	PaymentSessionID string          `json:"payment_session_id"`
	CustomerDetails  cfCustomer      `json:"customer_details"`
}

type cfPayment struct {
	CFPaymentID   flexString      `json:"cf_payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentGroup  string          `json:"payment_group"`
}

func (g *CashfreeGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.CreatedOrder, error) {
	payload := map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   json.Number(req.Amount.StringFixed(2)),
		"order_currency": req.Currency,
		"customer_details": cfCustomer{
			CustomerID:    req.Customer.ID,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
			CustomerName:  req.Customer.Name,
		},
		"order_meta": map[string]string{
			"return_url": req.ReturnURL,
			"notify_url": req.NotifyURL,
		},
	}
	if req.Note != "" {
		payload["order_note"] = req.Note
	}

	var out cfOrder
	if err := g.do(ctx, "create_order", http.MethodPost, "/orders", payload, &out); err != nil {
		return nil, err
	}
	if out.PaymentSessionID == "" {
		return nil, errors.New("cashfree: create order returned no payment_session_id")
	}
	return &adapter.CreatedOrder{
		OrderID:          out.OrderID,
		CFOrderID:        string(out.CFOrderID),
		PaymentSessionID: out.PaymentSessionID,
		Status:           out.OrderStatus,
	}, nil
}

func (g *CashfreeGateway) FetchOrder(ctx context.Context, orderID string) (*adapter.OrderStatus, error) {
	var out cfOrder
	if err := g.do(ctx, "fetch_order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &adapter.OrderStatus{
		OrderID:       out.OrderID,
		CFOrderID:     string(out.CFOrderID),
		Amount:        out.OrderAmount,
		Currency:      out.OrderCurrency,
		Status:        out.OrderStatus,
		CustomerEmail: out.CustomerDetails.CustomerEmail,
	}, nil
}

func (g *CashfreeGateway) FetchPayments(ctx context.Context, orderID string) ([]adapter.OrderPayment, error) {
	var out []cfPayment
	if err := g.do(ctx, "fetch_payments", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payments", nil, &out); err != nil {
		return nil, err
	}
	payments := make([]adapter.OrderPayment, 0, len(out))
	for _, p := range out {
		payments = append(payments, adapter.OrderPayment{
			CFPaymentID: string(p.CFPaymentID),
			Status:      p.PaymentStatus,
			Amount:      p.PaymentAmount,
			Method:      p.PaymentGroup,
		})
	}
	return payments, nil
}

func (g *CashfreeGateway) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGatewayCall(g.Name(), op, time.Since(start), err == nil) }()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-client-secret", g.clientSecret)
	req.Header.Set("x-api-version", g.apiVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cashfree: decode %s: %w", op, err)
	}
	return nil
}

// flexString accepts ids sent as either JSON strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

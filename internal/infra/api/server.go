package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/infra/auth"
	"homeloan-paywall/internal/infra/logging"
	"homeloan-paywall/internal/infra/metrics"
	"homeloan-paywall/internal/usecase"
)

const (
	HeaderWebhookSignature = "x-webhook-signature"
	HeaderWebhookTimestamp = "x-webhook-timestamp"

	defaultMaxBodyBytes = 64 << 10
)

type Options struct {
	CookieName     string
	Currency       string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Server exposes the paywall over HTTP. It only translates requests and
// errors; every decision is made by the use cases.
type Server struct {
	orders      usecase.OrderUseCase
	reconcile   usecase.ReconcileUseCase
	entitlement usecase.EntitlementUseCase
	verifier    auth.Verifier
	opts        Options
	log         *zerolog.Logger
}

func NewServer(
	orders usecase.OrderUseCase,
	reconcile usecase.ReconcileUseCase,
	entitlement usecase.EntitlementUseCase,
	verifier auth.Verifier,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	l := logger.With().Str("component", "api").Logger()
	return &Server{
		orders:      orders,
		reconcile:   reconcile,
		entitlement: entitlement,
		verifier:    verifier,
		opts:        opts,
		log:         &l,
	}
}

// Routes builds the router. RealIP runs first so rate-limit keys see the client address.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(s.opts.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhooks/payments", s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(s.verifier, s.opts.CookieName, s.log))
		r.Get("/entitlement", s.handleEntitlement)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{orderId}/verify", s.handleVerify)
	})
	return r
}

type entitlementResponse struct {
	HasAccess bool `json:"hasAccess"`
}

type createOrderResponse struct {
	OrderID          string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId"`
}

type paymentView struct {
	OrderID string      `json:"orderId"`
	Amount  json.Number `json:"amount"`
	Status  string      `json:"status"`
}

type verifyResponse struct {
	Success       bool         `json:"success"`
	PaymentStatus string       `json:"payment_status,omitempty"`
	Payment       *paymentView `json:"payment,omitempty"`
	Status        string       `json:"status,omitempty"`
	Message       string       `json:"message,omitempty"`
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	ok, err := s.entitlement.Check(r.Context(), p, clientKey(r), r.URL.Query().Get("email"))
	if err != nil {
		metrics.IncEntitlementCheck(errorLabel(err))
		s.fail(w, r, err)
		return
	}
	if ok {
		metrics.IncEntitlementCheck("granted")
	} else {
		metrics.IncEntitlementCheck("denied")
	}
	writeJSON(w, http.StatusOK, entitlementResponse{HasAccess: ok})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	order, err := s.orders.CreateOrder(r.Context(), p, clientKey(r))
	if err != nil {
		metrics.IncOrderCreated(errorLabel(err))
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			writeError(w, http.StatusBadGateway, "failed to create order")
			return
		}
		s.fail(w, r, err)
		return
	}
	metrics.IncOrderCreated("ok")
	writeJSON(w, http.StatusOK, createOrderResponse{OrderID: order.OrderID, PaymentSessionID: order.PaymentSessionID})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	out, err := s.reconcile.VerifyOrder(r.Context(), p, clientKey(r), chi.URLParam(r, "orderId"))
	s.recordReconcile(model.SourcePull, out, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !out.Success {
		writeJSON(w, http.StatusOK, verifyResponse{Success: false, Status: out.Status, Message: out.Message})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:       true,
		PaymentStatus: out.GatewayStatus,
		Payment: &paymentView{
			OrderID: out.OrderID,
			Amount:  json.Number(out.Amount.StringFixed(2)),
			Status:  out.Status,
		},
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes+1))
	if err != nil || int64(len(body)) > s.opts.MaxBodyBytes {
		metrics.IncWebhook("invalid")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	out, err := s.reconcile.HandleWebhook(r.Context(), usecase.WebhookRequest{
		ClientKey: clientKey(r),
		Signature: r.Header.Get(HeaderWebhookSignature),
		Timestamp: r.Header.Get(HeaderWebhookTimestamp),
		RawBody:   body,
	})
	s.recordReconcile(model.SourcePush, out, err)
	if err != nil {
		metrics.IncWebhook(errorLabel(err))
		s.fail(w, r, err)
		return
	}
	switch {
	case out.Ignored:
		metrics.IncWebhook("ignored")
	case out.Success:
		metrics.IncWebhook("accepted")
	default:
		metrics.IncWebhook("not_paid")
	}
	writeJSON(w, http.StatusOK, webhookResponse{Success: true, Message: out.Message})
}

// fail maps a use-case error to a status and a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "payment amount mismatch"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "payment gateway unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func errorLabel(err error) string {
	switch code, _ := statusFor(err); code {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "error"
	}
}

func (s *Server) recordReconcile(src model.Source, out *model.Outcome, err error) {
	var label string
	switch {
	case err != nil:
		label = errorLabel(err)
	case out.Ignored:
		label = "ignored"
	case !out.Success:
		label = "not_paid"
	case out.AlreadyDone:
		label = "already_done"
	default:
		label = "committed"
		metrics.IncPaymentCommitted(string(src), s.opts.Currency, out.Amount)
	}
	metrics.IncReconcile(string(src), label)
}

// clientKey is the remote IP after RealIP has applied forwarding headers.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adpilot/internal/domain"
	"adpilot/internal/infra/middleware"
	"adpilot/internal/usecase"
)

// webhookPayload is the inbound CRM webhook body. Field names follow the
// CRM's contact merge-tag template.
type webhookPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type webhookResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Server is the inbound webhook HTTP server. It adapts CRM webhook deliveries
// into requests for the orchestration controller and reports the outcome in
// the HTTP response.
type Server struct {
	controller *usecase.Controller
	logger     *slog.Logger
	srv        *http.Server
	started    time.Time
}

// NewServer builds the webhook server with security headers and a per-IP
// ingress throttle. ctx bounds the throttle's cleanup goroutine.
func NewServer(ctx context.Context, addr string, requestsPerMin, burst int, controller *usecase.Controller, registry *prometheus.Registry, logger *slog.Logger) *Server {
	s := &Server{
		controller: controller,
		logger:     logger,
		started:    time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	handler := middleware.SecurityHeaders(
		middleware.RateLimit(ctx, requestsPerMin, burst)(mux))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the server until it is shut down. Blocks.
func (s *Server) Start() error {
	s.logger.Info("webhook server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Success:   false,
			Error:     "invalid JSON body",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if payload.ID == "" || payload.Phone == "" || payload.Message == "" {
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Success:   false,
			Error:     "missing required fields: id, phone, and message are required",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	req := domain.Request{
		ID:             ulid.Make().String(),
		IdentityRaw:    formatPhone(payload.Phone),
		RawText:        payload.Message,
		DestinationRef: payload.ID,
	}

	s.logger.Info("webhook received",
		"request_id", req.ID,
		"contact_id", payload.ID,
		"contact_name", payload.Name,
	)

	outcome := s.controller.Handle(r.Context(), req)

	if !outcome.Authorized {
		writeJSON(w, http.StatusForbidden, webhookResponse{
			Success:   false,
			RequestID: outcome.RequestID,
			Error:     outcome.DenialReason,
			ContactID: payload.ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Success:   true,
		RequestID: outcome.RequestID,
		Message:   outcome.FinalText,
		ContactID: payload.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "adpilot",
		"endpoints": map[string]string{
			"/webhook": "POST - inbound CRM webhook",
			"/health":  "GET - health check",
			"/metrics": "GET - prometheus metrics",
			"/":        "GET - service information",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// formatPhone keeps only digits and restores the country prefix: a bare
// 10-digit national number gets a US country code, everything gets a leading
// "+". Mirrors how the CRM presents contact phone numbers.
func formatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 10 && !strings.HasPrefix(digits, "1") {
		digits = "1" + digits
	}
	return "+" + digits
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/boto/internal/dispatch"
	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/pkg/adapters/whatsapp"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/observability"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBody caps webhook payloads.
const maxBody = 1 << 20

// Dispatcher handles one inbound text for a phone.
type Dispatcher interface {
	Handle(ctx context.Context, phone, text string) (dispatch.Result, error)
}

// Deps are the collaborators of the webhook server. Metrics, Gatherer,
// Limiter and Ready are optional.
type Deps struct {
	Dispatcher  Dispatcher
	Sender      ports.Sender
	Messages    ports.MessageRepository
	VerifyToken string

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Limiter  *RateLimiter
	// Ready reports backing store health for /health.
	Ready func(ctx context.Context) error

	Logger *slog.Logger
	Now    func() time.Time
}

// Server serves the webhook routes.
type Server struct {
	Deps
}

// NewHandler builds the router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/webhook", s.Verify)
	r.Post("/webhook", s.Webhook)
	r.Get("/health", s.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Verify handles the subscription handshake (GET /webhook).
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, ok := whatsapp.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), s.VerifyToken)
	if !ok {
		s.Logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	s.Logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, challenge)
}

// Webhook handles notifications (POST /webhook). Messages are processed
// before the response is written.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	n, err := whatsapp.ParseWebhook(body, s.Now())
	if errors.Is(err, whatsapp.ErrUnsupportedObject) {
		s.count("ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		s.Logger.Warn("webhook: invalid payload", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Upstream retries on timeouts; finish the work even if it disconnects.
	ctx := context.WithoutCancel(r.Context())

	for _, st := range n.Statuses {
		s.count("status")
		if err := s.Messages.UpdateMessageStatus(ctx, st); err != nil {
			s.Logger.Error("failed to update message status", "id", st.WhatsAppMessageID, "error", err)
		}
	}
	for i := 0; i < n.Ignored; i++ {
		s.count("ignored")
	}
	for _, in := range n.Messages {
		s.handleInbound(ctx, in)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleInbound(ctx context.Context, in whatsapp.Inbound) {
	logger := s.Logger.With("phone", in.From, "id", in.ID)

	if s.Limiter != nil && !s.Limiter.Allow(in.From) {
		s.count("throttled")
		logger.Warn("sender throttled")
		return
	}

	fresh, err := s.Messages.RecordMessage(ctx, in.Message())
	switch {
	case err != nil:
		logger.Error("failed to record inbound message", "error", err)
	case !fresh:
		s.count("duplicate")
		logger.Info("duplicate delivery ignored")
		return
	}
	s.count("message")

	res, err := s.Dispatcher.Handle(ctx, in.From, in.Text)
	if err != nil {
		logger.Error("dispatch failed", "error", err)
	}
	if res.Reply.Body == "" {
		return
	}

	sent, err := s.Sender.Send(ctx, domain.ReplyTo(in.From, res.Reply))
	if s.Metrics != nil {
		s.Metrics.Outbound.WithLabelValues(sent.Status).Inc()
	}
	if err != nil {
		logger.Error("failed to send reply", "error", err)
	}
}

// Health reports liveness, and readiness when Ready is set.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) count(kind string) {
	if s.Metrics != nil {
		s.Metrics.Webhook.WithLabelValues(kind).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

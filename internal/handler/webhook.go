package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/zapi"
)

const maxWebhookBody = 1 << 20

// Processor runs one inbound message through the workflow engine.
type Processor interface {
	Process(ctx context.Context, in message.Inbound) error
}

type WebhookConfig struct {
	// Token, when set, must match the token query parameter.
	Token string
	// Async acknowledges before processing so the gateway does not retry slow turns.
	Async bool
	// Timeout bounds one turn; zero means 30s.
	Timeout time.Duration
}

type WebhookHandler struct {
	proc   Processor
	cfg    WebhookConfig
	logger *zap.Logger

	// queues holds pending async turns per actor. An actor has an entry while
	// its worker goroutine is running.
	mu       sync.Mutex
	queues   map[string][]turn
	inflight sync.WaitGroup
}

type turn struct {
	ctx    context.Context
	in     message.Inbound
	logger *zap.Logger
}

func NewWebhookHandler(proc Processor, cfg WebhookConfig, logger *zap.Logger) *WebhookHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{proc: proc, cfg: cfg, logger: logger, queues: map[string][]turn{}}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.HandleReceived)
	r.Get("/webhook", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "listening"})
	})
}

// HandleReceived decodes a Z-API "on message received" callback. Ignored
// callbacks and processing failures still answer 200 so the gateway does not
// redeliver them.
func (h *WebhookHandler) HandleReceived(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Token != "" && subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("token")), []byte(h.cfg.Token)) != 1 {
		writeError(w, h.logger, http.StatusUnauthorized, "invalid webhook token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "read body")
		return
	}
	in, err := zapi.DecodeCallback(body)
	if errors.Is(err, zapi.ErrIgnored) {
		h.logger.Debug("webhook ignored", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		h.logger.Warn("webhook rejected", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "malformed callback")
		return
	}

	logger := h.logger.With(zap.String("request_id", RequestIDFrom(r.Context())), zap.String("actor", in.ActorID))
	if h.cfg.Async {
		h.enqueue(turn{ctx: context.WithoutCancel(r.Context()), in: in, logger: logger})
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}

	if err := h.process(r.Context(), in, logger); err != nil {
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "failed"})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "success"})
}

// enqueue appends t to its actor's queue before the callback is acknowledged,
// so one actor's turns run in arrival order.
func (h *WebhookHandler) enqueue(t turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, running := h.queues[t.in.ActorID]
	h.queues[t.in.ActorID] = append(q, t)
	if running {
		return
	}
	h.inflight.Add(1)
	go h.work(t.in.ActorID)
}

// work runs an actor's queued turns one at a time and exits once the queue is empty.
func (h *WebhookHandler) work(actor string) {
	defer h.inflight.Done()
	for {
		h.mu.Lock()
		q := h.queues[actor]
		if len(q) == 0 {
			delete(h.queues, actor)
			h.mu.Unlock()
			return
		}
		t := q[0]
		q[0] = turn{}
		h.queues[actor] = q[1:]
		h.mu.Unlock()

		h.process(t.ctx, t.in, t.logger)
	}
}

func (h *WebhookHandler) process(ctx context.Context, in message.Inbound, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()
	start := time.Now()
	err := h.proc.Process(ctx, in)
	if err != nil {
		logger.Error("process message", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}
	logger.Debug("message processed", zap.Bool("media", in.Media != nil), zap.Duration("duration", time.Since(start)))
	return nil
}

// Drain waits for queued asynchronous turns to finish or ctx to expire.
func (h *WebhookHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

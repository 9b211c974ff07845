// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/cache"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/models"
	"banking-assistant/internal/pipeline"
)

const maxBodyBytes = 64 << 10

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Answerer runs the pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, q pipeline.Query) (*pipeline.Response, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP and websocket endpoints.
type Handler struct {
	answerer Answerer
	caches   *cache.Manager
	sessions *SessionStore
	checks   map[string]Pinger
	logger   Logger
}

// NewHandler builds the handler. checks may be empty.
func NewHandler(answerer Answerer, caches *cache.Manager, historyWindow int, checks map[string]Pinger, log Logger) *Handler {
	return &Handler{
		answerer: answerer,
		caches:   caches,
		sessions: NewSessionStore(caches.Context(), historyWindow),
		checks:   checks,
		logger:   log,
	}
}

type queryRequest struct {
	Question     string              `json:"question"`
	SessionID    string              `json:"sessionId"`
	UserLocation *models.Coordinates `json:"userLocation"`
	History      []models.Turn       `json:"history"`
}

// Query handles POST /api/v1/query.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, apperrors.NewInvalidQueryError("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.answerer.Answer(r.Context(), pipeline.Query{
		Question:     req.Question,
		SessionID:    req.SessionID,
		UserLocation: req.UserLocation,
		History:      req.History,
	})
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"caches": h.caches.Stats(),
	})
}

// ResetSession handles DELETE /api/v1/sessions/{id}.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existed := h.sessions.Reset(id)
	h.logger.Info("Session reset", map[string]interface{}{
		"sessionId": id,
		"existed":   existed,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"reset":     existed,
	})
}

// ClearCache handles DELETE /api/v1/cache/{name}.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c := h.caches.Get(name)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "unknown cache",
			"message": "unknown cache: " + name,
		})
		return
	}
	removed := c.Clear()
	h.logger.Info("Cache cleared", map[string]interface{}{
		"cache":   name,
		"removed": removed,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cache":   name,
		"removed": removed,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "healthy",
		"tablesVersion": analyzer.TablesVersion,
	})
}

// Ready pings every dependency and reports 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}

func statusFor(err error) int {
	se, ok := apperrors.AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case apperrors.ErrCodeInvalidQuery:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", map[string]interface{}{"error": err.Error()})
	}
	se, ok := apperrors.AsStandard(err)
	if !ok {
		se = apperrors.NewInternalError(err)
	}
	writeJSON(w, status, map[string]interface{}{
		"error":   se.Code,
		"message": se.Message,
		"detail":  se.Details,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

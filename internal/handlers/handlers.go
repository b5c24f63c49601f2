// Package handlers exposes the studio over a JSON HTTP API.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/metrics"
	"github.com/lehigh-university-libraries/studio/internal/session"
	"github.com/lehigh-university-libraries/studio/internal/studio"
)

// maxJSONBody leaves room for inline images in chat messages and patches.
const maxJSONBody = 4 * media.MaxUploadSize

type Handler struct {
	studio    *studio.Service
	staticDir string
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
}

type Option func(*Handler)

// WithMetrics records every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithRateLimit caps requests that call the generation service. A rate of
// zero disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func New(svc *studio.Service, staticDir string, opts ...Option) *Handler {
	h := &Handler{
		studio:    svc,
		staticDir: staticDir,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on a new ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		if h.metrics != nil {
			fn = h.metrics.Instrument(pattern, fn)
		}
		mux.HandleFunc(pattern, fn)
	}
	remote := func(pattern string, fn http.HandlerFunc) {
		handle(pattern, h.limited(pattern, fn))
	}

	handle("GET /api/state", h.HandleGetState)
	handle("PATCH /api/state/{section}", h.HandlePatchState)
	handle("PUT /api/state/tab", h.HandleSetTab)

	handle("POST /api/project/new", h.HandleNewProject)
	handle("GET /api/projects", h.HandleListProjects)
	handle("POST /api/projects", h.HandleSaveProject)
	handle("GET /api/projects/{id}", h.HandleGetProject)
	handle("POST /api/projects/{id}/load", h.HandleLoadProject)
	handle("DELETE /api/projects/{id}", h.HandleDeleteProject)

	handle("POST /api/uploads", h.HandleUpload)
	remote("POST /api/assistant/messages", h.HandleSendMessage)

	handle("POST /api/image/reference", h.HandleLoadReference)
	remote("POST /api/image/generate", h.HandleGenerateImage)
	remote("POST /api/image/edit", h.HandleEditImage)
	remote("POST /api/image/combine", h.HandleCombineImages)
	handle("POST /api/image/undo", h.HandleUndo)
	handle("POST /api/image/redo", h.HandleRedo)
	handle("POST /api/image/prompt", h.HandleBuildImagePrompt)
	handle("POST /api/image/combine-inputs", h.HandleAddCombineImage)
	handle("DELETE /api/image/combine-inputs/{index}", h.HandleRemoveCombineImage)
	handle("POST /api/image/custom-clothing", h.HandleAddCustomClothing)
	handle("DELETE /api/image/custom-clothing/{id}", h.HandleDeleteCustomClothing)
	handle("POST /api/image/custom-locations", h.HandleAddCustomLocation)
	handle("DELETE /api/image/custom-locations/{id}", h.HandleDeleteCustomLocation)
	handle("GET /api/image/options", h.HandlePromptOptions)

	handle("POST /api/video/mode", h.HandleSetVideoMode)
	handle("POST /api/video/upload", h.HandleVideoUpload)
	remote("POST /api/video/analyze", h.HandleAnalyzeVideo)
	remote("POST /api/video/generate", h.HandleGenerateVideo)
	handle("POST /api/video/prompt", h.HandleBuildVideoPrompt)
	handle("GET /api/video/current", h.HandleCurrentVideo)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("GET /", h.HandleStatic)

	return mux
}

// limited rejects the request with 429 when the generation rate limit is
// exhausted.
func (h *Handler) limited(route string, next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			slog.Warn("Rate limit exceeded", "route", route)
			writeErrorBody(w, http.StatusTooManyRequests, route+" failed: rate limit exceeded, try again shortly")
			return
		}
		next(w, r)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONCode(w, http.StatusOK, data)
}

func (h *Handler) writeJSONCode(w http.ResponseWriter, code int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write JSON response", "err", err)
	}
}

// writeError reports err as {"error": "<op> failed: <reason>"} with a status
// matching its kind.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "op", op, "status", code, "err", err)
	} else {
		slog.Warn("Request rejected", "op", op, "status", code, "err", err)
	}

	writeErrorBody(w, code, fmt.Sprintf("%s failed: %v", op, err))
}

func writeErrorBody(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

func statusOf(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsQuotaExceeded(err):
		return http.StatusInsufficientStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// also when a remote call failed because the request went away
		return http.StatusServiceUnavailable
	case apperrors.IsRemote(err):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// readJSON decodes the request body into v, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("body", "request body is empty")
		}
		return apperrors.Validation("body", "invalid JSON: %v", err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return nil, apperrors.Validation("body", "failed to read request body: %v", err)
	}
	return data, nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/greeting-bff/internal/forwarder"
)

const (
	headerContentType = "Content-Type"
	headerRequestID   = "X-Request-ID"
	contentTypeJSON   = "application/json"

	unavailableMessage = "Service temporarily unavailable"

	maxBodyBytes = 1 << 20
)

// ErrorResponse is the only error body sent to the browser.
type ErrorResponse struct {
	Message string `json:"message"`
}

// Settings supplies per-request configuration.
type Settings interface {
	BackendURL(ctx context.Context) string
	Description(ctx context.Context) string
}

// Forwarder performs a resilient upstream call.
type Forwarder interface {
	Forward(ctx context.Context, target string, opts forwarder.Options) (*forwarder.Response, error)
}

type GreetingsHandler struct {
	logger    *slog.Logger
	settings  Settings
	forwarder Forwarder
}

func NewGreetingsHandler(logger *slog.Logger, settings Settings, fwd Forwarder) *GreetingsHandler {
	return &GreetingsHandler{
		logger:    logger,
		settings:  settings,
		forwarder: fwd,
	}
}

// List handles GET /api/greetings.
func (h *GreetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, "/api/greetings", "", forwarder.Options{Method: http.MethodGet})
}

// Create handles POST /api/greetings. The body is passed through unparsed.
func (h *GreetingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Message: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	contentType := r.Header.Get(headerContentType)
	if contentType == "" {
		contentType = contentTypeJSON
	}

	h.proxy(w, r, "/api/greetings", "", forwarder.Options{
		Method: http.MethodPost,
		Header: http.Header{headerContentType: []string{contentType}},
		Body:   body,
	})
}

// Get handles GET /api/greetings/{id}.
func (h *GreetingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.proxy(w, r, "/api/greetings/"+url.PathEscape(id), id, forwarder.Options{Method: http.MethodGet})
}

// Delete handles DELETE /api/greetings/{id}.
func (h *GreetingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.proxy(w, r, "/api/greetings/"+url.PathEscape(id), id, forwarder.Options{Method: http.MethodDelete})
}

func (h *GreetingsHandler) proxy(w http.ResponseWriter, r *http.Request, path, id string, opts forwarder.Options) {
	ctx := r.Context()

	if requestID := r.Header.Get(headerRequestID); requestID != "" {
		if opts.Header == nil {
			opts.Header = http.Header{}
		}
		opts.Header.Set(headerRequestID, requestID)
	}

	// The forwarder bounds the call from the current settings, so the
	// server-wide write deadline must not cut the response short.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	target := h.settings.BackendURL(ctx) + path
	resp, err := h.forwarder.Forward(ctx, target, opts)
	if err != nil {
		attrs := []any{
			slog.String("method", opts.Method),
			slog.String("path", path),
			slog.Any("err", err),
		}
		if id != "" {
			attrs = append(attrs, slog.String("greeting_id", id))
		}
		h.logger.ErrorContext(ctx, "Greeting request failed", attrs...)

		writeJSON(w, http.StatusBadGateway, ErrorResponse{Message: unavailableMessage})
		return
	}

	writeUpstream(w, opts.Method, resp)
}

func writeUpstream(w http.ResponseWriter, method string, resp *forwarder.Response) {
	if method == http.MethodDelete && resp.StatusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType == "" {
		contentType = contentTypeJSON
	}

	w.Header().Set(headerContentType, contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

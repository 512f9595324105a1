package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"ollamaproxy/pkg/types"
)

// Service defines the methods required by the HTTP API layer. Implementations
// report upstream failures inside the returned values, never as errors.
type Service interface {
	Chat(ctx context.Context, req types.ChatRequest) types.ChatResponse
	HealthCheck(ctx context.Context) types.HealthResponse
}

// NewMux builds the API router: POST /chat and GET /healthz.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)

		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			logExchange(r, lvl, http.StatusUnsupportedMediaType, start, nil)
			return
		}
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			logExchange(r, lvl, http.StatusBadRequest, start, func(e *zerolog.Event) { e.Err(err) })
			return
		}
		// Presence check only; content is forwarded as-is.
		if strings.TrimSpace(req.Message) == "" {
			writeJSONError(w, http.StatusBadRequest, "message is required")
			logExchange(r, lvl, http.StatusBadRequest, start, nil)
			return
		}

		// Join server base context with request context so shutdown cancels the upstream call too.
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		resp := svc.Chat(ctx, req)

		writeJSON(w, http.StatusOK, resp)
		logExchange(r, lvl, http.StatusOK, start, func(e *zerolog.Event) {
			e.Bool("system_prompt", req.SystemPrompt != "").Str("reply", resp.Response)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		resp := svc.HealthCheck(ctx)
		writeJSON(w, http.StatusOK, resp)
		logExchange(r, requestLogLevel(r), http.StatusOK, start, func(e *zerolog.Event) {
			e.Str("health", resp.Status).Str("detail", resp.Message)
		})
	})

	return r
}

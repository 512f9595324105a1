// Package chat translates between the proxy's request/response shapes and the
// Ollama chat protocol. No error leaves this package: upstream failures are
// folded into the returned responses.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ollamaproxy/internal/ollama"
	"ollamaproxy/pkg/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemma3:4b"

// Fixed reply texts.
const (
	NoResponseText   = "No response from Ollama server."
	NotHealthyText   = "Ollama server not healthy"
	errorPrefix      = "Error: "
	connectedPrefix  = "Connected to Ollama "
	unknownVersion   = "unknown"
	emptyMessageText = "message is required"
)

// Upstream is the subset of the Ollama client used by the service.
type Upstream interface {
	PostChat(ctx context.Context, payload ollama.ChatPayload) (ollama.ChatResult, error)
	Version(ctx context.Context) (ollama.VersionResult, error)
}

// Service implements the chat and health operations. It holds no mutable state.
type Service struct {
	upstream Upstream
	model    string
	log      zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger installs a structured logger. Default is a disabled logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService constructs a Service bound to one upstream and model.
func NewService(up Upstream, model string, opts ...Option) *Service {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	s := &Service{upstream: up, model: model, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Model returns the model identifier sent upstream.
func (s *Service) Model() string { return s.model }

// BuildPayload assembles the upstream chat payload. The system message, when
// present, is first; the user message is always last.
func BuildPayload(model string, req types.ChatRequest) ollama.ChatPayload {
	msgs := make([]ollama.Message, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, ollama.Message{Role: ollama.RoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, ollama.Message{Role: ollama.RoleUser, Content: req.Message})
	return ollama.ChatPayload{Model: model, Messages: msgs, Stream: false}
}

// Chat forwards one user message and returns the model's reply, or an
// "Error: ..." text when anything goes wrong.
func (s *Service) Chat(ctx context.Context, req types.ChatRequest) types.ChatResponse {
	start := time.Now()
	ev := s.log.With().Str("exchange_id", exchangeID(ctx)).Str("model", s.model).Logger()

	if strings.TrimSpace(req.Message) == "" {
		ev.Debug().Str("outcome", "rejected").Msg("chat")
		countReply(replyRejected)
		return types.ChatResponse{Response: errorPrefix + emptyMessageText}
	}

	res, err := s.upstream.PostChat(ctx, BuildPayload(s.model, req))
	if err != nil {
		ev.Warn().Err(err).Dur("dur", time.Since(start)).Str("outcome", "error").Msg("chat")
		countReply(replyError)
		return types.ChatResponse{Response: errorPrefix + err.Error()}
	}
	text, err := res.Text()
	if ollama.IsMissingField(err) {
		ev.Warn().Err(err).Dur("dur", time.Since(start)).Str("outcome", "empty").Msg("chat")
		countReply(replyEmpty)
		return types.ChatResponse{Response: NoResponseText}
	}
	ev.Info().Dur("dur", time.Since(start)).Int("reply_len", len(text)).Str("outcome", "ok").Msg("chat")
	countReply(replyOK)
	return types.ChatResponse{Response: text}
}

// HealthCheck reports whether the upstream answers /api/version.
func (s *Service) HealthCheck(ctx context.Context) types.HealthResponse {
	ev := s.log.With().Str("exchange_id", exchangeID(ctx)).Logger()

	v, err := s.upstream.Version(ctx)
	switch {
	case err == nil:
		// Only an absent key is unknown; an empty string is reported as is.
		version := unknownVersion
		if v.Version != nil {
			version = *v.Version
		}
		ev.Debug().Str("version", version).Msg("health ok")
		return types.HealthResponse{Status: types.HealthOK, Message: connectedPrefix + version}
	case ollama.IsStatus(err):
		ev.Warn().Err(err).Msg("health not ok")
		return types.HealthResponse{Status: types.HealthError, Message: NotHealthyText}
	default:
		ev.Warn().Err(err).Msg("health error")
		return types.HealthResponse{Status: types.HealthError, Message: errorPrefix + err.Error()}
	}
}

// exchangeID correlates log lines of one exchange: the HTTP request id when
// the call came through the router, otherwise a fresh uuid.
func exchangeID(ctx context.Context) string {
	if rid := middleware.GetReqID(ctx); rid != "" {
		return rid
	}
	return uuid.NewString()
}

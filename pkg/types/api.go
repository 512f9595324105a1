package types

// ChatRequest is the payload accepted by POST /chat.
type ChatRequest struct {
	// Required user utterance.
	// example: Recommend an album for a rainy afternoon.
	Message string `json:"message" example:"Recommend an album for a rainy afternoon."`
	// Optional instruction sent to the model as a system message before the user message.
	// example: You are an enthusiastic music lover.
	SystemPrompt string `json:"systemPrompt,omitempty" example:"You are an enthusiastic music lover."`
}

// ChatResponse is returned by POST /chat. On upstream failure Response carries
// an "Error: ..." description instead of the model reply.
type ChatResponse struct {
	// Model reply text or error description.
	// example: Try Nick Drake's Pink Moon.
	Response string `json:"response" example:"Try Nick Drake's Pink Moon."`
}

// Health status values.
const (
	HealthOK    = "ok"
	HealthError = "error"
)

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	// Either "ok" or "error".
	// example: ok
	Status string `json:"status" example:"ok"`
	// Diagnostic detail such as the upstream version or the failure.
	// example: Connected to Ollama 0.5.1
	Message string `json:"message" example:"Connected to Ollama 0.5.1"`
}

// ErrorResponse is a consistent JSON error payload for malformed requests.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

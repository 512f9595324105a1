package ollama

// Message roles understood by /api/chat.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPayload is the body of POST /api/chat.
type ChatPayload struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	// Stream must stay false; this client decodes a single JSON object.
	Stream bool `json:"stream"`
}

// Reply is the assistant turn of a chat result. Content is nil when the
// server omitted it.
type Reply struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// ChatResult is the non-streaming /api/chat reply. Message is nil when the
// server omitted it or sent an empty body.
type ChatResult struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   *Reply `json:"message"`
	Done      bool   `json:"done"`
}

// Text returns the reply content, or a MissingFieldError naming the first
// absent field.
func (r ChatResult) Text() (string, error) {
	if r.Message == nil {
		return "", MissingFieldError{Field: "message"}
	}
	if r.Message.Content == nil {
		return "", MissingFieldError{Field: "message.content"}
	}
	return *r.Message.Content, nil
}

// VersionResult is the body of GET /api/version. Version is nil when the key
// is absent.
type VersionResult struct {
	Version *string `json:"version"`
}

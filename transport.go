package threadchat

// Wire contract between a Controller on one side of a network boundary and a
// Generator on the other.
const (
	ChatPath       = "/api/chat"
	ThreadIDHeader = "X-Thread-Id"
)

// ChatRequest is the body of a chat request: the whole history plus the
// thread id the caller last saw, if any.
type ChatRequest struct {
	Messages []Message `json:"messages" jsonschema:"required"`
	ThreadID string    `json:"threadId,omitempty"`
}

package chat

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCall lifecycle states. Transitions only ever move forward.
const (
	ToolStarted   = "started"
	ToolExecuting = "executing"
	ToolDone      = "done"
)

// ToolCall is one server-side tool invocation surfaced inside an
// assistant message. Input is attached at the executing transition,
// ResultPreview at the done transition.
type ToolCall struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Input         map[string]interface{} `json:"input,omitempty"`
	Status        string                 `json:"status"`
	ResultPreview string                 `json:"result_preview,omitempty"`
}

// Message represents a single chat message. User messages are created
// fully formed and never change; assistant messages are patched field
// by field while their reply streams in.
type Message struct {
	ID          string     `json:"id"`
	Role        string     `json:"role"`
	Content     string     `json:"content"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	IsStreaming bool       `json:"is_streaming,omitempty"`
	Timestamp   int64      `json:"timestamp,omitempty"` // epoch milliseconds
}

// Session represents one titled conversation. MessageCount is always
// recomputed from the message log, never incremented.
type Session struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
}

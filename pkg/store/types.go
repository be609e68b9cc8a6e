package store

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole defines the role of a message in the conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCall is a structured request from the model to invoke a named tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one turn in the conversation. Messages are never mutated after
// creation; they are appended to the log and only removed in bulk by
// truncation (cap enforcement, compression, or clear).
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// ToolCalls is set on assistant messages that request tool invocations,
	// in the order the model emitted them.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Set only on tool-result messages. ToolCallID links back to the
	// originating call in the immediately preceding assistant message.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
	Denied     bool   `json:"denied,omitempty"`
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// NewSystemMessage builds a system message. System messages are rebuilt each
// turn and are never persisted to the log.
func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage builds a user message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds an assistant message carrying optional tool calls.
func NewAssistantMessage(content string, calls []ToolCall) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		ToolCalls: calls,
	}
}

// NewToolResult builds a tool-result message for the given call.
func NewToolResult(call ToolCall, content string) Message {
	return Message{
		ID:         uuid.New().String(),
		Role:       RoleTool,
		Content:    content,
		Timestamp:  time.Now(),
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// NewToolError builds a tool-result message carrying an execution failure.
// Failures are fed back to the model rather than propagated as crashes.
func NewToolError(call ToolCall, content string) Message {
	m := NewToolResult(call, content)
	m.IsError = true
	return m
}

// NewToolDenial builds a tool-result message recording that the user declined
// the call. Denial is a modeled outcome, distinct from failure.
func NewToolDenial(call ToolCall) Message {
	m := NewToolResult(call, "The user denied permission to execute this tool call.")
	m.Denied = true
	return m
}

// Log is an ordered, bounded conversation log with write-through persistence.
type Log interface {
	// Append persists a message at the end of the log. The oldest messages
	// are dropped once the configured cap is exceeded.
	Append(Message) error

	// Messages returns the current window, oldest first.
	Messages() []Message

	// Len returns the number of stored messages.
	Len() int

	// Clear removes all messages, on disk and in memory.
	Clear() error

	Close() error
}

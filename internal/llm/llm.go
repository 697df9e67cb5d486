// Package llm defines the chat completion capability the conversation agent
// consumes, plus an OpenAI-compatible HTTP client implementation.
package llm

import "context"

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons returned by the completion endpoint
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

// Message is a single entry of a conversation
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the requested tool name and its raw JSON arguments
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef describes a callable tool in the function-calling manifest
type ToolDef struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec is the JSON-schema description of a single tool
type FunctionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Response is one completion: optional free text, a finish signal and
// zero or more requested tool calls.
type Response struct {
	Content      string
	FinishReason string
	ToolCalls    []ToolCall
}

// Client is the chat completion capability
type Client interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error)
}

package agent

import (
	"github.com/epicwp/bulkagent/internal/logger"
)

// ProcessLogger is the observability hook for the conversation phases. One
// method per event type; implementations must not fail.
type ProcessLogger interface {
	ConversationStart(task string, productID int64)
	Iteration(n int)
	Response(content string, toolCalls int)
	ToolCall(name, arguments string)
	ToolResult(result string)
	ToolError(name, message string)
	TaskComplete(finalMessage string)
	MaxIterationsReached()
}

// NopLogger discards all process events
type NopLogger struct{}

func (NopLogger) ConversationStart(string, int64) {}
func (NopLogger) Iteration(int)                   {}
func (NopLogger) Response(string, int)            {}
func (NopLogger) ToolCall(string, string)         {}
func (NopLogger) ToolResult(string)               {}
func (NopLogger) ToolError(string, string)        {}
func (NopLogger) TaskComplete(string)             {}
func (NopLogger) MaxIterationsReached()           {}

// BasicLogger logs conversation lifecycle events only
type BasicLogger struct{}

// ConversationStart logs the start of a conversation
func (BasicLogger) ConversationStart(task string, productID int64) {
	logger.InfoWithFields("Conversation started", map[string]interface{}{
		"task":       task,
		"product_id": productID,
	})
}

func (BasicLogger) Iteration(int)            {}
func (BasicLogger) Response(string, int)     {}
func (BasicLogger) ToolCall(string, string)  {}
func (BasicLogger) ToolResult(string)        {}
func (BasicLogger) ToolError(string, string) {}

// TaskComplete logs the final message of a completed conversation
func (BasicLogger) TaskComplete(finalMessage string) {
	logger.InfoWithFields("Task complete", map[string]interface{}{
		"message": finalMessage,
	})
}

// MaxIterationsReached logs the exhaustion of the iteration budget
func (BasicLogger) MaxIterationsReached() {
	logger.Warn("Max iterations reached without completion")
}

// VerboseLogger logs every conversation phase including tool traffic
type VerboseLogger struct{}

// ConversationStart logs the start of a conversation
func (VerboseLogger) ConversationStart(task string, productID int64) {
	logger.InfoWithFields("Conversation started", map[string]interface{}{
		"task":       task,
		"product_id": productID,
	})
}

// Iteration logs the start of an iteration
func (VerboseLogger) Iteration(n int) {
	logger.Infof("Iteration %d", n)
}

// Response logs the model response shape
func (VerboseLogger) Response(content string, toolCalls int) {
	logger.InfoWithFields("Model response", map[string]interface{}{
		"content":    content,
		"tool_calls": toolCalls,
	})
}

// ToolCall logs a requested tool call
func (VerboseLogger) ToolCall(name, arguments string) {
	logger.InfoWithFields("Tool call", map[string]interface{}{
		"tool":      name,
		"arguments": arguments,
	})
}

// ToolResult logs a tool result
func (VerboseLogger) ToolResult(result string) {
	logger.DebugWithFields("Tool result", map[string]interface{}{
		"result": result,
	})
}

// ToolError logs a failed tool call
func (VerboseLogger) ToolError(name, message string) {
	logger.WarnWithFields("Tool error", map[string]interface{}{
		"tool":  name,
		"error": message,
	})
}

// TaskComplete logs the final message of a completed conversation
func (VerboseLogger) TaskComplete(finalMessage string) {
	logger.InfoWithFields("Task complete", map[string]interface{}{
		"message": finalMessage,
	})
}

// MaxIterationsReached logs the exhaustion of the iteration budget
func (VerboseLogger) MaxIterationsReached() {
	logger.Warn("Max iterations reached without completion")
}

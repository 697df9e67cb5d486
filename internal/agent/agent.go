// Package agent drives one bounded tool-calling conversation against the
// LLM to accomplish a task on a single product.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/epicwp/bulkagent/internal/catalog"
	"github.com/epicwp/bulkagent/internal/llm"
	"github.com/epicwp/bulkagent/internal/tools"
)

// DefaultMaxIterations bounds the conversation loop
const DefaultMaxIterations = 10

// DefaultSystemPrompt is the fixed system instruction seeding every conversation
const DefaultSystemPrompt = "You are a product content editor. You are given a task to perform on a product. You are also given the product id."

// Agent runs one task-to-product conversation at a time. It is not safe for
// concurrent use; the reference model processes one job in flight.
type Agent struct {
	client        llm.Client
	registry      *tools.Registry
	plog          ProcessLogger
	systemPrompt  string
	maxIterations int
}

// Option configures an Agent
type Option func(*Agent)

// WithSystemPrompt overrides the default system instruction
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithMaxIterations overrides the iteration ceiling
func WithMaxIterations(n int) Option {
	return func(a *Agent) { a.maxIterations = n }
}

// WithProcessLogger sets the observability hook for conversation phases
func WithProcessLogger(plog ProcessLogger) Option {
	return func(a *Agent) { a.plog = plog }
}

// New creates an agent over the given chat client and tool registry
func New(client llm.Client, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		client:        client,
		registry:      registry,
		plog:          NopLogger{},
		systemPrompt:  DefaultSystemPrompt,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PerformTask runs the conversation until the model signals completion or
// the iteration ceiling is reached. It returns whether the task completed;
// reaching the ceiling is a reported non-completion, not an error. The error
// return is reserved for hard failures reaching the LLM endpoint.
func (a *Agent) PerformTask(ctx context.Context, task string, productID int64) (bool, error) {
	a.plog.ConversationStart(task, productID)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.systemPrompt},
		{Role: llm.RoleUser, Content: "Task: " + task},
		{Role: llm.RoleUser, Content: "Product ID: " + strconv.FormatInt(productID, 10)},
	}
	manifest := a.registry.Manifest()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		a.plog.Iteration(iteration)

		response, err := a.client.Complete(ctx, messages, manifest)
		if err != nil {
			return false, fmt.Errorf("completion failed: %w", err)
		}
		a.plog.Response(response.Content, len(response.ToolCalls))

		if len(response.ToolCalls) > 0 {
			// Record the assistant turn, then execute the requested calls
			// strictly in the order received: later calls may depend on
			// earlier mutations.
			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   response.Content,
				ToolCalls: response.ToolCalls,
			})
			for _, call := range response.ToolCalls {
				messages = append(messages, a.executeToolCall(ctx, call))
			}
			continue
		}

		if response.FinishReason == llm.FinishReasonStop {
			a.plog.TaskComplete(response.Content)
			return true, nil
		}

		// No tool calls and no stop signal: keep the content and iterate
		if response.Content != "" {
			messages = append(messages, llm.Message{
				Role:    llm.RoleAssistant,
				Content: response.Content,
			})
		}
	}

	a.plog.MaxIterationsReached()
	return false, nil
}

// executeToolCall runs one requested call through the registry. A tool
// failure never aborts the conversation; it is surfaced to the model as the
// tool result.
func (a *Agent) executeToolCall(ctx context.Context, call llm.ToolCall) llm.Message {
	a.plog.ToolCall(call.Function.Name, call.Function.Arguments)

	args := map[string]interface{}{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			a.plog.ToolError(call.Function.Name, err.Error())
			return toolResultMessage(call.ID, "Error: invalid tool arguments: "+err.Error())
		}
	}

	result, err := a.registry.Execute(ctx, call.Function.Name, args)
	if err != nil {
		a.plog.ToolError(call.Function.Name, err.Error())
		return toolResultMessage(call.ID, "Error: "+err.Error())
	}

	serialized := serializeResult(result)
	a.plog.ToolResult(serialized)
	return toolResultMessage(call.ID, serialized)
}

func toolResultMessage(callID, content string) llm.Message {
	return llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: callID,
		Content:    content,
	}
}

// serializeResult renders a tool result for the model. Product objects are
// flattened to a plain field map before serialization.
func serializeResult(result interface{}) string {
	switch v := result.(type) {
	case nil:
		return "null"
	case string:
		return v
	case *catalog.Product:
		result = v.Fields()
	case []catalog.Product:
		flattened := make([]map[string]interface{}, len(v))
		for i := range v {
			flattened[i] = v[i].Fields()
		}
		result = flattened
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

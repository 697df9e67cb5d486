// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/epicwp/bulkagent/internal/logger"
)

// Type represents the type of lifecycle event
type Type string

const (
	// TypeBeforeToolExecute is emitted by the tool registry before a tool runs
	TypeBeforeToolExecute Type = "before_tool_execute"
	// TypeAfterToolExecute is emitted by the tool registry after a tool ran
	TypeAfterToolExecute Type = "after_tool_execute"
	// TypeBeforePerformTask is emitted by the job processor before a job's conversation starts
	TypeBeforePerformTask Type = "before_perform_task"
	// TypeJobFinished is emitted by the job processor when a job reaches a terminal state
	TypeJobFinished Type = "job_finished"
)

// Event represents a lifecycle event
type Event struct {
	Type      Type                   // The type of event
	ToolName  string                 // The tool being executed, for tool events
	Arguments map[string]interface{} // The tool arguments, for tool events
	Result    interface{}            // The tool result, for after-execute events
	JobID     uint                   // The job, for job events
	Success   bool                   // The job outcome, for job-finished events
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus delivers events synchronously and in order to all registered
// handlers. Synchronous delivery is load-bearing: the rollback engine must
// have captured a property's previous value before the mutating tool runs.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("Registered handler for event type: %s", eventType)
}

// Publish delivers an event to every handler registered for its type, in
// registration order. A handler error is logged and does not stop delivery
// to the remaining handlers.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	eventHandlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range eventHandlers {
		if err := handler(ctx, event); err != nil {
			logger.Errorf("Failed to handle event %s: %v", event.Type, err)
		}
	}
}

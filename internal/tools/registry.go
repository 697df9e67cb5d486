// Package tools declares the named, schema-described operations the agent
// may invoke and dispatches them by name. The registry is the single choke
// point for product mutation: every execute is bracketed by before/after
// events, which is where the rollback engine hangs its capture.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/epicwp/bulkagent/internal/events"
	"github.com/epicwp/bulkagent/internal/llm"
)

// ErrToolNotFound is returned when a tool name is not registered
var ErrToolNotFound = errors.New("tool not found")

// Param describes one tool parameter
type Param struct {
	Type        string
	Description string
	Required    bool
}

// Spec describes a registered tool: its name, a human description and a
// JSON-schema-like parameter description.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]Param
	// paramOrder preserves declaration order for stable manifests
	paramOrder []string
}

// NewSpec builds a Spec with parameters in the given declaration order
func NewSpec(name, description string, params ...NamedParam) Spec {
	spec := Spec{
		Name:        name,
		Description: description,
		Parameters:  make(map[string]Param, len(params)),
	}
	for _, p := range params {
		spec.Parameters[p.Name] = p.Param
		spec.paramOrder = append(spec.paramOrder, p.Name)
	}
	return spec
}

// NamedParam pairs a parameter name with its description
type NamedParam struct {
	Name  string
	Param Param
}

// ToolDef renders the spec as a function-calling manifest entry
func (s Spec) ToolDef() llm.ToolDef {
	properties := make(map[string]interface{}, len(s.Parameters))
	var required []string
	for _, name := range s.paramOrder {
		p := s.Parameters[name]
		properties[name] = map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, name)
		}
	}
	parameters := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		parameters["required"] = required
	}
	return llm.ToolDef{
		Type: "function",
		Function: llm.FunctionSpec{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  parameters,
		},
	}
}

// HandlerFunc is the bound implementation of a tool
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type tool struct {
	spec    Spec
	handler HandlerFunc
}

// Registry holds the registered tools in registration order
type Registry struct {
	bus   *events.Bus
	order []string
	tools map[string]tool
}

// NewRegistry creates an empty tool registry publishing on the given bus
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{
		bus:   bus,
		tools: make(map[string]tool),
	}
}

// Register binds a tool implementation under its spec name. Registration
// happens once at startup; re-registering a name replaces the handler but
// keeps its original position.
func (r *Registry) Register(spec Spec, handler HandlerFunc) {
	if _, exists := r.tools[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.tools[spec.Name] = tool{spec: spec, handler: handler}
}

// List returns the specs of all registered tools in registration order
func (r *Registry) List() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Manifest returns the function-calling manifest in registration order
func (r *Registry) Manifest() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].spec.ToolDef())
	}
	return defs
}

// Execute looks up and invokes the named tool. A before-execute event is
// published ahead of the invocation and an after-execute event once it
// returned. Unknown names fail with ErrToolNotFound and publish nothing.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	r.bus.Publish(ctx, events.Event{
		Type:      events.TypeBeforeToolExecute,
		ToolName:  name,
		Arguments: args,
	})

	result, err := t.handler(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", name, err)
	}

	r.bus.Publish(ctx, events.Event{
		Type:      events.TypeAfterToolExecute,
		ToolName:  name,
		Arguments: args,
		Result:    result,
	})

	return result, nil
}

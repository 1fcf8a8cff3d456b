package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
)

// ExecutorFunc defines a server-side tool executor.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Registry stores the tools available to one agent turn, keyed by tool name.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	defs      map[string]Definition
	executors map[string]ExecutorFunc
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:      make(map[string]Definition),
		executors: make(map[string]ExecutorFunc),
	}
}

// Register adds a tool and its executor.
func (r *Registry) Register(def Definition, exec ExecutorFunc) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[def.Name]; exists {
		return fmt.Errorf("executor already registered for %s", def.Name)
	}
	r.order = append(r.order, def.Name)
	r.defs[def.Name] = def
	r.executors[def.Name] = exec
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(def Definition, exec ExecutorFunc) {
	if err := r.Register(def, exec); err != nil {
		panic(err)
	}
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has reports whether a tool is registered.
func (r *Registry) Has(toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[toolName]
	return ok
}

// LLMTools renders the registered tools as function definitions for the model.
func (r *Registry) LLMTools() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// Execute runs the executor for the tool name.
func (r *Registry) Execute(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error) {
	if toolName == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	r.mu.RLock()
	exec := r.executors[toolName]
	r.mu.RUnlock()
	if exec == nil {
		return nil, fmt.Errorf("no executor registered for %s", toolName)
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return exec(ctx, args)
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// result marshals a tool payload.
func result(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return data, nil
}

func errorResult(message string) (json.RawMessage, error) {
	return result(map[string]string{"error": message})
}

func messageResult(message string) (json.RawMessage, error) {
	return result(map[string]string{"message": message})
}

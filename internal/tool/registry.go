package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/metrics"
)

// Registry keeps an agent's tools in registration order.
// It is not safe for concurrent Register; registration happens at construction.
type Registry struct {
	order  []string
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds t. A later tool with the same name replaces the earlier one
// and keeps its position.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Lookup returns the tool with the given name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Detect returns the first tool, in registration order, whose name occurs
// in message ignoring case. This is a coarse trigger: "get_claim_status"
// only fires when the user literally types the tool name.
func (r *Registry) Detect(message string) (Tool, bool) {
	lower := strings.ToLower(message)
	for _, name := range r.order {
		if strings.Contains(lower, strings.ToLower(name)) {
			return r.tools[name], true
		}
	}
	return Tool{}, false
}

// ExtractParams asks the extractor for t's arguments in message.
// Any failure yields empty Params.
func (r *Registry) ExtractParams(ctx context.Context, ex Extractor, t Tool, message string) Params {
	prompt := fmt.Sprintf(`Extract the parameters for the following tool from the user's message.

Tool: %s
Description: %s
Parameters: %s

User Message: %s

Return a JSON object with the extracted parameters. If a parameter is not mentioned, set it to null.`,
		t.Name, t.Description, t.ParamShape(), message)

	params := Params{}
	if err := ex.ExtractJSON(ctx, prompt, &params); err != nil {
		r.logger.Warn("Parameter extraction failed", "tool", t.Name, "error", err)
		return Params{}
	}
	if params == nil {
		return Params{}
	}
	return params
}

// Execute runs the named tool and renders the outcome as a user message.
// Tool failures and panics become a normal Outcome, never an error.
func (r *Registry) Execute(ctx context.Context, name string, params Params, ac domain.AgentContext) Outcome {
	t, ok := r.tools[name]
	if !ok {
		metrics.ToolTotal.WithLabelValues(name, "not_found").Inc()
		return Outcome{Message: fmt.Sprintf("Tool %q not found.", name)}
	}

	start := time.Now()
	result, err := r.call(ctx, t, params, ac)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ToolTotal.WithLabelValues(name, "error").Inc()
		r.logger.Error("Tool execution failed", "tool", name, "conversation_id", ac.ConversationID, "error", err)
		return Outcome{Message: fmt.Sprintf("Failed to execute tool %q: %v", name, err)}
	}

	rendered, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		metrics.ToolTotal.WithLabelValues(name, "error").Inc()
		return Outcome{Message: fmt.Sprintf("Failed to execute tool %q: encode result: %v", name, err)}
	}

	metrics.ToolTotal.WithLabelValues(name, "ok").Inc()
	r.logger.Info("Tool executed", "tool", name, "conversation_id", ac.ConversationID, "duration", time.Since(start))
	return Outcome{
		Message: "Tool executed successfully: " + string(rendered),
		Action:  &Action{Type: name, Data: result},
	}
}

func (r *Registry) call(ctx context.Context, t Tool, params Params, ac domain.AgentContext) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if t.Execute == nil {
		return nil, fmt.Errorf("tool has no implementation")
	}
	return t.Execute(ctx, params, ac)
}

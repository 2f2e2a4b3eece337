// Package tool holds the callable tools an agent can dispatch to from free text.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/mitchellh/mapstructure"
)

// Param describes one input of a tool. Hint is shown to the extractor.
type Param struct {
	Name string
	Hint string
}

// Params are the extracted arguments of a tool call. Values may be nil.
type Params map[string]any

// Func executes a tool.
type Func func(ctx context.Context, params Params, ac domain.AgentContext) (any, error)

// Tool is a named capability registered on an agent.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Execute     Func
}

// Action is attached to a response when a tool ran successfully.
type Action struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Outcome is the user-facing result of a dispatch.
type Outcome struct {
	Message string
	Action  *Action
}

// Extractor decodes structured JSON from a prompt.
type Extractor interface {
	ExtractJSON(ctx context.Context, prompt string, out any) error
}

// ParamShape renders the declared params as an indented JSON object in
// declaration order.
func (t Tool) ParamShape() string {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, p := range t.Params {
		if i > 0 {
			buf.WriteString(",")
		}
		key, _ := json.Marshal(p.Name)
		val, _ := json.Marshal(p.Hint)
		fmt.Fprintf(&buf, "\n  %s: %s", key, val)
	}
	if len(t.Params) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.String()
}

// Decode copies params into a typed struct using its json tags.
// Strings are coerced to numbers and booleans where needed.
func Decode(params Params, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	if err := dec.Decode(map[string]any(params)); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// String returns the named param as a string, or "" when missing or null.
func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

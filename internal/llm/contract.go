package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Reply is the two-field envelope the agents ask the model to answer with.
type Reply struct {
	Message   string `json:"message"`
	Reasoning string `json:"reasoning"`
}

// ExtractJSONBlock returns the most likely JSON payload inside model output.
// A ```json fence wins over a plain ``` fence; without fences the trimmed
// text is returned unchanged.
func ExtractJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if _, after, ok := strings.Cut(text, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return text
}

// ParseReply recovers a Reply from untrusted model output. It never fails:
// anything that does not decode into a non-empty message becomes the message
// verbatim with empty reasoning. A non-string reasoning field is rendered as
// text so it never ends up in the message.
func ParseReply(raw string) Reply {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &fields); err != nil {
		return Reply{Message: raw}
	}

	reply := Reply{Message: raw}
	var msg string
	if err := json.Unmarshal(fields["message"], &msg); err == nil && msg != "" {
		reply.Message = msg
	}
	if r, ok := fields["reasoning"]; ok {
		reply.Reasoning = renderReasoning(r)
	}
	return reply
}

func renderReasoning(r json.RawMessage) string {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(r, &parts); err == nil {
		return strings.Join(parts, "; ")
	}
	if string(r) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, r); err != nil {
		return string(r)
	}
	return buf.String()
}

// Extractor asks a provider for structured JSON and decodes it.
type Extractor struct {
	provider Provider
}

// NewExtractor returns an Extractor backed by p.
func NewExtractor(p Provider) *Extractor {
	return &Extractor{provider: p}
}

// ExtractJSON sends prompt at low temperature and decodes the reply into out.
func (e *Extractor) ExtractJSON(ctx context.Context, prompt string, out any) error {
	resp, err := Complete(ctx, e.provider, prompt+"\n\nPlease respond with a valid JSON object.", Options{
		Temperature: Temperature(extractTemperature),
	})
	if err != nil {
		return fmt.Errorf("extract json: %w", err)
	}
	if err := json.Unmarshal([]byte(ExtractJSONBlock(resp.Content)), out); err != nil {
		return fmt.Errorf("extract json: decode reply: %w", err)
	}
	return nil
}

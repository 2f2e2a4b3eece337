package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `  {"a":1}  `, `{"a":1}`},
		{"json fence", "here:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		{"bare fence", "```\n{\"a\":2}\n```", `{"a":2}`},
		{"json fence wins", "```json\n{\"a\":3}\n```", `{"a":3}`},
		{"unterminated fence", "```json\n{\"a\":4}", `{"a":4}`},
		{"no json", "hello there", "hello there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONBlock(tt.in))
		})
	}
}

func TestParseReply(t *testing.T) {
	t.Run("clean envelope", func(t *testing.T) {
		r := ParseReply(`{"message":"Hi","reasoning":"greeting"}`)
		assert.Equal(t, Reply{Message: "Hi", Reasoning: "greeting"}, r)
	})

	t.Run("fenced envelope", func(t *testing.T) {
		r := ParseReply("```json\n{\"message\":\"Covered\",\"reasoning\":\"policy active\"}\n```")
		assert.Equal(t, "Covered", r.Message)
		assert.Equal(t, "policy active", r.Reasoning)
	})

	t.Run("plain text", func(t *testing.T) {
		raw := "Your claim is being reviewed."
		assert.Equal(t, Reply{Message: raw}, ParseReply(raw))
	})

	t.Run("empty message falls back to raw", func(t *testing.T) {
		raw := `{"message":"","reasoning":"x"}`
		r := ParseReply(raw)
		assert.Equal(t, raw, r.Message)
		assert.Equal(t, "x", r.Reasoning)
	})

	t.Run("missing message falls back to raw", func(t *testing.T) {
		raw := `{"reasoning":"only"}`
		assert.Equal(t, raw, ParseReply(raw).Message)
	})

	t.Run("reasoning as list of sources", func(t *testing.T) {
		r := ParseReply(`{"message":"Your claim is covered.","reasoning":["IA art. 12","policy clause 4"]}`)
		assert.Equal(t, "Your claim is covered.", r.Message)
		assert.Equal(t, "IA art. 12; policy clause 4", r.Reasoning)
	})

	t.Run("reasoning as object", func(t *testing.T) {
		r := ParseReply("```json\n{\"message\":\"Approved\",\"reasoning\":{\"score\": 0.2}}\n```")
		assert.Equal(t, "Approved", r.Message)
		assert.Equal(t, `{"score":0.2}`, r.Reasoning)
	})

	t.Run("non string message falls back to raw", func(t *testing.T) {
		raw := `{"message":42,"reasoning":"n"}`
		r := ParseReply(raw)
		assert.Equal(t, raw, r.Message)
		assert.Equal(t, "n", r.Reasoning)
	})
}

func TestExtractor_ExtractJSON(t *testing.T) {
	p := &fakeProvider{replies: []string{"```json\n{\"claimId\":\"C-1\",\"amount\":12}\n```"}}
	var out struct {
		ClaimID string  `json:"claimId"`
		Amount  float64 `json:"amount"`
	}

	err := NewExtractor(p).ExtractJSON(context.Background(), "find the claim", &out)
	require.NoError(t, err)
	assert.Equal(t, "C-1", out.ClaimID)
	assert.Equal(t, 12.0, out.Amount)

	require.Len(t, p.calls, 1)
	call := p.calls[0]
	require.Len(t, call.messages, 1)
	assert.Equal(t, "find the claim\n\nPlease respond with a valid JSON object.", call.messages[0].Content)
	require.NotNil(t, call.opts.Temperature)
	assert.InDelta(t, 0.1, *call.opts.Temperature, 1e-6)
}

func TestExtractor_ExtractJSONErrors(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		p := &fakeProvider{err: errors.New("boom")}
		var out map[string]any
		err := NewExtractor(p).ExtractJSON(context.Background(), "x", &out)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("non json reply", func(t *testing.T) {
		p := &fakeProvider{replies: []string{"sorry, no"}}
		var out map[string]any
		err := NewExtractor(p).ExtractJSON(context.Background(), "x", &out)
		assert.ErrorContains(t, err, "decode reply")
	})
}

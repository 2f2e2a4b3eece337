package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	passages []Passage
	err      error
	lastOpts SearchOptions
	lastQ    string
	added    []Document
}

func (f *fakeRetriever) Search(_ context.Context, _ string, query string, opts SearchOptions) ([]Passage, error) {
	f.lastQ = query
	f.lastOpts = opts
	return f.passages, f.err
}

func (f *fakeRetriever) Add(_ context.Context, _ string, docs []Document) error {
	f.added = append(f.added, docs...)
	return f.err
}

type recordingProvider struct {
	reply string
	opts  llm.Options
	msgs  []domain.Message
}

func (p *recordingProvider) Chat(_ context.Context, msgs []domain.Message, opts llm.Options) (*llm.Response, error) {
	p.msgs = msgs
	p.opts = opts
	return &llm.Response{Content: p.reply}, nil
}

type jsonExtractor struct {
	reply  string
	err    error
	prompt string
}

func (e *jsonExtractor) ExtractJSON(_ context.Context, prompt string, out any) error {
	e.prompt = prompt
	if e.err != nil {
		return e.err
	}
	return json.Unmarshal([]byte(e.reply), out)
}

func TestService_QueryNoSources(t *testing.T) {
	p := &recordingProvider{}
	s := NewService(&fakeRetriever{}, p, nil, nil)

	ans, err := s.Query(context.Background(), Query{Question: "what is TPL?"})
	require.NoError(t, err)
	assert.Equal(t, NoSourcesAnswer, ans.Answer)
	assert.Zero(t, ans.Confidence)
	assert.Empty(t, ans.Sources)
	assert.Nil(t, p.msgs, "no generation without sources")
}

func TestService_Query(t *testing.T) {
	r := &fakeRetriever{passages: []Passage{
		{ID: "a", Content: strings.Repeat("x", 600), Metadata: map[string]any{"title": "Reg A"}, Similarity: 0.9},
		{ID: "b", Content: "short", Metadata: map[string]any{}, Similarity: 0.8},
	}}
	p := &recordingProvider{reply: "Per Reg A, ..."}
	s := NewService(r, p, nil, nil)

	ans, err := s.Query(context.Background(), Query{Question: "deadline?", Language: domain.LanguageArabic})
	require.NoError(t, err)
	assert.Equal(t, "Per Reg A, ...", ans.Answer)
	assert.Equal(t, 5, r.lastOpts.Limit)
	assert.InDelta(t, 0.7, r.lastOpts.Threshold, 1e-9)

	require.Len(t, ans.Sources, 2)
	assert.Len(t, []rune(ans.Sources[0].Content), 503)
	assert.Equal(t, "short...", ans.Sources[1].Content)
	assert.Equal(t, "Unknown Source", ans.Sources[1].Title)
	// avg(0.9, 0.8) + one high-quality boost
	assert.InDelta(t, 0.9, ans.Confidence, 1e-9)

	require.Len(t, p.msgs, 1)
	assert.Contains(t, p.msgs[0].Content, "[1] Source: Reg A")
	assert.Contains(t, p.msgs[0].Content, "\n---\n\n[2] Source: IA Document")
	assert.Contains(t, p.opts.SystemPrompt, "- Respond in Arabic")
	require.NotNil(t, p.opts.Temperature)
	assert.InDelta(t, 0.3, *p.opts.Temperature, 1e-6)
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, confidence(nil))
	high := []Passage{{Similarity: 0.99}, {Similarity: 0.98}, {Similarity: 0.97}, {Similarity: 0.96}}
	assert.Equal(t, 1.0, confidence(high))
	assert.InDelta(t, 0.75, confidence([]Passage{{Similarity: 0.8}, {Similarity: 0.7}}), 1e-9)
}

func TestService_CheckCompliance(t *testing.T) {
	r := &fakeRetriever{passages: []Passage{{ID: "a", Content: "Motor claims need a Najm report.", Similarity: 0.7}}}
	ex := &jsonExtractor{reply: `{"compliant": false, "violations": ["No Najm report"]}`}
	s := NewService(r, nil, ex, nil)

	res, err := s.CheckCompliance(context.Background(), "rear-end collision", "motor")
	require.NoError(t, err)
	assert.False(t, res.Compliant)
	assert.Equal(t, []string{"No Najm report"}, res.Violations)
	assert.Equal(t, []string{}, res.Recommendations)
	require.Len(t, res.RelevantRegulations, 1)
	assert.Equal(t, "IA Regulation", res.RelevantRegulations[0].Source)

	assert.Equal(t, "Regulations and requirements for motor insurance: rear-end collision", r.lastQ)
	assert.Equal(t, 10, r.lastOpts.Limit)
	assert.InDelta(t, 0.6, r.lastOpts.Threshold, 1e-9)
	assert.Contains(t, ex.prompt, "Policy Type: motor")
}

func TestService_CheckComplianceExtractFailure(t *testing.T) {
	s := NewService(&fakeRetriever{}, nil, &jsonExtractor{err: errors.New("quota")}, nil)

	_, err := s.CheckCompliance(context.Background(), "x", "")
	assert.ErrorContains(t, err, "failed to check compliance")
}

func TestService_Regulations(t *testing.T) {
	r := &fakeRetriever{passages: []Passage{{Content: "c", Metadata: map[string]any{"source": "IA"}, Similarity: 0.66}}}
	s := NewService(r, nil, nil, nil)

	regs, err := s.Regulations(context.Background(), "motor", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, r.lastOpts.Limit)
	assert.InDelta(t, 0.65, r.lastOpts.Threshold, 1e-9)
	assert.Equal(t, []RegulatoryContext{{Regulation: "c", Source: "IA", Relevance: 0.66}}, regs)
}

func TestService_IndexDocument(t *testing.T) {
	r := &fakeRetriever{}
	s := NewService(r, nil, nil, nil)
	text := strings.Repeat("a", 600) + "\n\n" + strings.Repeat("b", 600)

	n, err := s.IndexDocument(context.Background(), text, DocumentMeta{ID: "reg-1", Title: "Motor", Source: "IA"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, r.added, 2)
	assert.Equal(t, "reg-1_chunk_1", r.added[1].ID)
	assert.Equal(t, 2, r.added[1].Metadata["total_chunks"])
	assert.Equal(t, 1, r.added[1].Metadata["chunk_index"])
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"one\n\ntwo"}, Chunk("one\n\ntwo", 100))
	assert.Equal(t, []string{"aaaa", "bbbb"}, Chunk("aaaa\n\nbbbb", 6))

	long := strings.Repeat("z", 50)
	assert.Equal(t, []string{long}, Chunk(long, 10), "a single paragraph is never split")
	assert.Empty(t, Chunk("", 10))
}

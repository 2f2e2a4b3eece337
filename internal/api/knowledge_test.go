package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/rommaana-agents/internal/bridge"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
)

type MockAsker struct {
	QueryFunc func(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error)
}

func (m *MockAsker) Query(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error) {
	return m.QueryFunc(ctx, q)
}

type MockRunner struct {
	RunFunc func(ctx context.Context, notebookID, text string) (*bridge.Result, error)
}

func (m *MockRunner) Run(ctx context.Context, notebookID, text string) (*bridge.Result, error) {
	return m.RunFunc(ctx, notebookID, text)
}

type MockVision struct {
	DescribeFunc func(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

func (m *MockVision) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return m.DescribeFunc(ctx, image, mimeType, prompt)
}

func knowledgeRouter(deps KnowledgeDeps) chi.Router {
	r := chi.NewRouter()
	NewKnowledgeHandler(NewHandler(nil, 0), deps).RegisterRoutes(r)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRAGQuery(t *testing.T) {
	var got knowledge.Query
	r := knowledgeRouter(KnowledgeDeps{RAG: &MockAsker{QueryFunc: func(_ context.Context, q knowledge.Query) (*knowledge.Answer, error) {
		got = q
		return &knowledge.Answer{
			Answer:     "Motor policies require third-party cover.",
			Sources:    []knowledge.Source{{ID: "doc_chunk_0", Title: "Motor Rules", Similarity: 0.9}},
			Confidence: 0.9,
		}, nil
	}}})

	rec := postJSON(r, "/api/ai/rag/query", `{"question":"What is required for motor insurance?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, got.MaxResults)
	assert.Equal(t, domain.LanguageBoth, got.Language)
	assert.JSONEq(t, `{
		"success": true,
		"answer": "Motor policies require third-party cover.",
		"sources": [{"id":"doc_chunk_0","content":"","title":"Motor Rules","similarity":0.9}],
		"confidence": 0.9
	}`, rec.Body.String())
}

func TestRAGQueryErrors(t *testing.T) {
	failing := &MockAsker{QueryFunc: func(context.Context, knowledge.Query) (*knowledge.Answer, error) {
		return nil, errors.New("chroma down")
	}}

	rec := postJSON(knowledgeRouter(KnowledgeDeps{RAG: failing}), "/api/ai/rag/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required field: question")

	rec = postJSON(knowledgeRouter(KnowledgeDeps{RAG: failing}), "/api/ai/rag/query", `{"question":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to process RAG query","details":"chroma down"}`, rec.Body.String())

	rec = postJSON(knowledgeRouter(KnowledgeDeps{}), "/api/ai/rag/query", `{"question":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotebookQuery(t *testing.T) {
	var notebook, query string
	runner := &MockRunner{RunFunc: func(_ context.Context, notebookID, text string) (*bridge.Result, error) {
		notebook, query = notebookID, text
		return &bridge.Result{Status: "success", Answer: "Article 12 applies."}, nil
	}}
	r := knowledgeRouter(KnowledgeDeps{Notebooks: runner, DefaultNotebook: "nb-default"})

	rec := postJSON(r, "/api/notebooklm/query", `{"query":"fraud rules"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nb-default", notebook)
	assert.Equal(t, "fraud rules", query)
	assert.JSONEq(t, `{"status":"success","answer":"Article 12 applies."}`, rec.Body.String())

	rec = postJSON(r, "/api/notebooklm/query", `{"query":"q","notebookId":"nb-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nb-2", notebook)

	rec = postJSON(r, "/api/notebooklm/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Query is required")
}

func TestNotebookQueryFailures(t *testing.T) {
	runner := &MockRunner{RunFunc: func(context.Context, string, string) (*bridge.Result, error) {
		return nil, bridge.ErrTimeout
	}}

	rec := postJSON(knowledgeRouter(KnowledgeDeps{Notebooks: runner}), "/api/notebooklm/query", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "timed out")

	rec = postJSON(knowledgeRouter(KnowledgeDeps{}), "/api/notebooklm/query", `{"query":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVision(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	var gotMime, gotPrompt string
	var gotImage []byte
	vision := &MockVision{DescribeFunc: func(_ context.Context, image []byte, mimeType, prompt string) (string, error) {
		gotImage, gotMime, gotPrompt = image, mimeType, prompt
		return "Dent on the rear bumper.", nil
	}}
	r := knowledgeRouter(KnowledgeDeps{Vision: vision})

	body := `{"image":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(raw) + `"}`
	rec := postJSON(r, "/api/vision", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"Dent on the rear bumper."}`, rec.Body.String())
	assert.Equal(t, raw, gotImage)
	assert.Equal(t, "image/png", gotMime)
	assert.Equal(t, DefaultVisionPrompt, gotPrompt)

	body = `{"image":"` + base64.StdEncoding.EncodeToString(raw) + `","prompt":"Read the plate"}`
	rec = postJSON(r, "/api/vision", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", gotMime)
	assert.Equal(t, "Read the plate", gotPrompt)
}

func TestVisionErrors(t *testing.T) {
	vision := &MockVision{DescribeFunc: func(context.Context, []byte, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	r := knowledgeRouter(KnowledgeDeps{Vision: vision})

	rec := postJSON(r, "/api/vision", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No image provided")

	rec = postJSON(r, "/api/vision", `{"image":"%%%"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(r, "/api/vision", `{"image":"AAAA"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model unavailable")

	rec = postJSON(knowledgeRouter(KnowledgeDeps{}), "/api/vision", `{"image":"AAAA"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

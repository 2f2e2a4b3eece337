package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/rommaana-agents/internal/bridge"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

// DefaultVisionPrompt is used when /api/vision is called without a prompt.
const DefaultVisionPrompt = "Analyze this insurance claim image for damage."

const fallbackNotebookID = "default-notebook-id"

// Asker answers retrieval-augmented questions.
type Asker interface {
	Query(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error)
}

// NotebookRunner invokes the notebook helper and returns its raw result.
type NotebookRunner interface {
	Run(ctx context.Context, notebookID, text string) (*bridge.Result, error)
}

// KnowledgeHandler serves the RAG, notebook and vision endpoints.
type KnowledgeHandler struct {
	*Handler
	rag             Asker
	notebooks       NotebookRunner
	defaultNotebook string
	vision          llm.Vision
}

// KnowledgeDeps are the optional collaborators of a KnowledgeHandler.
// Nil members make their endpoint answer 503.
type KnowledgeDeps struct {
	RAG             Asker
	Notebooks       NotebookRunner
	DefaultNotebook string
	Vision          llm.Vision
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(base *Handler, deps KnowledgeDeps) *KnowledgeHandler {
	if deps.DefaultNotebook == "" {
		deps.DefaultNotebook = fallbackNotebookID
	}
	return &KnowledgeHandler{
		Handler:         base,
		rag:             deps.RAG,
		notebooks:       deps.Notebooks,
		defaultNotebook: deps.DefaultNotebook,
		vision:          deps.Vision,
	}
}

// RegisterRoutes registers knowledge routes.
func (h *KnowledgeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/ai/rag/query", h.RAGQuery)
	r.Post("/api/notebooklm/query", h.NotebookQuery)
	r.Post("/api/vision", h.Vision)
}

type ragRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"maxResults"`
	Language   string `json:"language"`
}

// RAGQuery handles POST /api/ai/rag/query.
func (h *KnowledgeHandler) RAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		Error(w, http.StatusBadRequest, "Missing required field: question")
		return
	}
	if h.rag == nil {
		Error(w, http.StatusServiceUnavailable, "knowledge base is not configured")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}
	lang, ok := domain.ParseLanguage(req.Language)
	if !ok {
		lang = domain.LanguageBoth
	}

	answer, err := h.rag.Query(r.Context(), knowledge.Query{
		Question:   req.Question,
		MaxResults: req.MaxResults,
		Language:   lang,
	})
	if err != nil {
		h.logger.Error("RAG query error", "error", err)
		JSON(w, http.StatusInternalServerError, chatFailure{Error: "Failed to process RAG query", Details: err.Error()})
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"answer":     answer.Answer,
		"sources":    answer.Sources,
		"confidence": answer.Confidence,
	})
}

type notebookRequest struct {
	Query      string `json:"query"`
	NotebookID string `json:"notebookId"`
}

// NotebookQuery handles POST /api/notebooklm/query and returns the helper's
// JSON object unchanged.
func (h *KnowledgeHandler) NotebookQuery(w http.ResponseWriter, r *http.Request) {
	var req notebookRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "Query is required")
		return
	}
	if h.notebooks == nil {
		Error(w, http.StatusServiceUnavailable, "knowledge bridge is disabled")
		return
	}
	notebookID := req.NotebookID
	if notebookID == "" {
		notebookID = h.defaultNotebook
	}

	res, err := h.notebooks.Run(r.Context(), notebookID, req.Query)
	if err != nil {
		h.logger.Error("Notebook bridge error", "notebook_id", notebookID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, res)
}

type visionRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// Vision handles POST /api/vision.
func (h *KnowledgeHandler) Vision(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Image == "" {
		Error(w, http.StatusBadRequest, "No image provided")
		return
	}
	if h.vision == nil {
		Error(w, http.StatusServiceUnavailable, llm.ErrNotConfigured.Error())
		return
	}

	image, mimeType, err := decodeImage(req.Image)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultVisionPrompt
	}

	text, err := h.vision.Describe(r.Context(), image, mimeType, prompt)
	if err != nil {
		h.logger.Error("Vision error", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": text})
}

// decodeImage accepts a data URL or bare base64. Bare payloads are JPEG.
func decodeImage(s string) ([]byte, string, error) {
	if strings.HasPrefix(s, "data:") {
		return insurance.DecodeDataURL(s)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, "image/jpeg", nil
}

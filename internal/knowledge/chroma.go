package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/rommaana-agents/internal/llm"
	"github.com/ashureev/rommaana-agents/internal/metrics"
	"github.com/go-resty/resty/v2"
)

// DefaultChromaURL is used when no base URL is configured.
const DefaultChromaURL = "http://localhost:8000"

const (
	heartbeatTimeout  = 2 * time.Second
	collectionTimeout = 3 * time.Second
	defaultLimit      = 10
)

// ChromaRetriever talks to a Chroma server over its REST API and embeds
// queries with the configured Embedder.
type ChromaRetriever struct {
	client   *resty.Client
	embedder llm.Embedder
	logger   *slog.Logger

	mu          sync.Mutex
	collections map[string]string // name -> id
}

// NewChromaRetriever returns a retriever for the Chroma server at baseURL.
func NewChromaRetriever(baseURL string, embedder llm.Embedder, logger *slog.Logger) *ChromaRetriever {
	if baseURL == "" {
		baseURL = DefaultChromaURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromaRetriever{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
		embedder:    embedder,
		logger:      logger,
		collections: make(map[string]string),
	}
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaQueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// Search implements Retriever. Similarity is 1 - cosine distance.
func (c *ChromaRetriever) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]Passage, error) {
	id, ok := c.collectionID(ctx, collection)
	if !ok {
		c.logger.Warn("Vector store unreachable, search skipped", "collection", collection)
		metrics.RetrievalTotal.WithLabelValues("error").Inc()
		return nil, nil
	}

	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var out chromaQueryResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"query_embeddings": [][]float32{embedding},
			"n_results":        limit,
			"include":          []string{"documents", "metadatas", "distances"},
		}).
		SetResult(&out).
		Post("/api/v1/collections/" + id + "/query")
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	if resp.IsError() {
		metrics.RetrievalTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query collection %s: status %d: %s", collection, resp.StatusCode(), resp.String())
	}

	passages := toPassages(out, opts.Threshold)
	if len(passages) == 0 {
		metrics.RetrievalTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.RetrievalTotal.WithLabelValues("hit").Inc()
	}
	return passages, nil
}

func toPassages(res chromaQueryResult, threshold float64) []Passage {
	if len(res.IDs) == 0 {
		return nil
	}
	var passages []Passage
	for i, id := range res.IDs[0] {
		var distance float64
		if len(res.Distances) > 0 && i < len(res.Distances[0]) {
			distance = res.Distances[0][i]
		}
		similarity := 1 - distance
		if threshold > 0 && similarity < threshold {
			continue
		}

		p := Passage{ID: id, Similarity: similarity, Metadata: map[string]any{}}
		if len(res.Documents) > 0 && i < len(res.Documents[0]) {
			p.Content = res.Documents[0][i]
		}
		if len(res.Metadatas) > 0 && i < len(res.Metadatas[0]) && res.Metadatas[0][i] != nil {
			p.Metadata = res.Metadatas[0][i]
		}
		passages = append(passages, p)
	}
	return passages
}

// Add implements Retriever. Each document is embedded before upload.
func (c *ChromaRetriever) Add(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	id, ok := c.collectionID(ctx, collection)
	if !ok {
		return fmt.Errorf("vector store unreachable: collection %s", collection)
	}

	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))
	embeddings := make([][]float32, len(docs))
	for i, doc := range docs {
		vec, err := c.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		ids[i] = doc.ID
		contents[i] = doc.Content
		metadatas[i] = doc.Metadata
		embeddings[i] = vec
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"ids":        ids,
			"embeddings": embeddings,
			"documents":  contents,
			"metadatas":  metadatas,
		}).
		Post("/api/v1/collections/" + id + "/add")
	if err != nil {
		return fmt.Errorf("add to collection %s: %w", collection, err)
	}
	if resp.IsError() {
		return fmt.Errorf("add to collection %s: status %d: %s", collection, resp.StatusCode(), resp.String())
	}
	c.logger.Info("Added documents to collection", "collection", collection, "count", len(docs))
	return nil
}

// Heartbeat reports whether the server answers within a short timeout.
func (c *ChromaRetriever) Heartbeat(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
	defer cancel()

	resp, err := c.client.R().SetContext(ctx).Get("/api/v1/heartbeat")
	return err == nil && resp.StatusCode() == http.StatusOK
}

// collectionID returns the id of name, creating the collection if needed.
func (c *ChromaRetriever) collectionID(ctx context.Context, name string) (string, bool) {
	c.mu.Lock()
	id, ok := c.collections[name]
	c.mu.Unlock()
	if ok {
		return id, true
	}

	if !c.Heartbeat(ctx) {
		return "", false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, collectionTimeout)
	defer cancel()

	var col chromaCollection
	resp, err := c.client.R().SetContext(lookupCtx).SetResult(&col).Get("/api/v1/collections/" + name)
	if err != nil || resp.IsError() || col.ID == "" {
		c.logger.Warn("Collection not found, attempting to create", "collection", name)
		col = chromaCollection{}
		resp, err = c.client.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"name": name,
				"metadata": map[string]any{
					"hnsw:space":  "cosine",
					"description": "Vector collection for " + name,
				},
				"get_or_create": true,
			}).
			SetResult(&col).
			Post("/api/v1/collections")
		if err != nil || resp.IsError() || col.ID == "" {
			c.logger.Error("Failed to get or create collection, vector search disabled", "collection", name, "error", err)
			return "", false
		}
	}

	c.mu.Lock()
	c.collections[name] = col.ID
	c.mu.Unlock()
	return col.ID, true
}

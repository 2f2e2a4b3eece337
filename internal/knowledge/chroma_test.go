package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEmbedder struct{ calls atomic.Int32 }

func (e *staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls.Add(1)
	return []float32{0.1, 0.2, 0.3}, nil
}

func newChromaServer(t *testing.T, queryBody string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nanosecond heartbeat": 1}`))
	})
	mux.HandleFunc("GET /api/v1/collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		if r.PathValue("name") != "ia_regulations" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"col-1","name":"ia_regulations"}`))
	})
	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		md := body["metadata"].(map[string]any)
		assert.Equal(t, "cosine", md["hnsw:space"])
		_, _ = w.Write([]byte(`{"id":"col-new","name":"` + body["name"].(string) + `"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 3, body["n_results"])
		_, _ = w.Write([]byte(queryBody))
	})
	mux.HandleFunc("POST /api/v1/collections/{id}/add", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs        []string    `json:"ids"`
			Embeddings [][]float32 `json:"embeddings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "col-new", r.PathValue("id"))
		assert.Len(t, body.Embeddings, len(body.IDs))
		_, _ = w.Write([]byte(`true`))
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &lookups
}

func TestChromaRetriever_Search(t *testing.T) {
	srv, lookups := newChromaServer(t, `{
		"ids": [["r1", "r2", "r3"]],
		"documents": [["Claims must be settled within 15 days.", "Motor TPL is mandatory.", "Unrelated"]],
		"metadatas": [[{"title": "Claims Settlement Regulation"}, {"source": "IA Motor Rules"}, null]],
		"distances": [[0.1, 0.25, 0.6]]
	}`)
	r := NewChromaRetriever(srv.URL, &staticEmbedder{}, nil)

	passages, err := r.Search(context.Background(), "ia_regulations", "claim deadline", SearchOptions{Limit: 3, Threshold: 0.7})
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "r1", passages[0].ID)
	assert.InDelta(t, 0.9, passages[0].Similarity, 1e-9)
	assert.Equal(t, "Claims Settlement Regulation", passages[0].Title("x"))
	assert.Equal(t, "IA Motor Rules", passages[1].Title("x"))

	_, err = r.Search(context.Background(), "ia_regulations", "again", SearchOptions{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookups.Load(), "collection id is cached")
}

func TestChromaRetriever_Unreachable(t *testing.T) {
	emb := &staticEmbedder{}
	r := NewChromaRetriever("http://127.0.0.1:1", emb, nil)

	passages, err := r.Search(context.Background(), "ia_regulations", "anything", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, passages)
	assert.Zero(t, emb.calls.Load())
}

func TestChromaRetriever_AddCreatesCollection(t *testing.T) {
	srv, _ := newChromaServer(t, `{}`)
	emb := &staticEmbedder{}
	r := NewChromaRetriever(srv.URL, emb, nil)

	err := r.Add(context.Background(), "new_collection", []Document{
		{ID: "d_chunk_0", Content: "a", Metadata: map[string]any{"chunk_index": 0}},
		{ID: "d_chunk_1", Content: "b", Metadata: map[string]any{"chunk_index": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), emb.calls.Load())
}

// Package knowledge retrieves regulatory passages from a vector store and
// answers questions grounded on them.
package knowledge

import (
	"context"
	"fmt"
)

// Passage is a retrieved document chunk.
type Passage struct {
	ID         string
	Content    string
	Metadata   map[string]any
	Similarity float64
}

// Title returns the best display name for the passage source.
func (p Passage) Title(fallback string) string {
	for _, key := range []string{"title", "source"} {
		if v, ok := p.Metadata[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return fallback
}

// Document is a chunk to be added to a collection.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// SearchOptions bound a similarity search.
type SearchOptions struct {
	Limit int
	// Threshold drops passages with a lower similarity. Zero keeps all.
	Threshold float64
}

// Retriever searches and populates vector collections.
// An unreachable store yields no passages rather than an error.
type Retriever interface {
	Search(ctx context.Context, collection, query string, opts SearchOptions) ([]Passage, error)
	Add(ctx context.Context, collection string, docs []Document) error
}

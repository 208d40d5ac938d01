package vectorstore

import (
	"context"

	"github.com/Muistio/Henry-agent/internal/domain"
)

// Storage holds retrievable chunks and ranks them against a query.
type Storage interface {
	AddDocument(ctx context.Context, documentID, text string, embedder domain.Embedder, metadata map[string]string) error
	Search(ctx context.Context, query string, embedder domain.Embedder, k int) ([]domain.SearchResult, error)
	Len() int
}

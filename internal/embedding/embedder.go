package embedding

import (
	"context"

	"github.com/Muistio/Henry-agent/internal/domain"
)

// Embedder is an embedding backend selected by configuration.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	domain.Embedder
	Name() string
	Prepare(corpus []string) error
}

// Recorder wraps an embedder and reports every failed call to onError.
// The error is still returned so the caller can degrade as usual.
type Recorder struct {
	next    domain.Embedder
	onError func(error)
}

// NewRecorder returns a Recorder around next.
func NewRecorder(next domain.Embedder, onError func(error)) *Recorder {
	return &Recorder{next: next, onError: onError}
}

// Embed delegates to the wrapped embedder.
func (r *Recorder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := r.next.Embed(ctx, text)
	if err != nil && r.onError != nil {
		r.onError(err)
	}
	return vec, err
}

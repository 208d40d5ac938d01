package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Muistio/Henry-agent/internal/chunker"
	"github.com/Muistio/Henry-agent/internal/domain"
	"github.com/Muistio/Henry-agent/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// DefaultSentinelDim is the width of the all-zero vector stored for
// fragments that have no embedding.
const DefaultSentinelDim = 8

// epsilon floors the cosine denominator.
const epsilon = 1e-8

// ErrDimensionMismatch is returned when an embedder produces vectors whose
// width differs from the width already recorded by the store.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type entry struct {
	chunk    domain.Chunk
	vector   []float64
	embedded bool
}

// Storage is an append-only in-memory chunk store. Search scores every
// chunk by cosine similarity when a usable query vector exists and by
// keyword occurrence counting otherwise.
type Storage struct {
	mu          sync.RWMutex
	chunker     *chunker.WhitespaceChunker
	sentinelDim int
	dimension   int
	entries     []entry
	logger      *slog.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithMaxChars sets the fragment bound used when adding documents.
func WithMaxChars(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.chunker = chunker.NewWhitespaceChunker(n)
		}
	}
}

// WithSentinelDim sets the width of the no-embedding sentinel vector.
func WithSentinelDim(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.sentinelDim = n
		}
	}
}

// WithLogger sets the logger used to report degraded operation.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStorage creates an empty store.
func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		chunker:     chunker.NewWhitespaceChunker(chunker.DefaultMaxChars),
		sentinelDim: DefaultSentinelDim,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the width of the real embeddings held, or 0 if every
// chunk carries the sentinel.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// AddDocument splits text into fragments and appends one chunk per fragment.
// The embedder may be nil; each fragment gets at most one embedding attempt,
// and a failed, empty or zero-magnitude embedding is replaced by the sentinel.
// The only error is ErrDimensionMismatch, in which case nothing is appended.
func (s *Storage) AddDocument(ctx context.Context, documentID, text string, embedder domain.Embedder, metadata map[string]string) error {
	chunks := s.chunker.Chunk(domain.Document{ID: documentID, Content: text, Metadata: maps.Clone(metadata)})
	if len(chunks) == 0 {
		return nil
	}

	pending := make([]entry, len(chunks))
	width := 0
	fallbacks := 0
	for i, ch := range chunks {
		vec, ok := s.embed(ctx, embedder, ch.Text)
		if !ok {
			pending[i] = entry{chunk: ch, vector: make([]float64, s.sentinelDim)}
			fallbacks++
			continue
		}
		if width == 0 {
			width = len(vec)
		} else if len(vec) != width {
			return fmt.Errorf("document %q: %w: %d vs %d", documentID, ErrDimensionMismatch, len(vec), width)
		}
		pending[i] = entry{chunk: ch, vector: vec, embedded: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		if s.dimension != 0 && s.dimension != width {
			return fmt.Errorf("document %q: %w: %d vs %d", documentID, ErrDimensionMismatch, width, s.dimension)
		}
		s.dimension = width
	}
	s.entries = append(s.entries, pending...)
	if fallbacks > 0 {
		s.logger.Warn("stored chunks without embeddings",
			slog.String("document_id", documentID),
			slog.Int("chunks", len(pending)),
			slog.Int("sentinel", fallbacks))
	} else {
		s.logger.Debug("document added", slog.String("document_id", documentID), slog.Int("chunks", len(pending)))
	}
	return nil
}

// Search returns up to k chunks ranked by relevance to query. Ties keep
// insertion order. Embedding failures select the keyword path; the only
// error is ErrDimensionMismatch for a query vector of the wrong width.
func (s *Storage) Search(ctx context.Context, query string, embedder domain.Embedder, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty || k <= 0 {
		return nil, nil
	}

	qv, ok := s.embed(ctx, embedder, query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scores []float64
	if ok && s.dimension > 0 {
		if len(qv) != s.dimension {
			return nil, fmt.Errorf("query: %w: %d vs %d", ErrDimensionMismatch, len(qv), s.dimension)
		}
		scores = s.vectorScores(qv)
	} else {
		s.logger.Debug("keyword fallback search", slog.String("query", query))
		scores = s.keywordScores(query)
	}

	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, i := range idxs[:k] {
		results = append(results, domain.SearchResult{Chunk: s.entries[i].chunk, Score: scores[i]})
	}
	return results, nil
}

// embed makes one embedding attempt. It reports false when the embedder is
// absent, fails, or yields a vector without a finite positive magnitude.
func (s *Storage) embed(ctx context.Context, embedder domain.Embedder, text string) ([]float64, bool) {
	if embedder == nil {
		return nil, false
	}
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("embedding unavailable", slog.Any("error", err))
		return nil, false
	}
	if n := norm(vec); !(n > 0) || math.IsInf(n, 0) {
		s.logger.Debug("embedding has no usable magnitude", slog.Int("width", len(vec)))
		return nil, false
	}
	return vec, true
}

func (s *Storage) vectorScores(qv []float64) []float64 {
	scores := make([]float64, len(s.entries))
	for i, e := range s.entries {
		if !e.embedded {
			continue
		}
		scores[i] = cosine(qv, e.vector)
	}
	return scores
}

func (s *Storage) keywordScores(query string) []float64 {
	words := keywords(query)
	scores := make([]float64, len(s.entries))
	if len(words) == 0 {
		return scores
	}
	for i, e := range s.entries {
		text := strings.ToLower(e.chunk.Text)
		n := 0
		for _, w := range words {
			n += strings.Count(text, w)
		}
		scores[i] = float64(n)
	}
	return scores
}

// keywords lower-cases the query and keeps whitespace tokens longer than two
// characters.
func keywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	denom := norm(a) * norm(b)
	if denom < epsilon {
		denom = epsilon
	}
	return dot / denom
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

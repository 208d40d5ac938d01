package memory

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muistio/Henry-agent/internal/domain"
)

const jobText = "Great opportunity in data and AI. AI governance matters."

var errQuota = errors.New("quota exceeded")

// failingEmbedder errors on every call and counts how often it was asked.
type failingEmbedder struct{ calls int }

func (f *failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	f.calls++
	return nil, errQuota
}

// tableEmbedder returns fixed vectors per text.
type tableEmbedder map[string][]float64

func (t tableEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	v, ok := t[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func texts(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.Text
	}
	return out
}

func TestNewStorage_Empty(t *testing.T) {
	s := NewStorage()
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Dimension())
}

func TestAddDocument_NoEmbedder(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	err := s.AddDocument(ctx, "job", jobText, nil, map[string]string{"source": "job_ad"})
	require.NoError(t, err)

	require.Equal(t, 1, s.Len())
	e := s.entries[0]
	assert.Equal(t, "job", e.chunk.DocumentID)
	assert.Equal(t, jobText, e.chunk.Text)
	assert.Equal(t, "job_ad", e.chunk.Metadata["source"])
	assert.False(t, e.embedded)
	assert.Equal(t, make([]float64, DefaultSentinelDim), e.vector)
}

func TestAddDocument_EmptyTextIsNoop(t *testing.T) {
	s := NewStorage()
	emb := &failingEmbedder{}

	require.NoError(t, s.AddDocument(context.Background(), "empty", "   \n ", emb, nil))

	assert.Equal(t, 0, s.Len())
	assert.Zero(t, emb.calls)
}

func TestAddDocument_SplitsByMaxChars(t *testing.T) {
	s := NewStorage(WithMaxChars(10))

	require.NoError(t, s.AddDocument(context.Background(), "d", "alpha beta gamma dot", nil, nil))

	require.Equal(t, 2, s.Len())
	assert.Equal(t, "alpha beta", s.entries[0].chunk.Text)
	assert.Equal(t, "gamma dot", s.entries[1].chunk.Text)
	for _, e := range s.entries {
		assert.Equal(t, "d", e.chunk.DocumentID)
	}
}

func TestAddDocument_CustomSentinelDim(t *testing.T) {
	s := NewStorage(WithSentinelDim(3))

	require.NoError(t, s.AddDocument(context.Background(), "d", "text here", nil, nil))

	assert.Len(t, s.entries[0].vector, 3)
}

func TestAddDocument_FailingEmbedderDegrades(t *testing.T) {
	s := NewStorage(WithMaxChars(10))
	emb := &failingEmbedder{}

	err := s.AddDocument(context.Background(), "d", "alpha beta gamma dot", emb, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, emb.calls, "one attempt per fragment")
	for _, e := range s.entries {
		assert.False(t, e.embedded)
		assert.Len(t, e.vector, DefaultSentinelDim)
	}
}

func TestAddDocument_PartialEmbedding(t *testing.T) {
	s := NewStorage(WithMaxChars(10))
	emb := tableEmbedder{"alpha beta": {1, 0}}

	require.NoError(t, s.AddDocument(context.Background(), "d", "alpha beta gamma dot", emb, nil))

	require.Equal(t, 2, s.Len())
	assert.True(t, s.entries[0].embedded)
	assert.False(t, s.entries[1].embedded)
	assert.Equal(t, 2, s.Dimension())
}

func TestAddDocument_ZeroVectorBecomesSentinel(t *testing.T) {
	s := NewStorage()
	emb := tableEmbedder{"zeros": {0, 0, 0, 0}}

	require.NoError(t, s.AddDocument(context.Background(), "d", "zeros", emb, nil))

	assert.False(t, s.entries[0].embedded)
	assert.Equal(t, 0, s.Dimension())
}

func TestAddDocument_MetadataIsCopied(t *testing.T) {
	s := NewStorage()
	meta := map[string]string{"source": "cv"}

	require.NoError(t, s.AddDocument(context.Background(), "d", "some text", nil, meta))
	meta["source"] = "changed"

	assert.Equal(t, "cv", s.entries[0].chunk.Metadata["source"])
}

func TestAddDocument_DimensionMismatchAcrossDocuments(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	require.NoError(t, s.AddDocument(ctx, "a", "first", tableEmbedder{"first": {1, 0}}, nil))

	err := s.AddDocument(ctx, "b", "second", tableEmbedder{"second": {1, 0, 0}}, nil)

	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, s.Len(), "rejected document must not be appended")
}

func TestAddDocument_DimensionMismatchWithinDocument(t *testing.T) {
	s := NewStorage(WithMaxChars(5))
	emb := tableEmbedder{"first": {1, 0}, "other": {1, 0, 0}}

	err := s.AddDocument(context.Background(), "a", "first other", emb, nil)

	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, s.Len())
}

func TestAddDocument_DuplicateIDAppends(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	require.NoError(t, s.AddDocument(ctx, "job", jobText, nil, nil))
	require.NoError(t, s.AddDocument(ctx, "job", jobText, nil, nil))

	assert.Equal(t, 2, s.Len())
}

func TestSearch_EmptyStore(t *testing.T) {
	s := NewStorage()
	emb := &failingEmbedder{}

	for _, k := range []int{-1, 0, 1, 100} {
		res, err := s.Search(context.Background(), "anything at all", emb, k)
		require.NoError(t, err)
		assert.Empty(t, res)
	}
	assert.Zero(t, emb.calls)
}

func TestSearch_NonPositiveK(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.AddDocument(context.Background(), "job", jobText, nil, nil))

	for _, k := range []int{0, -3} {
		res, err := s.Search(context.Background(), "governance", nil, k)
		require.NoError(t, err)
		assert.Empty(t, res)
	}
}

func TestSearch_KeywordScenario(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "job", jobText, nil, map[string]string{"source": "job_ad"}))

	res, err := s.Search(ctx, "tell me about AI governance", nil, 1)
	require.NoError(t, err)

	require.Len(t, res, 1)
	assert.Equal(t, jobText, res[0].Chunk.Text)
	assert.Equal(t, 1.0, res[0].Score, "only 'governance' survives the length filter and occurs once")
}

func TestKeywords_FilterShortTokens(t *testing.T) {
	assert.Equal(t, []string{"tell", "about", "governance"}, keywords("tell me about AI governance"))
	assert.Empty(t, keywords("AI ML is ok"))
}

func TestSearch_KeywordRankingAndTieBreak(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	docs := []string{
		"nothing relevant here",
		"python data pipelines",
		"Data data DATA and more data",
		"unrelated words only",
		"data governance",
	}
	for i, d := range docs {
		require.NoError(t, s.AddDocument(ctx, string(rune('a'+i)), d, nil, nil))
	}

	res, err := s.Search(ctx, "DATA", nil, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Data data DATA and more data",
		"python data pipelines",
		"data governance",
		"nothing relevant here",
		"unrelated words only",
	}, texts(res))
	assert.Equal(t, []float64{4, 1, 1, 0, 0}, []float64{res[0].Score, res[1].Score, res[2].Score, res[3].Score, res[4].Score})
}

func TestSearch_KeywordCountsSubstrings(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "a", "model", nil, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "models and remodelling", nil, nil))

	res, err := s.Search(ctx, "model", nil, 2)
	require.NoError(t, err)

	assert.Equal(t, "models and remodelling", res[0].Chunk.Text)
	assert.Equal(t, 2.0, res[0].Score)
}

func TestSearch_QueryWithoutKeywordsKeepsInsertionOrder(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	for _, d := range []string{"one", "two", "three"} {
		require.NoError(t, s.AddDocument(ctx, d, d, nil, nil))
	}

	res, err := s.Search(ctx, "AI ok", nil, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "three"}, texts(res))
	for _, r := range res {
		assert.Zero(t, r.Score)
	}
}

func TestSearch_KLargerThanStore(t *testing.T) {
	s := NewStorage(WithMaxChars(20))
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "a", "first document about hiring", nil, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "second one", nil, nil))
	require.Equal(t, 3, s.Len())

	res, err := s.Search(ctx, "hiring", nil, 10)
	require.NoError(t, err)

	assert.Len(t, res, 3)
	assert.Equal(t, "hiring", res[0].Chunk.Text)
}

func TestSearch_TopKNeverExceedsBounds(t *testing.T) {
	s := NewStorage(WithMaxChars(8))
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "a", strings.Repeat("token ", 30), nil, nil))

	for _, k := range []int{1, 2, 5, 29, 30, 31, 1000} {
		res, err := s.Search(ctx, "token", nil, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res), k)
		assert.LessOrEqual(t, len(res), s.Len())
	}
}

func TestSearch_FailingEmbedderUsesKeywords(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := &failingEmbedder{}
	require.NoError(t, s.AddDocument(ctx, "a", "cloud platforms", emb, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "governance and regulation", emb, nil))

	res, err := s.Search(ctx, "regulation", emb, 1)
	require.NoError(t, err)

	require.Len(t, res, 1)
	assert.Equal(t, "governance and regulation", res[0].Chunk.Text)
	assert.Equal(t, 3, emb.calls)
}

func TestSearch_CosineRanking(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := tableEmbedder{
		"east":  {1, 0},
		"north": {0, 1},
		"diag":  {1, 1},
		"query": {0.9, 0.1},
	}
	for _, d := range []string{"north", "diag", "east"} {
		require.NoError(t, s.AddDocument(ctx, d, d, emb, nil))
	}

	res, err := s.Search(ctx, "query", emb, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"east", "diag", "north"}, texts(res))
	assert.InDelta(t, 0.9939, res[0].Score, 1e-3)
}

func TestSearch_CosineTieBreakByInsertion(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := tableEmbedder{
		"first":  {2, 0},
		"second": {1, 0},
		"q":      {1, 0},
	}
	require.NoError(t, s.AddDocument(ctx, "1", "first", emb, nil))
	require.NoError(t, s.AddDocument(ctx, "2", "second", emb, nil))

	res, err := s.Search(ctx, "q", emb, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, texts(res))
}

func TestSearch_SentinelChunksScoreZeroOnVectorPath(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := tableEmbedder{
		"embedded": {0, 1, 0},
		"q":        {0, 1, 0},
	}
	// "sentinel" is unknown to the embedder and falls back.
	require.NoError(t, s.AddDocument(ctx, "a", "sentinel", emb, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "embedded", emb, nil))

	res, err := s.Search(ctx, "q", emb, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"embedded", "sentinel"}, texts(res))
	assert.Zero(t, res[1].Score)
}

func TestSearch_ZeroQueryVectorUsesKeywords(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := tableEmbedder{
		"vector match":     {1, 0},
		"keyword analytic": {0, 1},
		"analytic":         {0, 0},
	}
	require.NoError(t, s.AddDocument(ctx, "a", "vector match", emb, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "keyword analytic", emb, nil))

	res, err := s.Search(ctx, "analytic", emb, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"keyword analytic"}, texts(res))
}

func TestSearch_NonFiniteQueryVectorUsesKeywords(t *testing.T) {
	for name, bad := range map[string][]float64{
		"nan": {math.NaN(), 0},
		"inf": {math.Inf(1), 0},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewStorage()
			ctx := context.Background()
			emb := tableEmbedder{
				"alpha":            {1, 0},
				"governance board": {0, 1},
				"governance":       bad,
			}
			require.NoError(t, s.AddDocument(ctx, "a", "alpha", emb, nil))
			require.NoError(t, s.AddDocument(ctx, "b", "governance board", emb, nil))

			res, err := s.Search(ctx, "governance", emb, 2)
			require.NoError(t, err)

			assert.Equal(t, []string{"governance board", "alpha"}, texts(res))
			assert.Equal(t, 1.0, res[0].Score)
		})
	}
}

func TestAddDocument_NonFiniteVectorBecomesSentinel(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	emb := tableEmbedder{
		"low":  {0.1, 1},
		"bad":  {math.NaN(), 1},
		"huge": {math.Inf(-1), 0},
		"high": {1, 0.01},
		"q":    {1, 0},
	}
	for _, d := range []string{"low", "bad", "huge", "high"} {
		require.NoError(t, s.AddDocument(ctx, d, d, emb, nil))
	}
	assert.False(t, s.entries[1].embedded)
	assert.False(t, s.entries[2].embedded)
	assert.Equal(t, 2, s.Dimension())

	res, err := s.Search(ctx, "q", emb, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"high", "low", "bad", "huge"}, texts(res))
	for _, r := range res {
		assert.False(t, math.IsNaN(r.Score), r.Chunk.Text)
	}
}

func TestSearch_AllSentinelStoreUsesKeywords(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "a", "first text", nil, nil))
	require.NoError(t, s.AddDocument(ctx, "b", "second text about copilot", nil, nil))

	emb := tableEmbedder{"copilot": make([]float64, 16)}
	emb["copilot"][3] = 1

	res, err := s.Search(ctx, "copilot", emb, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"second text about copilot"}, texts(res))
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.AddDocument(ctx, "a", "doc", tableEmbedder{"doc": {1, 0}}, nil))

	_, err := s.Search(ctx, "q", tableEmbedder{"q": {1, 0, 0}}, 1)

	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_EmbedderFunc(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	calls := 0
	emb := domain.EmbedderFunc(func(context.Context, string) ([]float64, error) {
		calls++
		return []float64{1, 1}, nil
	})
	require.NoError(t, s.AddDocument(ctx, "a", "text", emb, nil))

	res, err := s.Search(ctx, "text", emb, 1)
	require.NoError(t, err)

	require.Len(t, res, 1)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, 2, calls)
}

func TestCosine_ZeroVectorDoesNotDivideByZero(t *testing.T) {
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 0}))
	assert.InDelta(t, 1.0, cosine([]float64{1, 0}, []float64{3, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Muistio/Henry-agent/internal/domain"
)

func TestRecorder_ReportsFailures(t *testing.T) {
	boom := errors.New("quota")
	var seen []error
	r := NewRecorder(domain.EmbedderFunc(func(context.Context, string) ([]float64, error) {
		return nil, boom
	}), func(err error) { seen = append(seen, err) })

	vec, err := r.Embed(context.Background(), "text")

	assert.Nil(t, vec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, seen)
}

func TestRecorder_PassesThroughSuccess(t *testing.T) {
	called := false
	r := NewRecorder(domain.EmbedderFunc(func(_ context.Context, text string) ([]float64, error) {
		return []float64{float64(len(text))}, nil
	}), func(error) { called = true })

	vec, err := r.Embed(context.Background(), "abc")

	assert.NoError(t, err)
	assert.Equal(t, []float64{3}, vec)
	assert.False(t, called)
}

func TestRecorder_NilCallback(t *testing.T) {
	r := NewRecorder(domain.EmbedderFunc(func(context.Context, string) ([]float64, error) {
		return nil, errors.New("down")
	}), nil)

	_, err := r.Embed(context.Background(), "x")
	assert.Error(t, err)
}

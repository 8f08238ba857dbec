package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Analyze(_ context.Context, _ string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.result
	return &copied, nil
}

func TestChain_FirstSuccessShortCircuits(t *testing.T) {
	primary := &stubScorer{name: "detection", result: &Result{TrustScore: 85}}
	fallback := &stubScorer{name: "sentiment", result: &Result{TrustScore: 50}}

	result, err := NewChain(primary, fallback).Analyze(context.Background(), "body")
	require.NoError(t, err)
	assert.Equal(t, 85, result.TrustScore)
	assert.Equal(t, "detection", result.Engine)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_FallsBackInOrder(t *testing.T) {
	primary := &stubScorer{name: "detection", err: errors.New("service down")}
	fallback := &stubScorer{name: "sentiment", result: &Result{TrustScore: 60}}

	result, err := NewChain(primary, fallback).Analyze(context.Background(), "body")
	require.NoError(t, err)
	assert.Equal(t, 60, result.TrustScore)
	assert.Equal(t, "sentiment", result.Engine)
	assert.Equal(t, 1, primary.calls)
}

func TestChain_AllFailedReportsExhausted(t *testing.T) {
	primary := &stubScorer{name: "detection", err: errors.New("down")}
	fallback := &stubScorer{name: "sentiment", err: errors.New("also down")}

	_, err := NewChain(primary, fallback).Analyze(context.Background(), "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	var se *ServiceError
	assert.True(t, errors.As(err, &se))
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &stubScorer{name: "detection", err: errors.New("down")}
	fallback := &stubScorer{name: "sentiment", result: &Result{TrustScore: 60}}

	cancel()
	_, err := NewChain(primary, fallback).Analyze(ctx, "body")
	require.Error(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestConvertSentiment(t *testing.T) {
	assert.Equal(t, 0, ConvertSentiment(-1))
	assert.Equal(t, 50, ConvertSentiment(0))
	assert.Equal(t, 100, ConvertSentiment(1))
	assert.Equal(t, 80, ConvertSentiment(0.6))
	assert.Equal(t, 25, ConvertSentiment(-0.5))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-10))
	assert.Equal(t, 100, clampScore(150))
	assert.Equal(t, 73, clampScore(73))
}

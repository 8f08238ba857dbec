package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/structures"
)

// Result is a completed scoring attempt. TrustScore is always in [0,100].
// Engine names the scorer that produced it.
type Result struct {
	Engine      string
	TrustScore  int
	Consensus   string
	AutoPublish bool
	TotalModels int
	Models      []models.ModelPrediction
}

// AutoPublishThreshold gates auto-publish on the trust score.
const AutoPublishThreshold = 80

// ErrExhausted means every scorer in the chain failed. The article keeps its
// current status; scoring must be re-triggered manually.
var ErrExhausted = errors.New("all scoring engines failed")

// ServiceError is a single engine's failure.
type ServiceError struct {
	Engine string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("scoring engine %s failed: %v", e.Engine, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Scorer produces a trust score for article content.
type Scorer interface {
	Name() string
	Analyze(ctx context.Context, content string) (*Result, error)
}

// Chain tries scorers strictly in order, one at a time; the next is tried
// only after the previous fails. Never in parallel, so only one score per
// article reaches the ledger.
type Chain struct {
	scorers []Scorer
}

func NewChain(scorers ...Scorer) *Chain {
	return &Chain{scorers: scorers}
}

// NewDefaultChain wires the production order: detection first, sentiment as
// the fallback.
func NewDefaultChain(conf *structures.Config, logger providers.Logger) *Chain {
	return NewChain(
		NewDetectionClient(conf, logger),
		NewSentimentClient(conf, logger),
	)
}

func (c *Chain) Analyze(ctx context.Context, content string) (*Result, error) {
	var errs []error
	for _, s := range c.scorers {
		result, err := s.Analyze(ctx, content)
		if err == nil {
			result.Engine = s.Name()
			return result, nil
		}
		errs = append(errs, &ServiceError{Engine: s.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	errs = append(errs, ErrExhausted)
	return nil, errors.Join(errs...)
}

func clampScore(score int) int {
	return int(math.Max(0, math.Min(100, float64(score))))
}

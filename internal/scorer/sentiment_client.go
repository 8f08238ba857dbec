package scorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/structures"

	json "github.com/goccy/go-json"
)

// SentimentClient is the fallback scorer. It derives a trust score from a
// document sentiment score in [-1,1]: trustScore = round(((s+1)/2)*100),
// clamped to [0,100].
type SentimentClient struct {
	url    string
	apiKey string
	http   *http.Client
	logger providers.Logger
}

func NewSentimentClient(conf *structures.Config, logger providers.Logger) *SentimentClient {
	return &SentimentClient{
		url:    conf.Scorer.SentimentURL,
		apiKey: conf.Scorer.SentimentKey,
		http:   providers.NewRobustHTTPClient(logger, providers.TypeScoring, conf.Scorer.Timeout),
		logger: logger,
	}
}

func (c *SentimentClient) Name() string { return "sentiment" }

func (c *SentimentClient) Analyze(ctx context.Context, content string) (*Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("sentiment API key not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"document": map[string]string{
			"content": content,
			"type":    "PLAIN_TEXT",
		},
		"encodingType": "UTF8",
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?key=%s", c.url, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sentiment service returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var payload struct {
		DocumentSentiment struct {
			Score     float64 `json:"score"`
			Magnitude float64 `json:"magnitude"`
		} `json:"documentSentiment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed sentiment response: %w", err)
	}

	score := ConvertSentiment(payload.DocumentSentiment.Score)
	consensus := models.ConsensusFake
	if score >= AutoPublishThreshold {
		consensus = models.ConsensusReal
	}

	return &Result{
		TrustScore:  score,
		Consensus:   consensus,
		AutoPublish: score >= AutoPublishThreshold,
		TotalModels: 1,
		Models: []models.ModelPrediction{{
			Name:       "Sentiment",
			Prediction: consensus,
			Confidence: float64(score),
		}},
	}, nil
}

// ConvertSentiment maps a sentiment score in [-1,1] onto [0,100].
func ConvertSentiment(s float64) int {
	return clampScore(int(math.Round((s + 1) / 2 * 100)))
}

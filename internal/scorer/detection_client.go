package scorer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/structures"

	json "github.com/goccy/go-json"
)

// DetectionClient calls the multi-model fake news detection service. This is
// the primary scorer.
type DetectionClient struct {
	url    string
	http   *http.Client
	logger providers.Logger
}

func NewDetectionClient(conf *structures.Config, logger providers.Logger) *DetectionClient {
	return &DetectionClient{
		url:    conf.Scorer.URL,
		http:   providers.NewRobustHTTPClient(logger, providers.TypeScoring, conf.Scorer.Timeout),
		logger: logger,
	}
}

func (c *DetectionClient) Name() string { return "detection" }

type detectionResponse struct {
	TrustScore  int    `json:"trustScore"`
	Consensus   string `json:"consensus"`
	AutoPublish bool   `json:"autoPublish"`
	TotalModels int    `json:"totalModels"`
	Results     map[string]struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"results"`
}

func (c *DetectionClient) Analyze(ctx context.Context, content string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/analyze", bytes.NewReader(body))
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
		return nil, fmt.Errorf("detection service returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var analysis detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("malformed detection response: %w", err)
	}

	result := &Result{
		TrustScore:  clampScore(analysis.TrustScore),
		Consensus:   analysis.Consensus,
		AutoPublish: analysis.AutoPublish,
		TotalModels: analysis.TotalModels,
	}
	for name, r := range analysis.Results {
		prediction := r.Label
		if prediction == "" {
			prediction = analysis.Consensus
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = float64(result.TrustScore)
		}
		result.Models = append(result.Models, models.ModelPrediction{
			Name:       name,
			Prediction: prediction,
			Confidence: confidence,
		})
	}
	return result, nil
}

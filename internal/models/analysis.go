package models

import "time"

// Consensus labels emitted by the scoring service.
const (
	ConsensusHighTrust   = "HIGH_TRUST"
	ConsensusMediumTrust = "MEDIUM_TRUST"
	ConsensusLowTrust    = "LOW_TRUST"
	ConsensusReal        = "REAL"
	ConsensusFake        = "FAKE"
)

// AnalysisRecord stores the detailed scoring result for an article. At most
// one live record per article; re-scoring replaces it. Purely descriptive:
// lifecycle decisions read the trust score, never this record.
type AnalysisRecord struct {
	ID          uint              `gorm:"primarykey" json:"-"`
	ArticleID   string            `gorm:"uniqueIndex;not null" json:"articleId"`
	TrustScore  int               `json:"trustScore"`
	Consensus   string            `json:"consensus"`
	AutoPublish bool              `json:"autoPublish"`
	TotalModels int               `json:"totalModels"`
	Models      []ModelPrediction `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"models"`
	AnalyzedAt  time.Time         `json:"analyzedAt"`
	CreatedAt   time.Time         `json:"-"`
	UpdatedAt   time.Time         `json:"-"`
}

// ModelPrediction is a single model's verdict within an analysis.
type ModelPrediction struct {
	ID         uint    `gorm:"primarykey" json:"-"`
	AnalysisID uint    `gorm:"index" json:"-"`
	Name       string  `json:"name"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

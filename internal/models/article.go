package models

import "time"

// Article is the denormalized cache row for a registry article. The ledger
// remains authoritative; every field except Title/Content is overwritten
// from ledger re-reads.
type Article struct {
	ID          uint   `gorm:"primarykey" json:"-"`
	ArticleID   string `gorm:"uniqueIndex;not null" json:"id"`
	Author      string `gorm:"index:idx_author_ts" json:"author"`
	Title       string `gorm:"index" json:"title"`
	Content     string `json:"content"`
	ContentCID  string `json:"ipfsCid"`
	ContentHash string `json:"contentHash"`

	TrustScore int           `gorm:"index" json:"trustScore"`
	Status     ArticleStatus `gorm:"index:idx_status_ts" json:"status"`
	Timestamp  time.Time     `gorm:"index:idx_status_ts;index:idx_author_ts" json:"timestamp"`

	YesVotes int `json:"yesVotes"`
	NoVotes  int `json:"noVotes"`

	VersionCount int              `json:"versionCount"`
	Versions     []ArticleVersion `gorm:"foreignKey:ArticleRef;references:ArticleID;constraint:OnDelete:CASCADE" json:"versions"`

	LastSynced time.Time `json:"lastSyncedFromLedger"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"lastUpdated"`
}

// ArticleVersion is one immutable snapshot in an article's history.
type ArticleVersion struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	ArticleRef   string    `gorm:"uniqueIndex:idx_article_version;not null" json:"-"`
	VersionIndex int       `gorm:"uniqueIndex:idx_article_version" json:"versionIndex"`
	ContentCID   string    `json:"ipfsCid"`
	ContentHash  string    `json:"contentHash"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// UpdateProposal is the cache row for a pending or settled update proposal.
type UpdateProposal struct {
	ID         uint   `gorm:"primarykey" json:"-"`
	ArticleRef string `gorm:"uniqueIndex:idx_article_proposal;not null" json:"articleId"`
	ProposalID string `gorm:"uniqueIndex:idx_article_proposal;not null" json:"proposalId"`

	NewContentCID  string         `json:"newIpfsCid"`
	NewContentHash string         `json:"newContentHash"`
	Proposer       string         `json:"proposer"`
	TrustScore     int            `json:"trustScore"`
	YesVotes       int            `json:"yesVotes"`
	NoVotes        int            `json:"noVotes"`
	Status         ProposalStatus `json:"status"`
	ProposedAt     time.Time      `json:"createdAt"`

	LastSynced time.Time `json:"lastSyncedFromLedger"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

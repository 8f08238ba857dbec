package ledger

import (
	"context"
	"time"
)

// ArticleState is the authoritative registry record for an article, exactly
// as the contract returns it.
type ArticleState struct {
	ID           string
	Author       string
	ContentCID   string
	ContentHash  string
	TrustScore   int
	Timestamp    time.Time
	Status       int
	YesVotes     int
	NoVotes      int
	VersionCount int
}

// VersionState is one entry of an article's on-ledger version history.
type VersionState struct {
	ContentCID  string
	ContentHash string
	Timestamp   time.Time
}

// ProposalState is the authoritative record for an update proposal.
type ProposalState struct {
	ProposalID     string
	NewContentCID  string
	NewContentHash string
	Proposer       string
	TrustScore     int
	YesVotes       int
	NoVotes        int
	Status         int
	CreatedAt      time.Time
}

// SubmitReceipt reports a completed registry write.
type SubmitReceipt struct {
	TxHash     string
	ArticleID  string
	ProposalID string
}

// Gateway is the typed read/invoke surface of the registry and staking
// contracts. All calls block until the ledger confirms or rejects.
type Gateway interface {
	GetArticle(ctx context.Context, id string) (*ArticleState, error)
	GetArticleVersion(ctx context.Context, id string, index int) (*VersionState, error)
	GetUpdateProposal(ctx context.Context, id, proposalID string) (*ProposalState, error)
	GetCurrentProposalID(ctx context.Context, id string) (string, error)
	TotalArticles(ctx context.Context) (int64, error)

	SubmitArticle(ctx context.Context, contentCID, contentHash string) (*SubmitReceipt, error)
	ProposeArticleUpdate(ctx context.Context, id, contentCID, contentHash string) (*SubmitReceipt, error)
	SetAIScore(ctx context.Context, id string, score int) (*SubmitReceipt, error)
	SetUpdateProposalAIScore(ctx context.Context, id, proposalID string, score int) (*SubmitReceipt, error)
	Vote(ctx context.Context, id string, decision bool) (*SubmitReceipt, error)
	VoteOnUpdateProposal(ctx context.Context, id, proposalID string, decision bool) (*SubmitReceipt, error)

	StakedBalance(ctx context.Context, address string) (string, error)
}

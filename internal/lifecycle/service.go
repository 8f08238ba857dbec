package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"
	"verity/internal/content"
	"verity/internal/ledger"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/scorer"
	"verity/internal/store"
	"verity/internal/syncer"
)

const (
	titleMaxLen   = 300
	contentMaxLen = 100000

	// Budget for a full background scoring run, chain fallbacks included.
	scoringTimeout = 2 * time.Minute
)

// SubmitRequest is a new article or replacement document.
type SubmitRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SubmitResult reports a confirmed registry write.
type SubmitResult struct {
	ArticleID   string `json:"articleId,omitempty"`
	ProposalID  string `json:"proposalId,omitempty"`
	TxHash      string `json:"txHash"`
	ContentCID  string `json:"ipfsCid"`
	ContentHash string `json:"contentHash"`
}

// ServiceInterface drives the article lifecycle: submission, scoring, update
// proposals and voting. All state transitions happen on the ledger; this
// service only invokes them and keeps the cache store in step.
type ServiceInterface interface {
	SubmitArticle(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	ProposeUpdate(ctx context.Context, articleID string, req *SubmitRequest) (*SubmitResult, error)
	ScoreArticle(ctx context.Context, articleID string) (*scorer.Result, error)
	ScoreProposal(ctx context.Context, articleID, proposalID string) (*scorer.Result, error)
	Vote(ctx context.Context, articleID string, approve bool) (*ledger.SubmitReceipt, error)
	VoteOnProposal(ctx context.Context, articleID, proposalID string, approve bool) (*ledger.SubmitReceipt, error)
}

type Service struct {
	gateway ledger.Gateway
	content content.ClientInterface
	chain   *scorer.Chain
	store   *store.Store
	syncer  syncer.SyncerInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewService(
	gateway ledger.Gateway,
	contentClient content.ClientInterface,
	chain *scorer.Chain,
	st *store.Store,
	sync syncer.SyncerInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) ServiceInterface {
	return &Service{
		gateway: gateway,
		content: contentClient,
		chain:   chain,
		store:   st,
		syncer:  sync,
		metrics: metrics,
		logger:  logger,
	}
}

func validateSubmission(req *SubmitRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)

	switch {
	case req.Title == "":
		return &models.ValidationError{Field: "title", Reason: "must not be empty"}
	case len(req.Title) > titleMaxLen:
		return &models.ValidationError{Field: "title", Reason: "too long"}
	case req.Content == "":
		return &models.ValidationError{Field: "content", Reason: "must not be empty"}
	case len(req.Content) > contentMaxLen:
		return &models.ValidationError{Field: "content", Reason: "too long"}
	}
	return nil
}

// SubmitArticle uploads the document, registers it on the ledger and kicks
// off background scoring. The cache row is written synchronously so the
// article is readable before the first event arrives.
func (s *Service) SubmitArticle(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	doc := &content.Document{Title: req.Title, Content: req.Content}
	cid, err := s.content.Upload(ctx, doc)
	if err != nil {
		return nil, err
	}
	hash := content.HashContent(req.Content)

	receipt, err := s.gateway.SubmitArticle(ctx, cid, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Infof(providers.TypePost, "Article %s submitted (tx %s)", receipt.ArticleID, receipt.TxHash)

	if err := s.syncer.CacheHintArticle(ctx, receipt.ArticleID, doc); err != nil {
		s.logger.Warnf(providers.TypeSync, "Cache write for new article %s failed: %s", receipt.ArticleID, err)
	}

	go s.scoreArticleAsync(receipt.ArticleID)

	return &SubmitResult{
		ArticleID:   receipt.ArticleID,
		TxHash:      receipt.TxHash,
		ContentCID:  cid,
		ContentHash: hash,
	}, nil
}

// ProposeUpdate uploads a replacement document and opens an update proposal.
func (s *Service) ProposeUpdate(ctx context.Context, articleID string, req *SubmitRequest) (*SubmitResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	doc := &content.Document{Title: req.Title, Content: req.Content}
	cid, err := s.content.Upload(ctx, doc)
	if err != nil {
		return nil, err
	}
	hash := content.HashContent(req.Content)

	receipt, err := s.gateway.ProposeArticleUpdate(ctx, articleID, cid, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Infof(providers.TypePost, "Update proposal %s opened for article %s (tx %s)",
		receipt.ProposalID, articleID, receipt.TxHash)

	if err := s.syncer.SyncProposal(ctx, articleID, receipt.ProposalID); err != nil {
		s.logger.Warnf(providers.TypeSync, "Cache write for proposal %s/%s failed: %s", articleID, receipt.ProposalID, err)
	}

	go s.scoreProposalAsync(articleID, receipt.ProposalID)

	return &SubmitResult{
		ArticleID:   articleID,
		ProposalID:  receipt.ProposalID,
		TxHash:      receipt.TxHash,
		ContentCID:  cid,
		ContentHash: hash,
	}, nil
}

func (s *Service) scoreArticleAsync(articleID string) {
	ctx, cancel := context.WithTimeout(context.Background(), scoringTimeout)
	defer cancel()
	if _, err := s.ScoreArticle(ctx, articleID); err != nil {
		s.logger.Errorf(providers.TypeScoring, "Background scoring of article %s failed: %s", articleID, err)
	}
}

func (s *Service) scoreProposalAsync(articleID, proposalID string) {
	ctx, cancel := context.WithTimeout(context.Background(), scoringTimeout)
	defer cancel()
	if _, err := s.ScoreProposal(ctx, articleID, proposalID); err != nil {
		s.logger.Errorf(providers.TypeScoring, "Background scoring of proposal %s/%s failed: %s", articleID, proposalID, err)
	}
}

// ScoreArticle runs the scoring chain against the article body and writes the
// resulting trust score to the ledger. The ledger applies its own transition
// rules; afterwards the cache row is re-read. Safe to re-run: the analysis
// record is replaced and the ledger ignores redundant scores on settled
// articles.
func (s *Service) ScoreArticle(ctx context.Context, articleID string) (*scorer.Result, error) {
	state, err := s.gateway.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	body, err := s.articleBody(ctx, state)
	if err != nil {
		return nil, err
	}

	result, err := s.chain.Analyze(ctx, body)
	if err != nil {
		s.metrics.IncScoringResults("chain", "exhausted")
		return nil, err
	}
	s.metrics.IncScoringResults(result.Engine, "success")
	s.logger.Infof(providers.TypeScoring, "Article %s scored %d by %s (consensus %s)",
		articleID, result.TrustScore, result.Engine, result.Consensus)

	if err := s.store.UpsertAnalysis(&models.AnalysisRecord{
		ArticleID:   articleID,
		TrustScore:  result.TrustScore,
		Consensus:   result.Consensus,
		AutoPublish: result.AutoPublish,
		TotalModels: result.TotalModels,
		Models:      result.Models,
		AnalyzedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warnf(providers.TypeScoring, "Analysis record for article %s not saved: %s", articleID, err)
	}

	if _, err := s.gateway.SetAIScore(ctx, articleID, result.TrustScore); err != nil {
		return nil, err
	}

	if err := s.syncer.SyncArticle(ctx, articleID, false); err != nil {
		s.logger.Warnf(providers.TypeSync, "Post-scoring sync of article %s failed: %s", articleID, err)
	}
	return result, nil
}

// ScoreProposal scores the replacement document of an update proposal.
func (s *Service) ScoreProposal(ctx context.Context, articleID, proposalID string) (*scorer.Result, error) {
	state, err := s.gateway.GetUpdateProposal(ctx, articleID, proposalID)
	if err != nil {
		return nil, err
	}

	doc, err := s.content.Fetch(ctx, state.NewContentCID)
	if err != nil {
		// Never score placeholder text; the proposal stays unscored until the
		// gateway recovers.
		return nil, err
	}

	result, err := s.chain.Analyze(ctx, doc.Content)
	if err != nil {
		s.metrics.IncScoringResults("chain", "exhausted")
		return nil, err
	}
	s.metrics.IncScoringResults(result.Engine, "success")
	s.logger.Infof(providers.TypeScoring, "Proposal %s/%s scored %d by %s",
		articleID, proposalID, result.TrustScore, result.Engine)

	if _, err := s.gateway.SetUpdateProposalAIScore(ctx, articleID, proposalID, result.TrustScore); err != nil {
		return nil, err
	}

	if err := s.syncer.SyncProposal(ctx, articleID, proposalID); err != nil {
		s.logger.Warnf(providers.TypeSync, "Post-scoring sync of proposal %s/%s failed: %s", articleID, proposalID, err)
	}
	return result, nil
}

// Vote casts a validator vote on an article under review. Revert reasons pass
// through unchanged so callers can distinguish double votes from missing
// stake.
func (s *Service) Vote(ctx context.Context, articleID string, approve bool) (*ledger.SubmitReceipt, error) {
	receipt, err := s.gateway.Vote(ctx, articleID, approve)
	if err != nil {
		return nil, err
	}

	if err := s.syncer.SyncArticle(ctx, articleID, false); err != nil {
		s.logger.Warnf(providers.TypeSync, "Post-vote sync of article %s failed: %s", articleID, err)
	}
	return receipt, nil
}

// VoteOnProposal casts a validator vote on an update proposal.
func (s *Service) VoteOnProposal(ctx context.Context, articleID, proposalID string, approve bool) (*ledger.SubmitReceipt, error) {
	receipt, err := s.gateway.VoteOnUpdateProposal(ctx, articleID, proposalID, approve)
	if err != nil {
		return nil, err
	}

	if err := s.syncer.SyncProposal(ctx, articleID, proposalID); err != nil {
		s.logger.Warnf(providers.TypeSync, "Post-vote sync of proposal %s/%s failed: %s", articleID, proposalID, err)
	}
	if err := s.syncer.SyncArticle(ctx, articleID, false); err != nil {
		s.logger.Warnf(providers.TypeSync, "Post-vote sync of article %s failed: %s", articleID, err)
	}
	return receipt, nil
}

// articleBody returns the text to score, preferring the cached copy when it
// matches the ledger's current content address.
func (s *Service) articleBody(ctx context.Context, state *ledger.ArticleState) (string, error) {
	cached, err := s.store.GetArticle(state.ID)
	if err == nil && cached.ContentCID == state.ContentCID && cached.Title != content.PlaceholderTitle {
		return cached.Content, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	doc, err := s.content.Fetch(ctx, state.ContentCID)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

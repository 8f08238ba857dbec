package services

import (
	"context"
	"errors"
	"time"
	"verity/internal/content"
	"verity/internal/ledger"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/store"
	"verity/internal/syncer"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ArticlePage is one page of the article listing.
type ArticlePage struct {
	Articles []models.Article `json:"articles"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
}

// VersionDiff compares two snapshots of an article's history.
type VersionDiff struct {
	ArticleID      string                `json:"articleId"`
	From           models.ArticleVersion `json:"from"`
	To             models.ArticleVersion `json:"to"`
	TitleChanged   bool                  `json:"titleChanged"`
	ContentChanged bool                  `json:"contentChanged"`
	LengthDelta    int                   `json:"lengthDelta"`
}

// QueryServiceInterface is the read surface. Reads come from the cache store;
// a missing row triggers one on-demand sync from the ledger so freshly
// submitted articles are visible before any event lands. When the store
// itself fails, single-record reads degrade to direct ledger reads shaped
// like the cached response instead of erroring.
type QueryServiceInterface interface {
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)
	ListArticles(filter store.ArticleFilter, page, limit int) (*ArticlePage, error)
	GetAnalysis(articleID string) (*models.AnalysisRecord, error)
	GetProposal(ctx context.Context, articleID, proposalID string) (*models.UpdateProposal, error)
	GetCurrentProposal(ctx context.Context, articleID string) (*models.UpdateProposal, error)
	GetVersion(ctx context.Context, articleID string, index int) (*models.ArticleVersion, error)
	CompareVersions(ctx context.Context, articleID string, from, to int) (*VersionDiff, error)
}

type QueryService struct {
	store   *store.Store
	gateway ledger.Gateway
	content content.ClientInterface
	syncer  syncer.SyncerInterface
	logger  providers.Logger
}

func NewQueryService(st *store.Store, gateway ledger.Gateway, contentClient content.ClientInterface, sync syncer.SyncerInterface, logger providers.Logger) QueryServiceInterface {
	return &QueryService{store: st, gateway: gateway, content: contentClient, syncer: sync, logger: logger}
}

func (qs *QueryService) GetArticle(ctx context.Context, articleID string) (*models.Article, error) {
	article, err := qs.store.GetArticle(articleID)
	if err == nil {
		return article, nil
	}

	if errors.Is(err, store.ErrNotFound) {
		qs.logger.Debugf(providers.TypeGet, "Article %s not cached, syncing from ledger", articleID)
		if syncErr := qs.syncer.SyncArticle(ctx, articleID, false); syncErr == nil {
			if article, readErr := qs.store.GetArticle(articleID); readErr == nil {
				return article, nil
			}
		}
	} else {
		qs.logger.Warnf(providers.TypeGet, "Cache store read for article %s failed: %s (serving direct ledger read)", articleID, err)
	}
	return qs.articleFromLedger(ctx, articleID)
}

// articleFromLedger rebuilds the article response from authoritative reads
// alone, bypassing the cache store.
func (qs *QueryService) articleFromLedger(ctx context.Context, articleID string) (*models.Article, error) {
	state, err := qs.gateway.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	doc, _ := qs.content.Fetch(ctx, state.ContentCID)

	return &models.Article{
		ArticleID:    state.ID,
		Author:       models.NormalizeAddress(state.Author),
		Title:        doc.Title,
		Content:      doc.Content,
		ContentCID:   state.ContentCID,
		ContentHash:  state.ContentHash,
		TrustScore:   state.TrustScore,
		Status:       models.ArticleStatus(state.Status),
		Timestamp:    state.Timestamp,
		YesVotes:     state.YesVotes,
		NoVotes:      state.NoVotes,
		VersionCount: state.VersionCount,
		LastSynced:   time.Now().UTC(),
	}, nil
}

func (qs *QueryService) ListArticles(filter store.ArticleFilter, page, limit int) (*ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	articles, total, err := qs.store.ListArticles(filter, page, limit)
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []models.Article{}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &ArticlePage{Articles: articles, Total: total, Page: page, Pages: pages}, nil
}

func (qs *QueryService) GetAnalysis(articleID string) (*models.AnalysisRecord, error) {
	return qs.store.GetAnalysis(articleID)
}

func (qs *QueryService) GetProposal(ctx context.Context, articleID, proposalID string) (*models.UpdateProposal, error) {
	proposal, err := qs.store.GetProposal(articleID, proposalID)
	if err == nil {
		return proposal, nil
	}

	if errors.Is(err, store.ErrNotFound) {
		qs.logger.Debugf(providers.TypeGet, "Proposal %s/%s not cached, syncing from ledger", articleID, proposalID)
		if syncErr := qs.syncer.SyncProposal(ctx, articleID, proposalID); syncErr == nil {
			if proposal, readErr := qs.store.GetProposal(articleID, proposalID); readErr == nil {
				return proposal, nil
			}
		}
	} else {
		qs.logger.Warnf(providers.TypeGet, "Cache store read for proposal %s/%s failed: %s (serving direct ledger read)", articleID, proposalID, err)
	}
	return qs.proposalFromLedger(ctx, articleID, proposalID)
}

func (qs *QueryService) proposalFromLedger(ctx context.Context, articleID, proposalID string) (*models.UpdateProposal, error) {
	state, err := qs.gateway.GetUpdateProposal(ctx, articleID, proposalID)
	if err != nil {
		return nil, err
	}
	return &models.UpdateProposal{
		ArticleRef:     articleID,
		ProposalID:     state.ProposalID,
		NewContentCID:  state.NewContentCID,
		NewContentHash: state.NewContentHash,
		Proposer:       models.NormalizeAddress(state.Proposer),
		TrustScore:     state.TrustScore,
		YesVotes:       state.YesVotes,
		NoVotes:        state.NoVotes,
		Status:         models.ProposalStatus(state.Status),
		ProposedAt:     state.CreatedAt,
		LastSynced:     time.Now().UTC(),
	}, nil
}

// GetCurrentProposal resolves the article's open proposal id on the ledger
// and serves that proposal. The ledger reports "0" when nothing is open.
func (qs *QueryService) GetCurrentProposal(ctx context.Context, articleID string) (*models.UpdateProposal, error) {
	proposalID, err := qs.gateway.GetCurrentProposalID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if proposalID == "" || proposalID == "0" {
		return nil, store.ErrNotFound
	}
	return qs.GetProposal(ctx, articleID, proposalID)
}

// GetVersion serves one version snapshot by index. A snapshot the cache has
// not backfilled yet is reconstructed from the ledger and the content store.
func (qs *QueryService) GetVersion(ctx context.Context, articleID string, index int) (*models.ArticleVersion, error) {
	article, err := qs.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if version, err := findVersion(article, index); err == nil {
		return version, nil
	}
	if index < 0 || index >= article.VersionCount {
		return nil, models.NewValidationError("index", "version index does not exist")
	}

	state, err := qs.gateway.GetArticleVersion(ctx, articleID, index)
	if err != nil {
		return nil, err
	}
	doc, _ := qs.content.Fetch(ctx, state.ContentCID)
	return &models.ArticleVersion{
		ArticleRef:   articleID,
		VersionIndex: index,
		ContentCID:   state.ContentCID,
		ContentHash:  state.ContentHash,
		Title:        doc.Title,
		Content:      doc.Content,
		Timestamp:    state.Timestamp,
	}, nil
}

// CompareVersions diffs two snapshots by index. Index 0 is the original
// submission.
func (qs *QueryService) CompareVersions(ctx context.Context, articleID string, from, to int) (*VersionDiff, error) {
	article, err := qs.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	fromVersion, err := findVersion(article, from)
	if err != nil {
		return nil, err
	}
	toVersion, err := findVersion(article, to)
	if err != nil {
		return nil, err
	}

	return &VersionDiff{
		ArticleID:      articleID,
		From:           *fromVersion,
		To:             *toVersion,
		TitleChanged:   fromVersion.Title != toVersion.Title,
		ContentChanged: fromVersion.ContentHash != toVersion.ContentHash,
		LengthDelta:    len(toVersion.Content) - len(fromVersion.Content),
	}, nil
}

func findVersion(article *models.Article, index int) (*models.ArticleVersion, error) {
	for i := range article.Versions {
		if article.Versions[i].VersionIndex == index {
			return &article.Versions[i], nil
		}
	}
	return nil, models.NewValidationError("version", "index does not exist")
}

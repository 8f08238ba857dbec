package syncer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
	"verity/internal/content"
	"verity/internal/ledger"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/reputation"
	"verity/internal/store"

	"go.uber.org/atomic"
)

// syncWorkers bounds concurrent event handlers. Handlers are idempotent, so
// concurrent processing of related events is safe.
const syncWorkers = 8

// EventSourceInterface is the supervised ledger event stream.
type EventSourceInterface interface {
	Start()
	Stop()
	Events() <-chan ledger.Event
}

// SyncerInterface reconciles the cache store with the authoritative ledger.
// Every operation re-reads ledger state rather than trusting event payloads,
// so duplicated, reordered or dropped notifications all converge to the same
// cache contents.
type SyncerInterface interface {
	Start()
	Stop()
	SyncArticle(ctx context.Context, articleID string, refetch bool) error
	CacheHintArticle(ctx context.Context, articleID string, doc *content.Document) error
	SyncProposal(ctx context.Context, articleID, proposalID string) error
	Resync(ctx context.Context) (int, error)
}

type Syncer struct {
	gateway    ledger.Gateway
	events     EventSourceInterface
	store      *store.Store
	reputation reputation.ServiceInterface
	content    content.ClientInterface
	metrics    providers.MetricsProviderInterface
	logger     providers.Logger

	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

func NewSyncer(
	gateway ledger.Gateway,
	events EventSourceInterface,
	st *store.Store,
	rep reputation.ServiceInterface,
	contentClient content.ClientInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) SyncerInterface {
	return &Syncer{
		gateway:    gateway,
		events:     events,
		store:      st,
		reputation: rep,
		content:    contentClient,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start opens the event stream and begins dispatching handlers.
func (s *Syncer) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.events.Start()
	go s.loop(ctx)
}

// Stop closes the event stream and waits for in-flight handlers.
func (s *Syncer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.events.Stop()
	<-s.done
	s.cancel()
}

func (s *Syncer) loop(ctx context.Context) {
	defer close(s.done)

	sem := make(chan struct{}, syncWorkers)
	var wg sync.WaitGroup

	for evt := range s.events.Events() {
		sem <- struct{}{}
		wg.Add(1)
		go func(evt ledger.Event) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := s.handleEvent(ctx, evt); err != nil {
				s.metrics.IncEventsFailed(string(evt.Type))
				s.logger.Errorf(providers.TypeSync, "Event %s for article %s failed: %s", evt.Type, evt.ArticleID, err)
				return
			}
			s.metrics.IncEventsProcessed(string(evt.Type))
		}(evt)
	}
	wg.Wait()
}

// handleEvent treats the payload as a wake-up signal: identifying fields route
// the work, everything else is re-read from the ledger.
func (s *Syncer) handleEvent(ctx context.Context, evt ledger.Event) error {
	switch evt.Type {
	case ledger.EventArticleSubmitted, ledger.EventAIScored, ledger.EventArticleFinalized:
		return s.SyncArticle(ctx, evt.ArticleID, false)

	case ledger.EventArticleUpdateProposed:
		if err := s.SyncProposal(ctx, evt.ArticleID, evt.ProposalID); err != nil {
			return err
		}
		return s.SyncArticle(ctx, evt.ArticleID, false)

	case ledger.EventVoted:
		if evt.Address != "" {
			addr := models.NormalizeAddress(evt.Address)
			if err := s.reputation.RecordVoteCast(addr, evt.ArticleID, evt.ProposalID); err != nil {
				return err
			}
		}
		if evt.ProposalID != "" {
			if err := s.SyncProposal(ctx, evt.ArticleID, evt.ProposalID); err != nil {
				return err
			}
		}
		return s.SyncArticle(ctx, evt.ArticleID, false)

	case ledger.EventStaked, ledger.EventUnstaked:
		return s.syncStake(ctx, evt.Address)

	case ledger.EventRewarded:
		return s.reputation.RecordVoteOutcome(models.NormalizeAddress(evt.Address), evt.ArticleID, evt.ProposalID, true, evt.Amount, "0")

	case ledger.EventSlashed:
		return s.reputation.RecordVoteOutcome(models.NormalizeAddress(evt.Address), evt.ArticleID, evt.ProposalID, false, "0", evt.Amount)

	default:
		s.logger.Debugf(providers.TypeSync, "Ignoring unrecognized event %q", evt.Type)
		return nil
	}
}

// syncStake overwrites the cached stake with a fresh ledger read. The amount
// carried by Staked/Unstaked events is never applied as a delta.
func (s *Syncer) syncStake(ctx context.Context, address string) error {
	addr := models.NormalizeAddress(address)
	balance, err := s.gateway.StakedBalance(ctx, addr)
	if err != nil {
		return err
	}
	return s.reputation.UpdateStake(addr, balance)
}

// SyncArticle re-reads one article from the ledger and overwrites the cache
// row. With refetch the document is pulled from the gateway again, replacing
// any placeholder left by an earlier failed fetch.
func (s *Syncer) SyncArticle(ctx context.Context, articleID string, refetch bool) error {
	return s.syncArticle(ctx, articleID, nil, refetch)
}

// CacheHintArticle is SyncArticle for callers that already hold the document,
// typically the submission path. The ledger state is still re-read.
func (s *Syncer) CacheHintArticle(ctx context.Context, articleID string, doc *content.Document) error {
	return s.syncArticle(ctx, articleID, doc, false)
}

func (s *Syncer) syncArticle(ctx context.Context, articleID string, doc *content.Document, refetch bool) error {
	start := time.Now()

	state, err := s.gateway.GetArticle(ctx, articleID)
	if err != nil {
		return err
	}

	existing, err := s.store.GetArticle(articleID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if doc == nil {
		doc = s.resolveContent(ctx, state.ContentCID, existing, refetch)
	}

	status := models.ArticleStatus(state.Status)
	if existing != nil && !existing.Status.CanTransition(status) {
		s.logger.Warnf(providers.TypeSync, "Discarding stale status %s for article %s (cached %s)",
			status, articleID, existing.Status)
		status = existing.Status
	}

	article := &models.Article{
		ArticleID:    state.ID,
		Author:       models.NormalizeAddress(state.Author),
		Title:        doc.Title,
		Content:      doc.Content,
		ContentCID:   state.ContentCID,
		ContentHash:  state.ContentHash,
		TrustScore:   state.TrustScore,
		Status:       status,
		Timestamp:    state.Timestamp,
		YesVotes:     state.YesVotes,
		NoVotes:      state.NoVotes,
		VersionCount: state.VersionCount,
		LastSynced:   time.Now().UTC(),
	}
	if err := s.store.UpsertArticle(article); err != nil {
		return err
	}

	if err := s.backfillVersions(ctx, state, existing); err != nil {
		s.logger.Warnf(providers.TypeSync, "Version backfill for article %s incomplete: %s", articleID, err)
	}

	s.metrics.ObserveSyncDuration(time.Since(start))
	return nil
}

// resolveContent reuses the cached document when the address is unchanged.
// Placeholder rows are always refetched so a recovered gateway heals them.
func (s *Syncer) resolveContent(ctx context.Context, cid string, existing *models.Article, refetch bool) *content.Document {
	if !refetch && existing != nil &&
		existing.ContentCID == cid &&
		existing.Title != content.PlaceholderTitle {
		return &content.Document{Title: existing.Title, Content: existing.Content}
	}

	doc, _ := s.content.Fetch(ctx, cid)
	if doc.Title == content.PlaceholderTitle && existing != nil &&
		existing.ContentCID == cid && existing.Title != content.PlaceholderTitle {
		// A previously good document beats a fresh placeholder.
		return &content.Document{Title: existing.Title, Content: existing.Content}
	}
	return doc
}

// backfillVersions fetches version snapshots the cache is missing. Snapshots
// are immutable and insertion ignores duplicates, so re-running is safe.
func (s *Syncer) backfillVersions(ctx context.Context, state *ledger.ArticleState, existing *models.Article) error {
	have := 0
	if existing != nil {
		have = len(existing.Versions)
	}

	for idx := have; idx < state.VersionCount; idx++ {
		version, err := s.gateway.GetArticleVersion(ctx, state.ID, idx)
		if err != nil {
			return err
		}
		doc, _ := s.content.Fetch(ctx, version.ContentCID)
		if err := s.store.AppendVersion(&models.ArticleVersion{
			ArticleRef:   state.ID,
			VersionIndex: idx,
			ContentCID:   version.ContentCID,
			ContentHash:  version.ContentHash,
			Title:        doc.Title,
			Content:      doc.Content,
			Timestamp:    version.Timestamp,
		}); err != nil {
			return err
		}
	}
	return nil
}

// SyncProposal re-reads one update proposal and overwrites its cache row.
func (s *Syncer) SyncProposal(ctx context.Context, articleID, proposalID string) error {
	state, err := s.gateway.GetUpdateProposal(ctx, articleID, proposalID)
	if err != nil {
		return err
	}

	return s.store.UpsertProposal(&models.UpdateProposal{
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
	})
}

// Resync walks every registry article and rewrites its cache row, refetching
// content to heal placeholders. Returns the number of articles synced.
func (s *Syncer) Resync(ctx context.Context) (int, error) {
	total, err := s.gateway.TotalArticles(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := int64(1); i <= total; i++ {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}

		articleID := strconv.FormatInt(i, 10)
		if err := s.SyncArticle(ctx, articleID, true); err != nil {
			s.logger.Warnf(providers.TypeSync, "Resync of article %s failed: %s", articleID, err)
			continue
		}

		if proposalID, err := s.gateway.GetCurrentProposalID(ctx, articleID); err == nil && proposalID != "" && proposalID != "0" {
			if err := s.SyncProposal(ctx, articleID, proposalID); err != nil {
				s.logger.Warnf(providers.TypeSync, "Resync of proposal %s/%s failed: %s", articleID, proposalID, err)
			}
		}
		synced++
	}

	s.metrics.SetArticlesSynced(int64(synced))
	s.logger.Infof(providers.TypeSync, "Resync complete: %d/%d articles", synced, total)
	return synced, nil
}

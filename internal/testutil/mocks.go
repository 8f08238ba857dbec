package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"verity/internal/content"
	"verity/internal/ledger"
	"verity/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasLog reports whether any entry at the given level contains the substring
// in its format string.
func (m *MockLogger) HasLog(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Format, substr) {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	Requests        int
	Endpoints       []string
	CacheHits       int
	CacheMisses     int
	EventsProcessed map[string]int
	EventsFailed    map[string]int
	SyncsObserved   int
	ScoringResults  map[string]int
	ArticlesSynced  int64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		EventsProcessed: make(map[string]int),
		EventsFailed:    make(map[string]int),
		ScoringResults:  make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
	m.Endpoints = append(m.Endpoints, endpoint)
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncEventsProcessed(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsProcessed[eventType]++
}

func (m *MockMetrics) IncEventsFailed(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsFailed[eventType]++
}

func (m *MockMetrics) ObserveSyncDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncsObserved++
}

func (m *MockMetrics) IncScoringResults(engine, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScoringResults[engine+":"+outcome]++
}

func (m *MockMetrics) SetArticlesSynced(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSynced = count
}

func (m *MockMetrics) EventsProcessedCount(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EventsProcessed[eventType]
}

func (m *MockMetrics) EventsFailedCount(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EventsFailed[eventType]
}

// MockGateway implements ledger.Gateway against in-memory maps. Write hooks
// are optional; unset hooks succeed and return a canned receipt.
type MockGateway struct {
	mu               sync.Mutex
	Articles         map[string]*ledger.ArticleState
	Versions         map[string][]ledger.VersionState
	Proposals        map[string]*ledger.ProposalState // key "articleID:proposalID"
	CurrentProposals map[string]string
	Balances         map[string]string
	Err              error

	SubmitFn func(contentCID, contentHash string) (*ledger.SubmitReceipt, error)
	VoteFn   func(articleID string, decision bool) (*ledger.SubmitReceipt, error)
	ScoreFn  func(articleID string, score int) (*ledger.SubmitReceipt, error)
	Calls    []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Articles:         make(map[string]*ledger.ArticleState),
		Versions:         make(map[string][]ledger.VersionState),
		Proposals:        make(map[string]*ledger.ProposalState),
		CurrentProposals: make(map[string]string),
		Balances:         make(map[string]string),
	}
}

func (m *MockGateway) called(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
}

func (m *MockGateway) GetArticle(_ context.Context, id string) (*ledger.ArticleState, error) {
	m.called("GetArticle:" + id)
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.Articles[id]
	if !ok {
		return nil, &ledger.CallError{Method: "getArticle", Reason: "Article does not exist"}
	}
	copied := *state
	return &copied, nil
}

func (m *MockGateway) GetArticleVersion(_ context.Context, id string, index int) (*ledger.VersionState, error) {
	m.called(fmt.Sprintf("GetArticleVersion:%s:%d", id, index))
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.Versions[id]
	if index < 0 || index >= len(versions) {
		return nil, &ledger.CallError{Method: "getArticleVersion", Reason: "Version does not exist"}
	}
	copied := versions[index]
	return &copied, nil
}

func (m *MockGateway) GetUpdateProposal(_ context.Context, id, proposalID string) (*ledger.ProposalState, error) {
	m.called("GetUpdateProposal:" + id + ":" + proposalID)
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.Proposals[id+":"+proposalID]
	if !ok {
		return nil, &ledger.CallError{Method: "getUpdateProposal", Reason: "Proposal does not exist"}
	}
	copied := *state
	return &copied, nil
}

func (m *MockGateway) GetCurrentProposalID(_ context.Context, id string) (string, error) {
	m.called("GetCurrentProposalID:" + id)
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if proposalID, ok := m.CurrentProposals[id]; ok {
		return proposalID, nil
	}
	return "0", nil
}

func (m *MockGateway) TotalArticles(_ context.Context) (int64, error) {
	m.called("TotalArticles")
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Articles)), nil
}

func (m *MockGateway) SubmitArticle(_ context.Context, contentCID, contentHash string) (*ledger.SubmitReceipt, error) {
	m.called("SubmitArticle")
	if m.SubmitFn != nil {
		return m.SubmitFn(contentCID, contentHash)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: "1"}, nil
}

func (m *MockGateway) ProposeArticleUpdate(_ context.Context, id, contentCID, contentHash string) (*ledger.SubmitReceipt, error) {
	m.called("ProposeArticleUpdate:" + id)
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: id, ProposalID: "1"}, nil
}

func (m *MockGateway) SetAIScore(_ context.Context, id string, score int) (*ledger.SubmitReceipt, error) {
	m.called(fmt.Sprintf("SetAIScore:%s:%d", id, score))
	if m.ScoreFn != nil {
		return m.ScoreFn(id, score)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: id}, nil
}

func (m *MockGateway) SetUpdateProposalAIScore(_ context.Context, id, proposalID string, score int) (*ledger.SubmitReceipt, error) {
	m.called(fmt.Sprintf("SetUpdateProposalAIScore:%s:%s:%d", id, proposalID, score))
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: id, ProposalID: proposalID}, nil
}

func (m *MockGateway) Vote(_ context.Context, id string, decision bool) (*ledger.SubmitReceipt, error) {
	m.called(fmt.Sprintf("Vote:%s:%t", id, decision))
	if m.VoteFn != nil {
		return m.VoteFn(id, decision)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: id}, nil
}

func (m *MockGateway) VoteOnUpdateProposal(_ context.Context, id, proposalID string, decision bool) (*ledger.SubmitReceipt, error) {
	m.called(fmt.Sprintf("VoteOnUpdateProposal:%s:%s:%t", id, proposalID, decision))
	if m.Err != nil {
		return nil, m.Err
	}
	return &ledger.SubmitReceipt{TxHash: "0xmock", ArticleID: id, ProposalID: proposalID}, nil
}

func (m *MockGateway) StakedBalance(_ context.Context, address string) (string, error) {
	m.called("StakedBalance:" + address)
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if balance, ok := m.Balances[address]; ok {
		return balance, nil
	}
	return "0", nil
}

// MockContent implements content.ClientInterface with an in-memory blob map.
type MockContent struct {
	mu       sync.Mutex
	Docs     map[string]*content.Document
	FetchErr error
	Uploads  int
}

func NewMockContent() *MockContent {
	return &MockContent{Docs: make(map[string]*content.Document)}
}

func (m *MockContent) Fetch(_ context.Context, cid string) (*content.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return &content.Document{Title: content.PlaceholderTitle, Content: content.PlaceholderContent}, m.FetchErr
	}
	if doc, ok := m.Docs[cid]; ok {
		copied := *doc
		return &copied, nil
	}
	return &content.Document{Title: content.PlaceholderTitle, Content: content.PlaceholderContent},
		&content.FetchError{CID: cid, Err: fmt.Errorf("unknown cid")}
}

func (m *MockContent) Upload(_ context.Context, doc *content.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads++
	cid := fmt.Sprintf("Qm%d", m.Uploads)
	copied := *doc
	m.Docs[cid] = &copied
	return cid, nil
}

// MockEventSource feeds canned events to a syncer. Satisfies the event source
// interface without a websocket.
type MockEventSource struct {
	Ch chan ledger.Event
}

func NewMockEventSource() *MockEventSource {
	return &MockEventSource{Ch: make(chan ledger.Event, 64)}
}

func (m *MockEventSource) Start()                      {}
func (m *MockEventSource) Stop()                       { close(m.Ch) }
func (m *MockEventSource) Events() <-chan ledger.Event { return m.Ch }

package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"verity/internal/content"
	"verity/internal/ledger"
	"verity/internal/lifecycle"
	"verity/internal/models"
	"verity/internal/scorer"
	"verity/internal/services"
	"verity/internal/store"
	"verity/internal/structures"
	"verity/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLifecycle struct {
	submitErr error
	voteErr   error
	votes     []string
	scored    []string
}

func (s *stubLifecycle) SubmitArticle(_ context.Context, req *lifecycle.SubmitRequest) (*lifecycle.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &lifecycle.SubmitResult{ArticleID: "1", TxHash: "0xabc"}, nil
}

func (s *stubLifecycle) ProposeUpdate(_ context.Context, articleID string, _ *lifecycle.SubmitRequest) (*lifecycle.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &lifecycle.SubmitResult{ArticleID: articleID, ProposalID: "1", TxHash: "0xabc"}, nil
}

func (s *stubLifecycle) ScoreArticle(_ context.Context, articleID string) (*scorer.Result, error) {
	s.scored = append(s.scored, articleID)
	return &scorer.Result{TrustScore: 85, Engine: "stub"}, nil
}

func (s *stubLifecycle) ScoreProposal(context.Context, string, string) (*scorer.Result, error) {
	return &scorer.Result{TrustScore: 85, Engine: "stub"}, nil
}

func (s *stubLifecycle) Vote(_ context.Context, articleID string, _ bool) (*ledger.SubmitReceipt, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	s.votes = append(s.votes, articleID)
	return &ledger.SubmitReceipt{TxHash: "0xvote", ArticleID: articleID}, nil
}

func (s *stubLifecycle) VoteOnProposal(_ context.Context, articleID, proposalID string, _ bool) (*ledger.SubmitReceipt, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	s.votes = append(s.votes, articleID+":"+proposalID)
	return &ledger.SubmitReceipt{TxHash: "0xvote", ArticleID: articleID, ProposalID: proposalID}, nil
}

type stubQuery struct {
	articles        map[string]*models.Article
	currentProposal *models.UpdateProposal
	err             error
}

func (s *stubQuery) GetArticle(_ context.Context, articleID string) (*models.Article, error) {
	if s.err != nil {
		return nil, s.err
	}
	if a, ok := s.articles[articleID]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubQuery) ListArticles(_ store.ArticleFilter, page, limit int) (*services.ArticlePage, error) {
	return &services.ArticlePage{Articles: []models.Article{}, Page: page}, nil
}

func (s *stubQuery) GetAnalysis(articleID string) (*models.AnalysisRecord, error) {
	return &models.AnalysisRecord{ArticleID: articleID, TrustScore: 85}, nil
}

func (s *stubQuery) GetProposal(context.Context, string, string) (*models.UpdateProposal, error) {
	return nil, store.ErrNotFound
}

func (s *stubQuery) GetCurrentProposal(context.Context, string) (*models.UpdateProposal, error) {
	if s.currentProposal != nil {
		return s.currentProposal, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubQuery) GetVersion(_ context.Context, articleID string, index int) (*models.ArticleVersion, error) {
	if index == 0 {
		return &models.ArticleVersion{ArticleRef: articleID, VersionIndex: 0, Title: "Original"}, nil
	}
	return nil, models.NewValidationError("index", "version index does not exist")
}

func (s *stubQuery) CompareVersions(context.Context, string, int, int) (*services.VersionDiff, error) {
	return nil, &models.ValidationError{Field: "to", Reason: "version index does not exist"}
}

type articleFixture struct {
	ctrl      *ArticleController
	lifecycle *stubLifecycle
	query     *stubQuery
	cache     *testutil.MockCache
	content   *testutil.MockContent
	metrics   *testutil.MockMetrics
}

func newArticleFixture() *articleFixture {
	conf := &structures.Config{Ledger: structures.LedgerConfig{ValidatorCount: 3}}
	lc := &stubLifecycle{}
	query := &stubQuery{articles: map[string]*models.Article{}}
	cache := testutil.NewMockCache()
	contentClient := testutil.NewMockContent()
	metrics := testutil.NewMockMetrics()
	ctrl := NewArticleController(&testutil.MockLogger{}, conf, lc, query, contentClient, cache, metrics)
	return &articleFixture{ctrl: ctrl, lifecycle: lc, query: query, cache: cache, content: contentClient, metrics: metrics}
}

func TestContent_ServesDocumentButNeverCachesPlaceholder(t *testing.T) {
	f := newArticleFixture()
	f.content.Docs["QmX"] = &content.Document{Title: "Doc", Content: "Body"}

	rec := httptest.NewRecorder()
	f.ctrl.Content(rec, httptest.NewRequest(http.MethodGet, "/content?cid=QmX", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Doc")
	_, cached := f.cache.Get("content:QmX")
	assert.True(t, cached)

	// An unfetchable address degrades to the placeholder and stays uncached.
	rec = httptest.NewRecorder()
	f.ctrl.Content(rec, httptest.NewRequest(http.MethodGet, "/content?cid=QmMissing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), content.PlaceholderTitle)
	_, cached = f.cache.Get("content:QmMissing")
	assert.False(t, cached)
}

func TestSubmit_Created(t *testing.T) {
	f := newArticleFixture()

	body := bytes.NewBufferString(`{"title": "T", "content": "C"}`)
	rec := httptest.NewRecorder()
	f.ctrl.Submit(rec, httptest.NewRequest(http.MethodPost, "/articles", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var result lifecycle.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "1", result.ArticleID)
}

func TestSubmit_ValidationErrorIsBadRequest(t *testing.T) {
	f := newArticleFixture()
	f.lifecycle.submitErr = &models.ValidationError{Field: "title", Reason: "must not be empty"}

	rec := httptest.NewRecorder()
	f.ctrl.Submit(rec, httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_MissingArticleIsNotFound(t *testing.T) {
	f := newArticleFixture()

	rec := httptest.NewRecorder()
	f.ctrl.Get(rec, httptest.NewRequest(http.MethodGet, "/articles/get?id=404", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_PopulatesAndServesCache(t *testing.T) {
	f := newArticleFixture()
	f.query.articles["1"] = &models.Article{ArticleID: "1", Title: "First"}

	rec := httptest.NewRecorder()
	f.ctrl.Get(rec, httptest.NewRequest(http.MethodGet, "/articles/get?id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, cached := f.cache.Get("article:1")
	assert.True(t, cached)
	assert.Equal(t, 1, f.metrics.CacheMisses)

	// Second read is answered from the cache even if the backend breaks.
	f.query.err = assert.AnError
	rec = httptest.NewRecorder()
	f.ctrl.Get(rec, httptest.NewRequest(http.MethodGet, "/articles/get?id=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "First")
	assert.Equal(t, 1, f.metrics.CacheHits)
}

func TestList_InvalidStatusRejected(t *testing.T) {
	f := newArticleFixture()

	rec := httptest.NewRecorder()
	f.ctrl.List(rec, httptest.NewRequest(http.MethodGet, "/articles/list?status=42", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.ctrl.List(rec, httptest.NewRequest(http.MethodGet, "/articles/list?status=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVote_RevertMappings(t *testing.T) {
	cases := []struct {
		reason string
		status int
	}{
		{"Already voted on this article", http.StatusConflict},
		{"Must stake first", http.StatusForbidden},
		{"Article does not exist", http.StatusNotFound},
		{"", http.StatusBadGateway},
	}
	for _, tc := range cases {
		f := newArticleFixture()
		f.lifecycle.voteErr = &ledger.CallError{Method: "vote", Reason: tc.reason}

		rec := httptest.NewRecorder()
		f.ctrl.Vote(rec, httptest.NewRequest(http.MethodPost, "/articles/vote",
			bytes.NewBufferString(`{"articleId": "1", "approve": true}`)))
		assert.Equal(t, tc.status, rec.Code, "reason %q", tc.reason)
	}
}

func TestVote_ValidatorIndexValidated(t *testing.T) {
	f := newArticleFixture() // three configured validator identities

	cases := []struct {
		body   string
		status int
	}{
		{`{"articleId": "1", "approve": true, "validatorIndex": 2}`, http.StatusOK},
		{`{"articleId": "1", "approve": true, "validatorIndex": 3}`, http.StatusBadRequest},
		{`{"articleId": "1", "approve": true, "validatorIndex": -1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		f.ctrl.Vote(rec, httptest.NewRequest(http.MethodPost, "/articles/vote",
			bytes.NewBufferString(tc.body)))
		assert.Equal(t, tc.status, rec.Code, "body %s", tc.body)
	}
	// Only the in-range vote reached the lifecycle.
	assert.Equal(t, []string{"1"}, f.lifecycle.votes)
}

func TestVote_InvalidatesArticleCache(t *testing.T) {
	f := newArticleFixture()
	f.cache.Set("article:1", []byte(`{"stale": true}`))

	rec := httptest.NewRecorder()
	f.ctrl.Vote(rec, httptest.NewRequest(http.MethodPost, "/articles/vote",
		bytes.NewBufferString(`{"articleId": "1", "approve": false}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1"}, f.lifecycle.votes)
	_, cached := f.cache.Get("article:1")
	assert.False(t, cached)
}

func TestVote_MissingArticleIDIsBadRequest(t *testing.T) {
	f := newArticleFixture()

	rec := httptest.NewRecorder()
	f.ctrl.Vote(rec, httptest.NewRequest(http.MethodPost, "/articles/vote",
		bytes.NewBufferString(`{"approve": true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteOnProposal_InvalidatesBothCaches(t *testing.T) {
	f := newArticleFixture()
	f.cache.Set("article:1", []byte(`{}`))
	f.cache.Set("proposal:1:2", []byte(`{}`))

	rec := httptest.NewRecorder()
	f.ctrl.VoteOnProposal(rec, httptest.NewRequest(http.MethodPost, "/articles/proposal/vote",
		bytes.NewBufferString(`{"articleId": "1", "proposalId": "2", "approve": true}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	_, a := f.cache.Get("article:1")
	_, p := f.cache.Get("proposal:1:2")
	assert.False(t, a)
	assert.False(t, p)
}

func TestCurrentProposal(t *testing.T) {
	f := newArticleFixture()

	// Nothing open on this article.
	rec := httptest.NewRecorder()
	f.ctrl.CurrentProposal(rec, httptest.NewRequest(http.MethodGet, "/articles/proposal/current?articleId=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.query.currentProposal = &models.UpdateProposal{ArticleRef: "1", ProposalID: "4"}
	rec = httptest.NewRecorder()
	f.ctrl.CurrentProposal(rec, httptest.NewRequest(http.MethodGet, "/articles/proposal/current?articleId=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"proposalId":"4"`)
}

func TestVersion_ServedAndValidated(t *testing.T) {
	f := newArticleFixture()

	rec := httptest.NewRecorder()
	f.ctrl.Version(rec, httptest.NewRequest(http.MethodGet, "/articles/versions/get?id=1&index=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Original")

	rec = httptest.NewRecorder()
	f.ctrl.Version(rec, httptest.NewRequest(http.MethodGet, "/articles/versions/get?id=1&index=9", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareVersions_BadIndexIsBadRequest(t *testing.T) {
	f := newArticleFixture()

	rec := httptest.NewRecorder()
	f.ctrl.CompareVersions(rec, httptest.NewRequest(http.MethodGet, "/articles/versions/compare?id=1&from=0&to=9", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescore_InvalidatesCaches(t *testing.T) {
	f := newArticleFixture()
	f.cache.Set("article:1", []byte(`{}`))
	f.cache.Set("analysis:1", []byte(`{}`))

	rec := httptest.NewRecorder()
	f.ctrl.Rescore(rec, httptest.NewRequest(http.MethodPost, "/articles/rescore",
		bytes.NewBufferString(`{"articleId": "1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1"}, f.lifecycle.scored)
	_, a := f.cache.Get("article:1")
	_, an := f.cache.Get("analysis:1")
	assert.False(t, a)
	assert.False(t, an)
}

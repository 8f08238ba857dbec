package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"verity/internal/content"
	"verity/internal/lifecycle"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/services"
	"verity/internal/store"
	"verity/internal/structures"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ArticleController struct {
	logger         providers.Logger
	lifecycle      lifecycle.ServiceInterface
	query          services.QueryServiceInterface
	content        content.ClientInterface
	cache          providers.CacheProviderInterface
	metrics        providers.MetricsProviderInterface
	validatorCount int
}

func NewArticleController(logger providers.Logger, conf *structures.Config, lc lifecycle.ServiceInterface, query services.QueryServiceInterface, contentClient content.ClientInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) *ArticleController {
	return &ArticleController{
		logger:         logger,
		lifecycle:      lc,
		query:          query,
		content:        contentClient,
		cache:          cache,
		metrics:        metrics,
		validatorCount: conf.Ledger.ValidatorCount,
	}
}

func (ac *ArticleController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		ac.metrics.IncCacheHits()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	ac.metrics.IncCacheMisses()

	result, err := compute()
	if err != nil {
		writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ArticleController) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload lifecycle.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := ac.lifecycle.SubmitArticle(r.Context(), &payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (ac *ArticleController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "article:"+id, func() (any, error) {
		return ac.query.GetArticle(r.Context(), id)
	})
}

func (ac *ArticleController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := store.ArticleFilter{
		Author: models.NormalizeAddress(q.Get("author")),
		Search: q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil || !models.ArticleStatus(code).Valid() {
			http.Error(w, "Invalid status parameter", http.StatusBadRequest)
			return
		}
		status := models.ArticleStatus(code)
		filter.Status = &status
	}

	cacheKey := fmt.Sprintf("articles:%s:%s:%s:%d:%d",
		q.Get("status"), filter.Author, filter.Search, page, limit)
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.query.ListArticles(filter, page, limit)
	})
}

func (ac *ArticleController) Analysis(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "analysis:"+id, func() (any, error) {
		return ac.query.GetAnalysis(id)
	})
}

type voteRequest struct {
	ArticleID      string `json:"articleId"`
	ProposalID     string `json:"proposalId"`
	Approve        bool   `json:"approve"`
	ValidatorIndex *int   `json:"validatorIndex,omitempty"`
}

// validateValidatorIndex guards the validator-index vote variant. Indexes
// address the node's configured signing identities; the node picks the
// signer, this side rejects impossible indexes before any I/O.
func (ac *ArticleController) validateValidatorIndex(index *int) error {
	if index == nil || ac.validatorCount <= 0 {
		return nil
	}
	if *index < 0 || *index >= ac.validatorCount {
		return models.NewValidationError("validatorIndex",
			fmt.Sprintf("must be 0-%d", ac.validatorCount-1))
	}
	return nil
}

func (ac *ArticleController) Vote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload voteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ArticleID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.validateValidatorIndex(payload.ValidatorIndex); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := ac.lifecycle.Vote(r.Context(), payload.ArticleID, payload.Approve)
	if err != nil {
		writeError(w, err)
		return
	}
	ac.cache.Del("article:" + payload.ArticleID)
	writeJSON(w, http.StatusOK, receipt)
}

type proposeRequest struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func (ac *ArticleController) Propose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ArticleID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := ac.lifecycle.ProposeUpdate(r.Context(), payload.ArticleID,
		&lifecycle.SubmitRequest{Title: payload.Title, Content: payload.Content})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (ac *ArticleController) GetProposal(w http.ResponseWriter, r *http.Request) {
	articleID := r.URL.Query().Get("articleId")
	proposalID := r.URL.Query().Get("proposalId")
	if articleID == "" || proposalID == "" {
		http.Error(w, "Missing articleId or proposalId parameter", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "proposal:"+articleID+":"+proposalID, func() (any, error) {
		return ac.query.GetProposal(r.Context(), articleID, proposalID)
	})
}

// CurrentProposal serves the article's open update proposal. Never cached:
// which proposal is current changes as proposals open and settle.
func (ac *ArticleController) CurrentProposal(w http.ResponseWriter, r *http.Request) {
	articleID := r.URL.Query().Get("articleId")
	if articleID == "" {
		http.Error(w, "Missing articleId parameter", http.StatusBadRequest)
		return
	}

	proposal, err := ac.query.GetCurrentProposal(r.Context(), articleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// Version serves one immutable version snapshot, including its document.
func (ac *ArticleController) Version(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	index, errIndex := strconv.Atoi(q.Get("index"))
	if id == "" || errIndex != nil {
		http.Error(w, "Missing id or index parameter", http.StatusBadRequest)
		return
	}

	ac.serveFromCacheOrCompute(w, fmt.Sprintf("version:%s:%d", id, index), func() (any, error) {
		return ac.query.GetVersion(r.Context(), id, index)
	})
}

func (ac *ArticleController) VoteOnProposal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload voteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ArticleID == "" || payload.ProposalID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.validateValidatorIndex(payload.ValidatorIndex); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := ac.lifecycle.VoteOnProposal(r.Context(), payload.ArticleID, payload.ProposalID, payload.Approve)
	if err != nil {
		writeError(w, err)
		return
	}
	ac.cache.Del("article:" + payload.ArticleID)
	ac.cache.Del("proposal:" + payload.ArticleID + ":" + payload.ProposalID)
	writeJSON(w, http.StatusOK, receipt)
}

// Content serves the raw document at a content address. Addresses are
// immutable, so responses are cached aggressively; a placeholder document is
// never cached so it can heal on the next read.
func (ac *ArticleController) Content(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("cid")
	if cid == "" {
		http.Error(w, "Missing cid parameter", http.StatusBadRequest)
		return
	}

	cacheKey := "content:" + cid
	if data, ok := ac.cache.Get(cacheKey); ok {
		ac.metrics.IncCacheHits()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	ac.metrics.IncCacheMisses()

	doc, err := ac.content.Fetch(r.Context(), cid)
	gson, merr := json.Marshal(doc)
	if merr != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err == nil {
		ac.cache.Set(cacheKey, gson)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ArticleController) CompareVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	from, errFrom := strconv.Atoi(q.Get("from"))
	to, errTo := strconv.Atoi(q.Get("to"))
	if id == "" || errFrom != nil || errTo != nil {
		http.Error(w, "Missing id, from or to parameter", http.StatusBadRequest)
		return
	}

	ac.serveFromCacheOrCompute(w, fmt.Sprintf("diff:%s:%d:%d", id, from, to), func() (any, error) {
		return ac.query.CompareVersions(r.Context(), id, from, to)
	})
}

type rescoreRequest struct {
	ArticleID string `json:"articleId"`
}

// Rescore re-runs the scoring chain for one article, for operators recovering
// from an exhausted chain. Runs synchronously so the caller sees the result.
func (ac *ArticleController) Rescore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload rescoreRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ArticleID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := ac.lifecycle.ScoreArticle(r.Context(), payload.ArticleID)
	if err != nil {
		writeError(w, err)
		return
	}
	ac.cache.Del("article:" + payload.ArticleID)
	ac.cache.Del("analysis:" + payload.ArticleID)
	writeJSON(w, http.StatusOK, result)
}

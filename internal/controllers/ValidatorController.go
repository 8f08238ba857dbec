package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/reputation"

	json "github.com/goccy/go-json"
)

const defaultLeaderboardSize = 10

type ValidatorController struct {
	logger     providers.Logger
	reputation reputation.ServiceInterface
	cache      providers.CacheProviderInterface
	metrics    providers.MetricsProviderInterface
}

func NewValidatorController(logger providers.Logger, rep reputation.ServiceInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) *ValidatorController {
	return &ValidatorController{
		logger:     logger,
		reputation: rep,
		cache:      cache,
		metrics:    metrics,
	}
}

// Get serves one validator profile. Never cached: the profile refreshes the
// stake from the ledger on every read.
func (vc *ValidatorController) Get(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "Missing address parameter", http.StatusBadRequest)
		return
	}

	profile, err := vc.reputation.Profile(r.Context(), models.NormalizeAddress(address))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (vc *ValidatorController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	vc.serveCached(w, fmt.Sprintf("validators:%d:%d", page, limit), func() (any, error) {
		return vc.reputation.ListValidators(page, limit)
	})
}

func (vc *ValidatorController) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultLeaderboardSize
	}

	vc.serveCached(w, fmt.Sprintf("leaderboard:%d", limit), func() (any, error) {
		return vc.reputation.TopValidators(limit)
	})
}

// Recalculate recomputes every validator's rating and verified badge.
func (vc *ValidatorController) Recalculate(w http.ResponseWriter, r *http.Request) {
	count, err := vc.reputation.RecalculateAll()
	if err != nil {
		writeError(w, err)
		return
	}
	vc.logger.Infof(providers.TypePost, "Manual recalculation updated %d validators", count)
	writeJSON(w, http.StatusOK, map[string]int{"recalculated": count})
}

func (vc *ValidatorController) serveCached(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := vc.cache.Get(cacheKey); ok {
		vc.metrics.IncCacheHits()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	vc.metrics.IncCacheMisses()

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
	vc.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

package controllers

import (
	"errors"
	"net/http"
	"verity/internal/ledger"
	"verity/internal/models"
	"verity/internal/store"

	json "github.com/goccy/go-json"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError maps service errors onto HTTP statuses. Contract reverts with a
// recognized reason get specific codes; any other ledger failure is a bad
// gateway, never an internal error.
func writeError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	var ce *ledger.CallError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound), ledger.IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	case ledger.IsAlreadyVoted(err):
		http.Error(w, "Already voted on this article", http.StatusConflict)
	case ledger.IsMustStake(err):
		http.Error(w, "Must stake before voting", http.StatusForbidden)
	case errors.As(err, &ce):
		http.Error(w, "Ledger unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

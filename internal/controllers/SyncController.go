package controllers

import (
	"context"
	"net/http"
	"verity/internal/providers"
	"verity/internal/syncer"

	"go.uber.org/atomic"
)

// SyncController triggers a full resync on demand. The walk can take minutes
// on a large registry, so it runs in the background and at most one runs at a
// time.
type SyncController struct {
	logger  providers.Logger
	syncer  syncer.SyncerInterface
	running atomic.Bool
}

func NewSyncController(logger providers.Logger, sync syncer.SyncerInterface) *SyncController {
	return &SyncController{logger: logger, syncer: sync}
}

func (sc *SyncController) Trigger(w http.ResponseWriter, r *http.Request) {
	if !sc.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already running"})
		return
	}

	go func() {
		defer sc.running.Store(false)
		count, err := sc.syncer.Resync(context.Background())
		if err != nil {
			sc.logger.Errorf(providers.TypeSync, "Manual resync failed after %d articles: %s", count, err)
			return
		}
		sc.logger.Infof(providers.TypeSync, "Manual resync finished, %d articles", count)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

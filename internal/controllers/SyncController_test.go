package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"verity/internal/content"
	"verity/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSyncer holds Resync open until released so the single-flight guard
// can be observed.
type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) Start() {}
func (b *blockingSyncer) Stop()  {}

func (b *blockingSyncer) SyncArticle(context.Context, string, bool) error { return nil }

func (b *blockingSyncer) CacheHintArticle(context.Context, string, *content.Document) error {
	return nil
}

func (b *blockingSyncer) SyncProposal(context.Context, string, string) error { return nil }

func (b *blockingSyncer) Resync(context.Context) (int, error) {
	close(b.started)
	<-b.release
	return 1, nil
}

func TestTrigger_SingleFlight(t *testing.T) {
	sync := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	ctrl := NewSyncController(&testutil.MockLogger{}, sync)

	rec := httptest.NewRecorder()
	ctrl.Trigger(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-sync.started

	// A second trigger while the walk is still running is refused.
	rec = httptest.NewRecorder()
	ctrl.Trigger(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(sync.release)
}

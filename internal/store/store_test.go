package store

import (
	"path/filepath"
	"testing"
	"time"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Errorf(providers.TypeEnum, string, ...interface{}) {}
func (nopLogger) Warnf(providers.TypeEnum, string, ...interface{})  {}
func (nopLogger) Debugf(providers.TypeEnum, string, ...interface{}) {}
func (nopLogger) Infof(providers.TypeEnum, string, ...interface{})  {}
func (nopLogger) Fatalf(providers.TypeEnum, string, ...interface{}) {}
func (nopLogger) Close()                                            {}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conf := &structures.Config{
		Store: structures.StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "test.db"),
		},
	}
	st, err := NewStore(conf, nopLogger{})
	require.NoError(t, err)
	return st
}

func sampleArticle(id string) *models.Article {
	return &models.Article{
		ArticleID:   id,
		Author:      "0xauthor",
		Title:       "Original title",
		Content:     "Original body",
		ContentCID:  "QmFirst",
		ContentHash: "0xhash1",
		TrustScore:  0,
		Status:      models.StatusSubmitted,
		Timestamp:   time.Now().UTC().Truncate(time.Second),
		LastSynced:  time.Now().UTC(),
	}
}

func TestUpsertArticle_Idempotent(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.UpsertArticle(sampleArticle("1")))
	require.NoError(t, st.UpsertArticle(sampleArticle("1")))

	count, err := st.CountArticles()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertArticle_OverwritesOnReRead(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertArticle(sampleArticle("1")))

	updated := sampleArticle("1")
	updated.TrustScore = 85
	updated.Status = models.StatusPublished
	updated.YesVotes = 3
	require.NoError(t, st.UpsertArticle(updated))

	got, err := st.GetArticle("1")
	require.NoError(t, err)
	assert.Equal(t, 85, got.TrustScore)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, 3, got.YesVotes)
}

func TestUpsertArticle_VersionSnapshotsImmutable(t *testing.T) {
	st := newTestStore(t)

	a := sampleArticle("1")
	a.Versions = []models.ArticleVersion{
		{VersionIndex: 0, ContentCID: "QmFirst", Title: "Original title", Content: "Original body"},
	}
	require.NoError(t, st.UpsertArticle(a))

	// Re-sync carrying a mutated snapshot for the same index changes nothing.
	b := sampleArticle("1")
	b.Versions = []models.ArticleVersion{
		{VersionIndex: 0, ContentCID: "QmTampered", Title: "Tampered", Content: "Tampered"},
	}
	require.NoError(t, st.UpsertArticle(b))

	got, err := st.GetArticle("1")
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "QmFirst", got.Versions[0].ContentCID)
}

func TestAppendVersion_DuplicateIgnored(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertArticle(sampleArticle("1")))

	v := &models.ArticleVersion{ArticleRef: "1", VersionIndex: 1, ContentCID: "QmV1"}
	require.NoError(t, st.AppendVersion(v))
	dup := &models.ArticleVersion{ArticleRef: "1", VersionIndex: 1, ContentCID: "QmOther"}
	require.NoError(t, st.AppendVersion(dup))

	got, err := st.GetArticle("1")
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "QmV1", got.Versions[0].ContentCID)
}

func TestGetArticle_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetArticle("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListArticles_FilterAndPaginate(t *testing.T) {
	st := newTestStore(t)
	base := time.Now().UTC()

	for i, status := range []models.ArticleStatus{
		models.StatusPublished, models.StatusPublished, models.StatusUnderReview,
	} {
		a := sampleArticle(string(rune('1' + i)))
		a.Status = status
		a.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.UpsertArticle(a))
	}

	published := models.StatusPublished
	articles, total, err := st.ListArticles(ArticleFilter{Status: &published}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, articles, 2)
	// Newest first.
	assert.True(t, articles[0].Timestamp.After(articles[1].Timestamp))

	articles, total, err = st.ListArticles(ArticleFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, articles, 1)
}

func TestListArticles_Search(t *testing.T) {
	st := newTestStore(t)

	a := sampleArticle("1")
	a.Title = "Fusion breakthrough announced"
	require.NoError(t, st.UpsertArticle(a))
	b := sampleArticle("2")
	b.Title = "Election results certified"
	require.NoError(t, st.UpsertArticle(b))

	articles, total, err := st.ListArticles(ArticleFilter{Search: "fusion"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, articles, 1)
	assert.Equal(t, "1", articles[0].ArticleID)
}

func TestUpsertProposal_Idempotent(t *testing.T) {
	st := newTestStore(t)

	p := &models.UpdateProposal{
		ArticleRef: "1", ProposalID: "1",
		NewContentCID: "QmNew", Status: models.ProposalPending,
	}
	require.NoError(t, st.UpsertProposal(p))

	p2 := &models.UpdateProposal{
		ArticleRef: "1", ProposalID: "1",
		NewContentCID: "QmNew", Status: models.ProposalApproved, YesVotes: 3,
	}
	require.NoError(t, st.UpsertProposal(p2))

	got, err := st.GetProposal("1", "1")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalApproved, got.Status)
	assert.Equal(t, 3, got.YesVotes)
}

func TestUpsertAnalysis_ReplacesPredictions(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.UpsertAnalysis(&models.AnalysisRecord{
		ArticleID: "1", TrustScore: 40, Consensus: models.ConsensusLowTrust,
		Models: []models.ModelPrediction{
			{Name: "bert", Prediction: "FAKE", Confidence: 0.7},
			{Name: "roberta", Prediction: "FAKE", Confidence: 0.6},
		},
		AnalyzedAt: time.Now().UTC(),
	}))

	require.NoError(t, st.UpsertAnalysis(&models.AnalysisRecord{
		ArticleID: "1", TrustScore: 90, Consensus: models.ConsensusHighTrust,
		Models: []models.ModelPrediction{
			{Name: "bert", Prediction: "REAL", Confidence: 0.95},
		},
		AnalyzedAt: time.Now().UTC(),
	}))

	got, err := st.GetAnalysis("1")
	require.NoError(t, err)
	assert.Equal(t, 90, got.TrustScore)
	require.Len(t, got.Models, 1)
	assert.Equal(t, "REAL", got.Models[0].Prediction)
}

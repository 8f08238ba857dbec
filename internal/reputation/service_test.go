package reputation

import (
	"context"
	"errors"
	"testing"
	"verity/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *testutil.MockGateway) {
	t.Helper()
	gateway := testutil.NewMockGateway()
	svc := NewService(testutil.NewTestStore(t), gateway, &testutil.MockLogger{}).(*Service)
	return svc, gateway
}

func TestRecordVoteCast_DuplicateDeliveryCountsOnce(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xAAA", "1", ""))
	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))
	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))

	v, err := svc.store.GetValidator("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalVotes)
	require.NotNil(t, v.LastVoteDate)
}

func TestRecordVoteOutcome_AfterCast_NoDoubleIncrement(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "1", "", true, "1000000000000000000", "0"))

	v, err := svc.store.GetValidator("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalVotes)
	assert.Equal(t, 1, v.CorrectVotes)
	assert.Equal(t, 0, v.WrongVotes)
	assert.Equal(t, 1, v.ArticlesValidated)
	assert.Equal(t, 1, v.ConsecutiveCorrectVotes)
	assert.Equal(t, "1000000000000000000", v.TotalRewardsEarned)
}

func TestRecordVoteOutcome_DuplicateDeliveryIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "1", "", true, "100", "0"))
	// The same Rewarded notification delivered again.
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "1", "", true, "100", "0"))

	v, err := svc.store.GetValidator("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalVotes)
	assert.Equal(t, 1, v.CorrectVotes)
	assert.Equal(t, 1, v.ArticlesValidated)
	assert.Equal(t, "100", v.TotalRewardsEarned)
}

func TestRecordVoteOutcome_WithoutCast_CountsVoteAndOutcomeOnce(t *testing.T) {
	svc, _ := newTestService(t)

	// Outcome for a vote placed outside this engine; a replay still counts once.
	require.NoError(t, svc.RecordVoteOutcome("0xbbb", "7", "", false, "0", "500000000000000000"))
	require.NoError(t, svc.RecordVoteOutcome("0xbbb", "7", "", false, "0", "500000000000000000"))

	v, err := svc.store.GetValidator("0xbbb")
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalVotes)
	assert.Equal(t, 1, v.WrongVotes)
	assert.Equal(t, v.TotalVotes, v.CorrectVotes+v.WrongVotes)
	assert.Equal(t, "500000000000000000", v.TotalPenaltiesPaid)
}

func TestRecordVoteOutcome_NoArticleSettlesOldestPending(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xbbb", "1", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xbbb", "", "", false, "0", "500000000000000000"))

	v, err := svc.store.GetValidator("0xbbb")
	require.NoError(t, err)
	assert.Equal(t, 1, v.TotalVotes)
	assert.Equal(t, 1, v.WrongVotes)
	assert.Equal(t, "500000000000000000", v.TotalPenaltiesPaid)
}

func TestRecordVoteOutcome_WrongVoteResetsStreak(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "1", "", true, "0", "0"))
	require.NoError(t, svc.RecordVoteCast("0xaaa", "2", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "2", "", true, "0", "0"))
	require.NoError(t, svc.RecordVoteCast("0xaaa", "3", ""))
	require.NoError(t, svc.RecordVoteOutcome("0xaaa", "3", "", false, "0", "0"))

	v, err := svc.store.GetValidator("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 3, v.TotalVotes)
	assert.Equal(t, 2, v.CorrectVotes)
	assert.Equal(t, 1, v.WrongVotes)
	assert.Equal(t, 0, v.ConsecutiveCorrectVotes)
	assert.Equal(t, v.TotalVotes, v.CorrectVotes+v.WrongVotes)
}

func TestUpdateStake_OverwritesNotAccumulates(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.UpdateStake("0xaaa", "100000000000000000000"))
	require.NoError(t, svc.UpdateStake("0xaaa", "75000000000000000000"))

	v, err := svc.store.GetValidator("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "75000000000000000000", v.TotalStake)
}

func TestProfile_RefreshesStakeFromLedger(t *testing.T) {
	svc, gateway := newTestService(t)
	gateway.Balances["0xaaa"] = "250000000000000000000"

	v, err := svc.Profile(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000000", v.TotalStake)
}

func TestProfile_ServesCachedOnLedgerFailure(t *testing.T) {
	svc, gateway := newTestService(t)
	require.NoError(t, svc.UpdateStake("0xaaa", "42000000000000000000"))

	gateway.Err = errors.New("node down")
	v, err := svc.Profile(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "42000000000000000000", v.TotalStake)
}

func TestRecalculateAll(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.RecordVoteCast("0xaaa", "1", ""))
	require.NoError(t, svc.RecordVoteCast("0xbbb", "1", ""))

	count, err := svc.RecalculateAll()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Idempotent: a second run changes nothing and still succeeds.
	count, err = svc.RecalculateAll()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListValidators_Pages(t *testing.T) {
	svc, _ := newTestService(t)
	for _, addr := range []string{"0xa", "0xb", "0xc"} {
		require.NoError(t, svc.RecordVoteCast(addr, "1", ""))
	}

	page, err := svc.ListValidators(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Validators, 2)
}

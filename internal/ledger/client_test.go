package ledger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"verity/internal/ledger"
	"verity/internal/structures"
	"verity/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string `json:"method"`
	Params struct {
		To     string        `json:"to"`
		Method string        `json:"method"`
		Args   []interface{} `json:"args"`
	} `json:"params"`
}

// rpcServer answers every request with the given envelope body and records
// what was asked.
func rpcServer(t *testing.T, respond func(call recordedCall) string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call recordedCall
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(call)))
	}))
	return server, &calls
}

func ledgerConfig(url string) *structures.Config {
	return &structures.Config{
		Ledger: structures.LedgerConfig{
			RPCURL:          url,
			RegistryAddress: "0xregistry",
			StakingAddress:  "0xstaking",
			CallTimeout:     2 * time.Second,
		},
	}
}

func TestGetArticle_MapsWireTuple(t *testing.T) {
	server, calls := rpcServer(t, func(recordedCall) string {
		return `{"result": {
			"id": "7", "author": "0xAuthor", "ipfsCid": "QmX", "contentHash": "0xh",
			"trustScore": 85, "timestamp": 1700000000, "status": 5,
			"yesVotes": 3, "noVotes": 1, "versionCount": 2
		}}`
	})
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	article, err := client.GetArticle(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "7", article.ID)
	assert.Equal(t, 85, article.TrustScore)
	assert.Equal(t, 5, article.Status)
	assert.Equal(t, 2, article.VersionCount)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), article.Timestamp)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "ledger_call", call.Method)
	assert.Equal(t, "0xregistry", call.Params.To)
	assert.Equal(t, "getArticle", call.Params.Method)
	assert.Equal(t, []interface{}{"7"}, call.Params.Args)
}

func TestRevertReason_Classified(t *testing.T) {
	server, _ := rpcServer(t, func(recordedCall) string {
		return `{"error": {"code": 3, "message": "execution reverted", "data": "Already voted on this article"}}`
	})
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	_, err := client.Vote(context.Background(), "1", true)
	require.Error(t, err)
	assert.True(t, ledger.IsAlreadyVoted(err))
	assert.False(t, ledger.IsMustStake(err))
}

func TestRevertReason_FallsBackToMessage(t *testing.T) {
	server, _ := rpcServer(t, func(recordedCall) string {
		return `{"error": {"code": 3, "message": "Article does not exist"}}`
	})
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	_, err := client.GetArticle(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestVote_ReturnsReceipt(t *testing.T) {
	server, calls := rpcServer(t, func(recordedCall) string {
		return `{"result": {"txHash": "0xdeadbeef", "articleId": "9"}}`
	})
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	receipt, err := client.Vote(context.Background(), "9", false)
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", receipt.TxHash)
	assert.Equal(t, "9", receipt.ArticleID)
	assert.Equal(t, "ledger_send", (*calls)[0].Method)
	assert.Equal(t, []interface{}{"9", false}, (*calls)[0].Params.Args)
}

func TestStakedBalance_TargetsStakingContract(t *testing.T) {
	server, calls := rpcServer(t, func(recordedCall) string {
		return `{"result": "1500000000000000000000"}`
	})
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	balance, err := client.StakedBalance(context.Background(), "0xval")
	require.NoError(t, err)

	assert.Equal(t, "1500000000000000000000", balance)
	assert.Equal(t, "0xstaking", (*calls)[0].Params.To)
}

func TestMalformedEnvelope_IsCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := ledger.NewClient(ledgerConfig(server.URL), &testutil.MockLogger{})
	_, err := client.TotalArticles(context.Background())
	var ce *ledger.CallError
	assert.ErrorAs(t, err, &ce)
}

package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"verity/internal/providers"
	"verity/internal/structures"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

const (
	contractRegistry = "registry"
	contractStaking  = "staking"
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type callParams struct {
	To     string        `json:"to"`
	Method string        `json:"method"`
	Args   []interface{} `json:"args"`
}

// Client is the JSON-RPC implementation of Gateway. Reads use ledger_call,
// writes use ledger_send and block until the transaction is confirmed.
type Client struct {
	url      string
	registry string
	staking  string
	http     *http.Client
	logger   providers.Logger
	seq      atomic.Uint64
}

var _ Gateway = (*Client)(nil)

func NewClient(conf *structures.Config, logger providers.Logger) *Client {
	return &Client{
		url:      conf.Ledger.RPCURL,
		registry: conf.Ledger.RegistryAddress,
		staking:  conf.Ledger.StakingAddress,
		http:     providers.NewRobustHTTPClient(logger, providers.TypeLedger, conf.Ledger.CallTimeout),
		logger:   logger,
	}
}

func (c *Client) invoke(ctx context.Context, rpcMethod, contract, method string, args []interface{}, out interface{}) error {
	to := c.registry
	if contract == contractStaking {
		to = c.staking
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.seq.Inc(),
		Method:  rpcMethod,
		Params:  callParams{To: to, Method: method, Args: args},
	})
	if err != nil {
		return &CallError{Method: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &CallError{Method: method, Err: fmt.Errorf("node returned HTTP %d", resp.StatusCode)}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &CallError{Method: method, Err: fmt.Errorf("malformed node response: %w", err)}
	}
	if envelope.Error != nil {
		reason := envelope.Error.Data
		if reason == "" {
			reason = envelope.Error.Message
		}
		return &CallError{Method: method, Reason: reason, Err: fmt.Errorf("rpc error %d", envelope.Error.Code)}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &CallError{Method: method, Err: fmt.Errorf("malformed result: %w", err)}
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, contract, method string, args []interface{}, out interface{}) error {
	return c.invoke(ctx, "ledger_call", contract, method, args, out)
}

func (c *Client) send(ctx context.Context, contract, method string, args []interface{}) (*SubmitReceipt, error) {
	var receipt struct {
		TxHash     string `json:"txHash"`
		ArticleID  string `json:"articleId"`
		ProposalID string `json:"proposalId"`
	}
	if err := c.invoke(ctx, "ledger_send", contract, method, args, &receipt); err != nil {
		return nil, err
	}
	return &SubmitReceipt{TxHash: receipt.TxHash, ArticleID: receipt.ArticleID, ProposalID: receipt.ProposalID}, nil
}

// articleWire matches the registry's getArticle tuple.
type articleWire struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	ContentCID   string `json:"ipfsCid"`
	ContentHash  string `json:"contentHash"`
	TrustScore   int    `json:"trustScore"`
	Timestamp    int64  `json:"timestamp"`
	Status       int    `json:"status"`
	YesVotes     int    `json:"yesVotes"`
	NoVotes      int    `json:"noVotes"`
	VersionCount int    `json:"versionCount"`
}

func (c *Client) GetArticle(ctx context.Context, id string) (*ArticleState, error) {
	var w articleWire
	if err := c.call(ctx, contractRegistry, "getArticle", []interface{}{id}, &w); err != nil {
		return nil, err
	}
	return &ArticleState{
		ID:           w.ID,
		Author:       w.Author,
		ContentCID:   w.ContentCID,
		ContentHash:  w.ContentHash,
		TrustScore:   w.TrustScore,
		Timestamp:    time.Unix(w.Timestamp, 0).UTC(),
		Status:       w.Status,
		YesVotes:     w.YesVotes,
		NoVotes:      w.NoVotes,
		VersionCount: w.VersionCount,
	}, nil
}

func (c *Client) GetArticleVersion(ctx context.Context, id string, index int) (*VersionState, error) {
	var w struct {
		ContentCID  string `json:"ipfsCid"`
		ContentHash string `json:"contentHash"`
		Timestamp   int64  `json:"timestamp"`
	}
	if err := c.call(ctx, contractRegistry, "getArticleVersion", []interface{}{id, index}, &w); err != nil {
		return nil, err
	}
	return &VersionState{
		ContentCID:  w.ContentCID,
		ContentHash: w.ContentHash,
		Timestamp:   time.Unix(w.Timestamp, 0).UTC(),
	}, nil
}

func (c *Client) GetUpdateProposal(ctx context.Context, id, proposalID string) (*ProposalState, error) {
	var w struct {
		ProposalID     string `json:"proposalId"`
		NewContentCID  string `json:"newIpfsCid"`
		NewContentHash string `json:"newContentHash"`
		Proposer       string `json:"proposer"`
		TrustScore     int    `json:"trustScore"`
		YesVotes       int    `json:"yesVotes"`
		NoVotes        int    `json:"noVotes"`
		Status         int    `json:"status"`
		CreatedAt      int64  `json:"createdAt"`
	}
	if err := c.call(ctx, contractRegistry, "getUpdateProposal", []interface{}{id, proposalID}, &w); err != nil {
		return nil, err
	}
	return &ProposalState{
		ProposalID:     w.ProposalID,
		NewContentCID:  w.NewContentCID,
		NewContentHash: w.NewContentHash,
		Proposer:       w.Proposer,
		TrustScore:     w.TrustScore,
		YesVotes:       w.YesVotes,
		NoVotes:        w.NoVotes,
		Status:         w.Status,
		CreatedAt:      time.Unix(w.CreatedAt, 0).UTC(),
	}, nil
}

func (c *Client) GetCurrentProposalID(ctx context.Context, id string) (string, error) {
	var proposalID string
	if err := c.call(ctx, contractRegistry, "getCurrentProposalId", []interface{}{id}, &proposalID); err != nil {
		return "", err
	}
	return proposalID, nil
}

func (c *Client) TotalArticles(ctx context.Context) (int64, error) {
	var total int64
	if err := c.call(ctx, contractRegistry, "totalArticles", nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Client) SubmitArticle(ctx context.Context, contentCID, contentHash string) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "submitArticle", []interface{}{contentCID, contentHash})
}

func (c *Client) ProposeArticleUpdate(ctx context.Context, id, contentCID, contentHash string) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "proposeArticleUpdate", []interface{}{id, contentCID, contentHash})
}

func (c *Client) SetAIScore(ctx context.Context, id string, score int) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "setAIScore", []interface{}{id, score})
}

func (c *Client) SetUpdateProposalAIScore(ctx context.Context, id, proposalID string, score int) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "setUpdateProposalAIScore", []interface{}{id, proposalID, score})
}

func (c *Client) Vote(ctx context.Context, id string, decision bool) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "vote", []interface{}{id, decision})
}

func (c *Client) VoteOnUpdateProposal(ctx context.Context, id, proposalID string, decision bool) (*SubmitReceipt, error) {
	return c.send(ctx, contractRegistry, "voteOnUpdateProposal", []interface{}{id, proposalID, decision})
}

func (c *Client) StakedBalance(ctx context.Context, address string) (string, error) {
	var balance string
	if err := c.call(ctx, contractStaking, "stakedBalance", []interface{}{address}, &balance); err != nil {
		return "", err
	}
	return balance, nil
}

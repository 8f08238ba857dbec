package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"verity/internal/providers"
	"verity/internal/structures"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/sha3"
)

// Placeholder returned when the gateway is unreachable or serves garbage.
// Readers see degraded content, never an error.
const (
	PlaceholderTitle   = "[Content Unavailable]"
	PlaceholderContent = "Unable to fetch content"
)

// Document is the title+body blob stored at a content address.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// FetchError marks an unreachable gateway or a non-JSON response.
type FetchError struct {
	CID string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("content fetch %s: %v", e.CID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClientInterface is the content-addressed storage surface.
type ClientInterface interface {
	Fetch(ctx context.Context, cid string) (*Document, error)
	Upload(ctx context.Context, doc *Document) (string, error)
}

// Client fetches and uploads documents by content address. Fetched blobs are
// kept in a zstd-compressed in-process cache; addresses are immutable, so
// entries never need invalidation.
type Client struct {
	gatewayURL string
	pinURL     string
	pinKey     string
	pinSecret  string
	http       *http.Client
	logger     providers.Logger
	cache      *freecache.Cache
	cacheTTL   int
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
}

func NewClient(conf *structures.Config, logger providers.Logger) (*Client, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	var cache *freecache.Cache
	if conf.Content.BlobCacheMB > 0 {
		cache = freecache.NewCache(conf.Content.BlobCacheMB * 1024 * 1024)
	}
	ttl := int(conf.Content.BlobCacheTTL.Seconds())

	return &Client{
		gatewayURL: conf.Content.GatewayURL,
		pinURL:     conf.Content.PinURL,
		pinKey:     conf.Content.PinKey,
		pinSecret:  conf.Content.PinSecret,
		http:       providers.NewRobustHTTPClient(logger, providers.TypeSync, conf.Content.Timeout),
		logger:     logger,
		cache:      cache,
		cacheTTL:   ttl,
		encoder:    encoder,
		decoder:    decoder,
	}, nil
}

// Fetch returns the document at cid, or the placeholder document when the
// gateway fails. The error return reports the underlying failure for logging
// but callers can always use the document.
func (c *Client) Fetch(ctx context.Context, cid string) (*Document, error) {
	if doc, ok := c.cacheGet(cid); ok {
		return doc, nil
	}

	doc, err := c.fetchRemote(ctx, cid)
	if err != nil {
		c.logger.Warnf(providers.TypeSync, "Content fetch failed for %s: %s", cid, err)
		return &Document{Title: PlaceholderTitle, Content: PlaceholderContent}, err
	}

	c.cachePut(cid, doc)
	return doc, nil
}

func (c *Client) fetchRemote(ctx context.Context, cid string) (*Document, error) {
	url := fmt.Sprintf("%s/ipfs/%s", c.gatewayURL, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{CID: cid, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{CID: cid, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{CID: cid, Err: fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{CID: cid, Err: err}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		// HTML error pages from gateways land here.
		return nil, &FetchError{CID: cid, Err: fmt.Errorf("gateway did not return JSON: %w", err)}
	}
	return &doc, nil
}

// Upload pins a document and returns its content address.
func (c *Client) Upload(ctx context.Context, doc *Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.pinKey != "" {
		req.Header.Set("pinata_api_key", c.pinKey)
		req.Header.Set("pinata_secret_api_key", c.pinSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content upload failed: HTTP %d", resp.StatusCode)
	}

	var result struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("malformed upload response: %w", err)
	}
	return result.IpfsHash, nil
}

// HashContent returns the 0x-prefixed keccak256 digest of the body, matching
// the hash the registry stores on submission.
func HashContent(content string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(content))
	return fmt.Sprintf("0x%x", h.Sum(nil))
}

func (c *Client) cacheGet(cid string) (*Document, bool) {
	if c.cache == nil {
		return nil, false
	}
	compressed, err := c.cache.Get([]byte(cid))
	if err != nil {
		return nil, false
	}
	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

func (c *Client) cachePut(cid string, doc *Document) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	compressed := c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	_ = c.cache.Set([]byte(cid), compressed, c.cacheTTL)
}

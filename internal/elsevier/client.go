// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package elsevier is the HTTP client for the Elsevier search API. Client
// satisfies search.Executor: it authenticates, retries throttled requests
// and decodes the JSON envelope into a search.Page.
package elsevier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/els-search/internal/httputil"
	"github.com/pdiddy/els-search/internal/search"
	"github.com/pdiddy/els-search/pkg/types"
)

// Request headers understood by the API.
const (
	headerAPIKey    = "X-ELS-APIKey"
	headerInstToken = "X-ELS-Insttoken"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 64 << 20

// Client executes search requests against the API.
type Client struct {
	http       *http.Client
	apiKey     string
	instToken  string
	userAgent  string
	maxRetries int
	cache      *lru.Cache[string, *search.Page]
	log        *zap.Logger
}

// NewClient builds a client from cfg. A nil httpClient gets one with
// cfg.Timeout; a nil log discards output.
func NewClient(cfg types.APIConfig, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured (set api.api_key, ELS_SEARCH_API_API_KEY, or .secrets/elsevier-api-key)", search.ErrInvalidArgument)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		http:       httpClient,
		apiKey:     cfg.APIKey,
		instToken:  cfg.InstToken,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		log:        log.Named("elsevier"),
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *search.Page](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating page cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Exec fetches and decodes one page. Cursor requests bypass the page
// cache since their "next" links expire. Failures to reach the API or non-2xx
// answers are returned as *search.TransportError.
func (c *Client) Exec(ctx context.Context, uri string) (*search.Page, error) {
	cacheable := c.cache != nil && !strings.Contains(uri, "cursor=")
	if cacheable {
		if page, ok := c.cache.Get(uri); ok {
			c.log.Debug("page cache hit", zap.String("uri", uri))
			return page, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &search.TransportError{URI: uri, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	if c.instToken != "" {
		req.Header.Set(headerInstToken, c.instToken)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.log)
	if err != nil {
		return nil, &search.TransportError{URI: uri, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &search.TransportError{URI: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	c.log.Debug("page received",
		zap.String("uri", uri),
		zap.Int("status", resp.StatusCode),
		zap.String("quota_remaining", resp.Header.Get("X-RateLimit-Remaining")),
		zap.String("quota_reset", resp.Header.Get("X-RateLimit-Reset")))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &search.TransportError{
			URI:        uri,
			StatusCode: resp.StatusCode,
			Message:    serviceError(body),
		}
	}

	page, err := DecodePage(body)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Add(uri, page)
	}
	return page, nil
}

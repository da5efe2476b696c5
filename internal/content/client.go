// Package content is the client for the remote social-feed JSON API.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/worker"
)

// ErrNotFound is matched by a StatusError with code 404
var ErrNotFound = errors.New("not found")

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("content api: HTTP %d", e.Code)
	}
	return fmt.Sprintf("content api: HTTP %d: %s", e.Code, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

const maxResponseBytes = 4 << 20

// Client talks to the content API. It applies a per-host rate limit and keeps
// a cookie jar so session cookies set by the API are replayed.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	feedLimit  int
	limiter    *worker.Limiter
	logger     zerolog.Logger
	duration   *prometheus.HistogramVec
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the transport (the cookie jar is kept if the client has none)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.httpClient.Jar
		}
		c.httpClient = hc
	}
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegisterer registers the request duration histogram with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			reg.MustRegister(c.duration)
		}
	}
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg model.APIConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	limit := cfg.FeedLimit
	if limit <= 0 {
		limit = 20
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		feedLimit: limit,
		limiter:   worker.NewLimiter(rps, cfg.BurstSize),
		logger:    zerolog.Nop(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedlens",
			Subsystem: "content",
			Name:      "request_duration_seconds",
			Help:      "Content API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchFeed returns the page after cursor; an empty cursor starts from the top
func (c *Client) FetchFeed(ctx context.Context, cursor string) (model.FeedPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.feedLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page model.FeedPage
	if err := c.do(ctx, "feed", http.MethodGet, "/feed", q, nil, &page); err != nil {
		return model.FeedPage{}, err
	}
	return page, nil
}

// FetchPostDetail returns the post, its comments and whether viewerID liked it
func (c *Client) FetchPostDetail(ctx context.Context, postID, viewerID string) (model.PostDetail, error) {
	q := url.Values{}
	q.Set("user_id", viewerID)

	var detail model.PostDetail
	if err := c.do(ctx, "post_detail", http.MethodGet, "/posts/"+url.PathEscape(postID), q, nil, &detail); err != nil {
		return model.PostDetail{}, err
	}
	return detail, nil
}

type interactionRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text,omitempty"`
}

// LikePost likes postID on behalf of viewerID
func (c *Client) LikePost(ctx context.Context, postID, viewerID string) (model.InteractionResult, error) {
	return c.interact(ctx, "like", postID, interactionRequest{UserID: viewerID})
}

// SharePost shares postID on behalf of viewerID
func (c *Client) SharePost(ctx context.Context, postID, viewerID string) (model.InteractionResult, error) {
	return c.interact(ctx, "share", postID, interactionRequest{UserID: viewerID})
}

// CommentPost adds a comment to postID
func (c *Client) CommentPost(ctx context.Context, postID, viewerID, text string) (model.InteractionResult, error) {
	return c.interact(ctx, "comment", postID, interactionRequest{UserID: viewerID, Text: text})
}

func (c *Client) interact(ctx context.Context, action, postID string, body interactionRequest) (model.InteractionResult, error) {
	var res model.InteractionResult
	path := "/posts/" + url.PathEscape(postID) + "/" + action
	if err := c.do(ctx, action, http.MethodPost, path, nil, body, &res); err != nil {
		return model.InteractionResult{}, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", op, err)
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.duration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.duration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("content api error")
		return fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, Body: errorDetail(body)})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorDetail extracts {"detail": "..."} error bodies, falling back to the raw text
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

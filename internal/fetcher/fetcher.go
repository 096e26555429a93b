// Package fetcher implements the retrying HTTP layer every crawl step
// goes through.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/metrics"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config controls retry and timeout behavior.
type Config struct {
	MaxAttempts int           // total attempts, default 3
	BaseDelay   time.Duration // backoff base, default 2s; delay = base * 2^attempt
	Timeout     time.Duration // per-request timeout, default 30s
	UserAgent   string
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Request describes one logical fetch. When Out is non-nil the response
// body is decoded as JSON into it; otherwise the raw bytes are returned.
type Request struct {
	Method string // default GET
	URL    string
	Query  url.Values  // merged into the URL query string
	Body   any         // JSON-encoded request body
	Header http.Header // extra headers
	Out    any
}

// Error is the terminal failure for one logical fetch after all retries
// are spent (or a non-retryable status short-circuits them). A request
// that could not be constructed reports zero Attempts.
type Error struct {
	URL        string
	StatusCode int // last observed status, 0 when the request never completed
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %d attempt(s), last status %d: %v", e.URL, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues HTTP requests with bounded retries and exponential
// backoff. Connection failures, timeouts, 5xx, and 429 are retried; other
// 4xx responses fail immediately. A JSON-decode failure counts as
// transient until the last attempt.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// JSON fetches url and decodes the response body into out.
func (c *Client) JSON(ctx context.Context, rawURL string, out any) error {
	_, err := c.Do(ctx, Request{URL: rawURL, Out: out})
	return err
}

// Raw fetches url and returns the undecoded response body.
func (c *Client) Raw(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Do(ctx, Request{URL: rawURL})
}

// Do performs the request with the configured retry policy. Setup
// failures that cannot change between attempts (unparsable URL,
// unencodable body) fail immediately without consuming any. The returned
// bytes are the last response body; when req.Out is set the body has also
// been decoded into it.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	method, target, encoded, err := prepare(req)
	if err != nil {
		return nil, &Error{URL: req.URL, Err: err}
	}

	var (
		body       []byte
		lastStatus int
		attempts   int
	)

	op := func() error {
		attempts++
		b, status, err := c.attempt(ctx, req, method, target, encoded)
		if status != 0 {
			lastStatus = status
		}
		if err != nil {
			metrics.RecordFetchAttempt("error")
			if !retryable(status) {
				return backoff.Permanent(err)
			}
			c.logger.Warn("fetch attempt failed",
				zap.String("url", req.URL),
				zap.Int("attempt", attempts),
				zap.Int("status", status),
				zap.Error(err))
			return err
		}
		metrics.RecordFetchAttempt("ok")
		body = b
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, &Error{URL: req.URL, StatusCode: lastStatus, Attempts: attempts, Err: err}
	}
	return body, nil
}

// retryable classifies by status: transport failures (status 0), 5xx and
// 429 retry; remaining 4xx do not. Decode failures arrive with a 2xx
// status and retry as well.
func retryable(status int) bool {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return false
	}
	return true
}

func (c *Client) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 10 * time.Minute
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithMaxRetries(bo, uint64(c.cfg.MaxAttempts-1))
}

// prepare resolves everything about a request that is fixed across
// attempts: the method, the merged target URL, and the encoded body. It
// also builds a throwaway request so a URL or method the transport would
// reject surfaces here, once.
func prepare(req Request) (method, target string, body []byte, err error) {
	method = req.Method
	if method == "" {
		method = http.MethodGet
	}

	target = req.URL
	if len(req.Query) > 0 {
		u, err := url.Parse(req.URL)
		if err != nil {
			return "", "", nil, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return "", "", nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	if _, err = http.NewRequest(method, target, nil); err != nil {
		return "", "", nil, fmt.Errorf("build request: %w", err)
	}
	return method, target, body, nil
}

func (c *Client) attempt(ctx context.Context, req Request, method, target string, body []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if req.Out != nil {
		if err := json.Unmarshal(b, req.Out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode json: %w", err)
		}
	}
	return b, resp.StatusCode, nil
}

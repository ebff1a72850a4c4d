// Package mediawiki is a small client for the MediaWiki action API.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultUserAgent identifies the tools to the wiki's operators.
const DefaultUserAgent = "wikitools/dev (+https://github.com/devwiki/wikitools)"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// Client talks to a single wiki's api.php endpoint.
type Client struct {
	endpoint  string
	http      *http.Client
	userAgent string
	limiter   *rateLimiter
	logger    *zap.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the given client has none, since logins are cookie based.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit throttles the client to at most rpm requests per minute.
// Zero or negative disables throttling.
func WithRateLimit(rpm int) Option {
	return func(c *Client) {
		if rpm > 0 {
			c.limiter = newRateLimiter(rpm)
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the given api.php URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", endpoint)
	}

	c := &Client{
		endpoint:  u.String(),
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
		tokens:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Endpoint returns the api.php URL the client talks to.
func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, params, out)
}

func (c *Client) post(ctx context.Context, params url.Values, out any) error {
	return c.do(ctx, http.MethodPost, params, out)
}

func (c *Client) do(ctx context.Context, method string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.wait(ctx); err != nil {
			return err
		}
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("mediawiki request",
		zap.String("method", method),
		zap.String("action", params.Get("action")),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Error != nil {
		if envelope.Error.Code == "badtoken" {
			c.forgetTokens()
		}
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", params.Get("action"), err)
	}
	return nil
}

// Token returns a token of the given type ("csrf", "login", ...), fetching
// it once and caching it for the life of the client.
func (c *Client) Token(ctx context.Context, kind string) (string, error) {
	c.mu.Lock()
	tok, ok := c.tokens[kind]
	c.mu.Unlock()
	if ok {
		return tok, nil
	}

	var resp struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	params := url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {kind},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("fetching %s token: %w", kind, err)
	}
	tok, ok = resp.Query.Tokens[kind+"token"]
	if !ok || tok == "" {
		return "", fmt.Errorf("no %s token in response", kind)
	}

	// Login tokens are single use.
	if kind != "login" {
		c.mu.Lock()
		c.tokens[kind] = tok
		c.mu.Unlock()
	}
	return tok, nil
}

func (c *Client) forgetTokens() {
	c.mu.Lock()
	c.tokens = make(map[string]string)
	c.mu.Unlock()
}

// Login signs in with a bot password (Special:BotPasswords).
func (c *Client) Login(ctx context.Context, username, password string) error {
	tok, err := c.Token(ctx, "login")
	if err != nil {
		return err
	}

	var resp struct {
		Login struct {
			Result   string `json:"result"`
			Reason   string `json:"reason"`
			UserName string `json:"lgusername"`
		} `json:"login"`
	}
	params := url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {tok},
	}
	if err := c.post(ctx, params, &resp); err != nil {
		return fmt.Errorf("logging in as %s: %w", username, err)
	}
	if resp.Login.Result != "Success" {
		return fmt.Errorf("%w: %s %s", ErrLoginFailed, resp.Login.Result, resp.Login.Reason)
	}

	c.forgetTokens()
	c.logger.Info("logged in", zap.String("user", resp.Login.UserName))
	return nil
}

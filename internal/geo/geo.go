// Package geo looks up where an anonymous editor's IP address is registered.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBaseURL is the ip-api.com JSON endpoint. The free tier is plain HTTP
// and allows roughly 45 requests per minute.
const DefaultBaseURL = "http://ip-api.com/json/"

var (
	ErrInvalidIP   = errors.New("not a valid IP address")
	ErrUnavailable = errors.New("ip lookup service unavailable")
)

// LookupError is a "status":"fail" answer from the service.
type LookupError struct {
	IP      string
	Message string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup of %s failed: %s", e.IP, e.Message)
}

// Location is what the service knows about an address.
type Location struct {
	Query       string  `json:"query"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org,omitempty"`
	City        string  `json:"city"`
	Region      string  `json:"regionName"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
}

type response struct {
	Location
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client queries ip-api.com through a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another ip-api compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithHTTPClient replaces the default 10 second timeout client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ip-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A bad address or a "fail" answer means the service is healthy.
		IsSuccessful: func(err error) bool {
			var lerr *LookupError
			return err == nil || errors.As(err, &lerr) || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Lookup returns the location of ip. The address is validated locally before
// any request is made.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, fmt.Errorf("%q: %w", ip, ErrInvalidIP)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, addr.String())
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return out.(*Location), nil
}

func (c *Client) fetch(ctx context.Context, ip string) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ip, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", ip, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("looking up %s: HTTP %d", ip, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if r.Status == "fail" {
		return nil, &LookupError{IP: ip, Message: r.Message}
	}
	if r.Query == "" {
		r.Query = ip
	}
	loc := r.Location
	return &loc, nil
}

// State reports the breaker state, for health output.
func (c *Client) State() string { return c.breaker.State().String() }

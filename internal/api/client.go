// Package api implements the HTTP client for the novachat backend.
package api

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/marcos/novachat/internal/config"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// Client is the credentialed HTTP client for the novachat backend. All
// requests carry the session cookie; any 401 response fires the
// session-expired callback exactly once for the client's lifetime.
type Client struct {
	httpClient tls_client.HttpClient
	baseURL    string
	session    *config.Session

	keepAlive      bool
	keepAliveEvery time.Duration
	pinger         *KeepAlive

	onSessionExpired func()
	expiredOnce      sync.Once

	mu     sync.RWMutex
	closed bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL overrides the backend base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client (used in tests)
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithKeepAlive enables the periodic session probe
func WithKeepAlive(enabled bool, interval time.Duration) ClientOption {
	return func(c *Client) {
		c.keepAlive = enabled
		if interval > 0 {
			c.keepAliveEvery = interval
		}
	}
}

// WithSessionExpired registers the logged-out broadcast. The callback is
// invoked at most once, from whichever request first observes a 401.
func WithSessionExpired(fn func()) ClientOption {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

// NewClient creates a new Client
func NewClient(session *config.Session, opts ...ClientOption) (*Client, error) {
	if err := config.ValidateSession(session); err != nil {
		return nil, err
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(300),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client := &Client{
		httpClient:     httpClient,
		baseURL:        models.DefaultBaseURL,
		session:        session,
		keepAlive:      true,
		keepAliveEvery: 9 * time.Minute,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Init verifies the session against the identity endpoint and starts the
// keep-alive probe when enabled.
func (c *Client) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}

	if _, err := c.Identity(); err != nil {
		return err
	}

	if c.keepAlive {
		c.pinger = NewKeepAlive(c, c.keepAliveEvery)
		c.pinger.Start()
	}

	return nil
}

// Close shuts down the client and stops background tasks
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true

	if c.pinger != nil {
		c.pinger.Stop()
	}
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the current session
func (c *Client) Session() *config.Session {
	return c.session
}

// endpoint joins the base URL with a backend path.
func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// do attaches the session cookie, executes the request, and translates a
// 401 into the process-wide logged-out broadcast.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.AddCookie(&http.Cookie{Name: models.SessionCookieName, Value: c.session.Get()})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError(req.Method+" "+req.URL.Path, req.URL.Path, err)
	}

	if resp.StatusCode == 401 {
		drainAndClose(resp)
		c.broadcastSessionExpired()
		return nil, apierrors.NewAuthErrorWithEndpoint("session rejected by backend", req.URL.Path)
	}

	return resp, nil
}

// broadcastSessionExpired fires the logged-out callback once.
func (c *Client) broadcastSessionExpired() {
	c.expiredOnce.Do(func() {
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
	})
}

// readBody reads a response body with a size ceiling.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	defer drainAndClose(resp)
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func drainAndClose(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}
}

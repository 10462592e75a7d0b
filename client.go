// Package nucleus is a client SDK for the Nucleus identity web service. It
// acquires bearer tokens (interactive capture, credential login, or manual
// entry), keeps the stored credential fresh, and assembles a unified identity
// record from the account and persona endpoints.
package nucleus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://gateway.ea.com"
const defaultAccountsBaseURL = "https://accounts.ea.com"
const defaultUserAgent = "nucleus-go/" + Version

// Config wires base URLs, transport, and telemetry for the API client.
type Config struct {
	// APIBaseURL is the gateway host serving the identity endpoints.
	APIBaseURL string
	// AccountsBaseURL is the accounts host serving the OAuth endpoints.
	AccountsBaseURL string
	HTTPClient      *http.Client
	Telemetry       TelemetryHooks
	UserAgent       string
}

// Client provides high-level helpers for talking to the identity provider.
// It holds no credential state; methods take the bearer token explicitly.
type Client struct {
	apiBaseURL      string
	accountsBaseURL string
	httpClient      *http.Client
	telemetry       TelemetryHooks
	userAgent       string

	// Grouped service clients.
	Auth     *AuthClient
	Identity *IdentityClient
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	accountsBase := cfg.AccountsBaseURL
	if accountsBase == "" {
		accountsBase = defaultAccountsBaseURL
	}
	normalizedAPI, err := normalizeBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	normalizedAccounts, err := normalizeBaseURL(accountsBase)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client := &Client{
		apiBaseURL:      normalizedAPI,
		accountsBaseURL: normalizedAccounts,
		httpClient:      httpClient,
		telemetry:       cfg.Telemetry,
		userAgent:       ua,
	}
	client.Auth = &AuthClient{client: client}
	client.Identity = &IdentityClient{client: client}
	return client, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ConfigError{Reason: "base URL required"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", ConfigError{Reason: fmt.Sprintf("invalid base URL: %v", err)}
	}
	if u.Scheme == "" {
		return "", ConfigError{Reason: "base URL missing scheme (http/https)"}
	}
	if u.Host == "" {
		return "", ConfigError{Reason: "base URL missing host"}
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	injectTraceparent(ctx, req)
	return req, nil
}

// send performs the request. Transport failures come back as TransportError;
// non-2xx responses are returned as-is because each endpoint maps status codes
// differently. Context cancellation surfaces unwrapped.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.telemetry.OnHTTPRequest != nil {
		c.telemetry.OnHTTPRequest(req.Context(), req)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.telemetry.OnHTTPResponse != nil {
		c.telemetry.OnHTTPResponse(req.Context(), req, resp, err, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, TransportError{Message: req.Method + " " + req.URL.Path + " failed", Cause: err}
	}
	return resp, nil
}

func (c *Client) apiURL(path string) string {
	return c.apiBaseURL + path
}

func (c *Client) accountsURL(path string) string {
	return c.accountsBaseURL + path
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, errorBodyLimit))
	_ = body.Close()
}

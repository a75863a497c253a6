// ABOUTME: HTTP client for the observability platform's admin API
// ABOUTME: Handles base URL joining, authentication, and response classification
package grafana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single admin API request
const DefaultTimeout = 30 * time.Second

// Options configures a Client
type Options struct {
	URL       string        // Base URL of the instance, e.g. http://localhost:3000
	Token     string        // Service account token or API key (Bearer)
	User      string        // Basic auth user, used when Token is empty
	Password  string        // Basic auth password
	Timeout   time.Duration // Per-request timeout, DefaultTimeout if zero
	Transport http.RoundTripper
}

// Client talks to one instance's admin API
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a client for the instance at opts.URL
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("target URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", opts.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid target URL %q: scheme must be http or https", opts.URL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &authTransport{base: transport, token: opts.Token, user: opts.User, password: opts.Password},
		},
	}, nil
}

// URL returns the instance base URL
func (c *Client) URL() string {
	return c.baseURL.String()
}

// do sends a request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target, err := c.baseURL.Parse(c.baseURL.Path + path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// authTransport adds credentials to every request
type authTransport struct {
	base     http.RoundTripper
	token    string
	user     string
	password string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" && t.user == "" {
		return t.base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	if t.token != "" {
		authed.Header.Set("Authorization", "Bearer "+t.token)
	} else {
		authed.SetBasicAuth(t.user, t.password)
	}
	return t.base.RoundTrip(authed)
}

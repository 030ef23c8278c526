// ABOUTME: Factory for pre-authenticated clients calling downstream resource APIs
// ABOUTME: Derives the B2B token per call and surfaces failures with status context

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/portalmesh/portal-bff/internal/metrics"
)

// DefaultTimeout bounds every downstream request.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies a valid B2B token for an audience.
// *b2btoken.Cache satisfies this.
type TokenSource interface {
	Token(ctx context.Context, audience string) (string, error)
}

// DownstreamError reports a non-2xx response from a downstream resource API.
// Status carries the downstream HTTP status so the route layer can propagate it.
type DownstreamError struct {
	Status  int
	Message string
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream returned %d: %s", e.Status, e.Message)
}

// Factory produces clients for one downstream resource API, identified by
// its base URL and token audience.
type Factory struct {
	baseURL    string
	audience   string
	tokens     TokenSource
	httpClient *http.Client
}

// NewFactory creates a client factory for the downstream API at baseURL,
// scoping tokens to the given audience. A zero timeout uses DefaultTimeout.
func NewFactory(baseURL, audience string, tokens TokenSource, timeout time.Duration) *Factory {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Factory{
		baseURL:  baseURL,
		audience: audience,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Client derives a token from the source (cheap on a cache hit) and returns
// a client that attaches it to every request. Clients are not cached; call
// this per request so the token stays fresh.
func (f *Factory) Client(ctx context.Context) (*Client, error) {
	token, err := f.tokens.Token(ctx, f.audience)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    f.baseURL,
		audience:   f.audience,
		token:      token,
		httpClient: f.httpClient,
	}, nil
}

// Client issues requests against one downstream API with a fixed bearer token.
type Client struct {
	baseURL    string
	audience   string
	token      string
	httpClient *http.Client
}

// downstreamBody is the envelope shape downstream APIs use for errors.
type downstreamBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Get issues a GET and decodes the 2xx response body into out (unless nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the 2xx response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building downstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.DownstreamDuration.WithLabelValues(c.audience, "transport_error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("calling downstream API: %w", err)
	}
	defer resp.Body.Close()
	metrics.DownstreamDuration.WithLabelValues(c.audience, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return downstreamError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding downstream response: %w", err)
	}
	return nil
}

// downstreamError builds a DownstreamError from a non-2xx response, using
// the body's message when one is present.
func downstreamError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)

	var body downstreamBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}

	return &DownstreamError{Status: resp.StatusCode, Message: msg}
}

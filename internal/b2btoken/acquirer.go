// ABOUTME: Client-credentials token acquisition against the identity provider
// ABOUTME: Exchanges client id/secret plus audience for a scoped B2B token

package b2btoken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrAcquisition means the token exchange failed. The upstream response is
// logged server-side only; callers never see provider error bodies.
var ErrAcquisition = errors.New("failed to obtain B2B token")

// DefaultTTL is assumed when the provider omits expires_in.
const DefaultTTL = time.Hour

// Acquirer obtains a fresh token scoped to the given audience.
type Acquirer interface {
	Acquire(ctx context.Context, audience string) (token string, ttl time.Duration, err error)
}

// tokenRequest is the JSON body sent to the token endpoint.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ClientCredentialsAcquirer implements Acquirer against an OAuth2 token
// endpoint using the client-credentials grant.
type ClientCredentialsAcquirer struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClientCredentialsAcquirer creates an acquirer for the given token
// endpoint and client credentials. A nil logger falls back to slog.Default.
func NewClientCredentialsAcquirer(tokenURL, clientID, clientSecret string, logger *slog.Logger) *ClientCredentialsAcquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientCredentialsAcquirer{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With("component", "b2btoken"),
	}
}

// Acquire performs the client-credentials exchange for the given audience.
// Any transport failure or non-success response yields ErrAcquisition with
// no upstream detail attached.
func (a *ClientCredentialsAcquirer) Acquire(ctx context.Context, audience string) (string, time.Duration, error) {
	body, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Audience:     audience,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("token endpoint unreachable", "audience", audience, "error", err)
		return "", 0, ErrAcquisition
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The body may carry provider internals; keep it out of the error.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		a.logger.Error("token endpoint rejected request",
			"audience", audience,
			"status", resp.StatusCode,
			"detail", string(detail),
		)
		return "", 0, ErrAcquisition
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		a.logger.Error("decoding token response", "audience", audience, "error", err)
		return "", 0, ErrAcquisition
	}
	if tr.AccessToken == "" {
		a.logger.Error("token response missing access_token", "audience", audience)
		return "", 0, ErrAcquisition
	}

	ttl := DefaultTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}

	return tr.AccessToken, ttl, nil
}

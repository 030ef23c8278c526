// ABOUTME: Tests for the client-credentials token acquirer
// ABOUTME: Covers the request shape, TTL handling, and error opacity

package b2btoken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SendsClientCredentialsGrant(t *testing.T) {
	var got tokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "b2b-token-1",
			"expires_in":   7200,
		})
	}))
	defer srv.Close()

	acq := NewClientCredentialsAcquirer(srv.URL, "client-abc", "secret-xyz", nil)
	token, ttl, err := acq.Acquire(context.Background(), "https://api-user")
	require.NoError(t, err)

	assert.Equal(t, "b2b-token-1", token)
	assert.Equal(t, 2*time.Hour, ttl)
	assert.Equal(t, "client_credentials", got.GrantType)
	assert.Equal(t, "client-abc", got.ClientID)
	assert.Equal(t, "secret-xyz", got.ClientSecret)
	assert.Equal(t, "https://api-user", got.Audience)
}

func TestAcquire_DefaultsTTLWhenOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "b2b-token-2"})
	}))
	defer srv.Close()

	acq := NewClientCredentialsAcquirer(srv.URL, "id", "secret", nil)
	_, ttl, err := acq.Acquire(context.Background(), "https://api-user")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, ttl)
}

func TestAcquire_UpstreamErrorIsOpaque(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error":             "access_denied",
			"error_description": "client secret rotated on 2026-08-12 by ops",
		})
	}))
	defer srv.Close()

	acq := NewClientCredentialsAcquirer(srv.URL, "id", "secret", nil)
	_, _, err := acq.Acquire(context.Background(), "https://api-user")
	require.ErrorIs(t, err, ErrAcquisition)

	// Provider internals must never surface through the error chain.
	assert.NotContains(t, err.Error(), "access_denied")
	assert.NotContains(t, err.Error(), "rotated")
}

func TestAcquire_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	acq := NewClientCredentialsAcquirer(srv.URL, "id", "secret", nil)
	_, _, err := acq.Acquire(context.Background(), "https://api-user")
	require.ErrorIs(t, err, ErrAcquisition)
}

func TestAcquire_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer srv.Close()

	acq := NewClientCredentialsAcquirer(srv.URL, "id", "secret", nil)
	_, _, err := acq.Acquire(context.Background(), "https://api-user")
	require.ErrorIs(t, err, ErrAcquisition)
}

func TestAcquire_ContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	acq := NewClientCredentialsAcquirer(srv.URL, "id", "secret", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := acq.Acquire(ctx, "https://api-user")
	require.Error(t, err)
	if !strings.Contains(err.Error(), "B2B token") {
		t.Errorf("expected generic acquisition error, got %v", err)
	}
}

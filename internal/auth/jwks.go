// ABOUTME: JWKS fetching and caching for resolving the issuer's signing keys
// ABOUTME: Refreshes on TTL expiry or on an unknown key ID

package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrUnknownKey means the token's key ID is not in the issuer's key set,
// even after a refresh.
var ErrUnknownKey = errors.New("signing key not found in JWKS")

// KeySet resolves a key ID to an RSA public key.
type KeySet interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// jwksDocument is the JSON shape of a published key set.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSClient fetches the issuer's JWKS document and caches the parsed keys.
// A fetched set is reused for the configured TTL; an unknown kid forces an
// early refresh so key rotation is picked up without waiting out the TTL.
type JWKSClient struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSClient creates a key set client for the given issuer base URL.
// The document is fetched from <issuer>/.well-known/jwks.json.
func NewJWKSClient(issuer string, ttl time.Duration, logger *slog.Logger) *JWKSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWKSClient{
		url:        strings.TrimSuffix(issuer, "/") + "/.well-known/jwks.json",
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "jwks"),
	}
}

// Key returns the RSA public key for the given key ID, fetching or
// refreshing the key set as needed.
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := time.Since(c.fetchedAt) < c.ttl
	if fresh {
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
	}

	// Stale set, or an unknown kid (possible rotation): refetch.
	if err := c.fetchLocked(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

// fetchLocked retrieves and parses the JWKS document. Caller holds c.mu.
func (c *JWKSClient) fetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("building JWKS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching JWKS: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			c.logger.Warn("skipping unparseable JWKS key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}

	c.keys = keys
	c.fetchedAt = time.Now()
	c.logger.Debug("JWKS refreshed", "keys", len(keys))
	return nil
}

// publicKey converts the base64url modulus and exponent into an RSA key.
func (k jwksKey) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// StaticKeySet is a fixed kid-to-key mapping. Tests use it in place of a
// fetched JWKS document.
type StaticKeySet map[string]*rsa.PublicKey

// Key returns the key for kid, or ErrUnknownKey.
func (s StaticKeySet) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := s[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

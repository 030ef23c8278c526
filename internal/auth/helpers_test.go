// ABOUTME: Shared test helpers for minting RS256 tokens against a static key set
// ABOUTME: Provides a signing key, kid registration, and claim defaults

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer     = "https://tenant.auth.example.com/"
	testAudience   = "https://bff-shell"
	testRolesClaim = "https://bff-shell/roles"
	testKid        = "test-key-1"
)

// newTestKey generates an RSA signing key for token minting.
func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	return key
}

// defaultClaims returns a claim set that passes verification unless overridden.
func defaultClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": "auth0|user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

// mintToken signs claims with RS256 under the given kid.
func mintToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// newTestVerifier wires a verifier to a static key set holding the test key.
func newTestVerifier(key *rsa.PrivateKey) *Verifier {
	keys := StaticKeySet{testKid: &key.PublicKey}
	return NewVerifier(keys, testIssuer, testAudience, testRolesClaim)
}

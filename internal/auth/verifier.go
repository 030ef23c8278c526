// ABOUTME: JWT verification for inbound user tokens (RS256 via issuer JWKS)
// ABOUTME: Enforces issuer, audience, and algorithm; extracts the normalized identity

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors. All of them render as the same generic 401 at the
// HTTP boundary; the distinction exists for logs and tests.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Verifier validates inbound bearer tokens and produces identities.
type Verifier struct {
	keys       KeySet
	issuer     string
	audience   string
	rolesClaim string
}

// NewVerifier creates a verifier bound to one issuer, audience, and roles
// claim key. The claim key is fixed here, once, at construction.
func NewVerifier(keys KeySet, issuer, audience, rolesClaim string) *Verifier {
	return &Verifier{
		keys:       keys,
		issuer:     issuer,
		audience:   audience,
		rolesClaim: rolesClaim,
	}
}

// Verify validates the token string and returns the extracted identity.
// Only RS256 is accepted; issuer and audience must match exactly.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	return &Identity{
		Subject:     sub,
		Roles:       stringsFromClaim(claims[v.rolesClaim]),
		Permissions: stringsFromClaim(claims["permissions"]),
	}, nil
}

// stringsFromClaim converts a decoded JSON claim into a string slice.
// Absent or malformed claims become an empty slice, never an error: a token
// without roles is valid, it just grants nothing.
func stringsFromClaim(claim any) []string {
	values, ok := claim.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

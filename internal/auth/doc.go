// Package auth validates inbound bearer tokens and enforces role gates for
// the portal BFFs.
//
// # Identity Gate
//
// Every protected request carries "Authorization: Bearer <JWT>". The
// verifier accepts only RS256 signatures, resolved against the issuer's
// published JWKS, and requires the configured issuer and audience claims.
// Tokens signed with any other algorithm are rejected outright so a
// downgrade to HS256 (or "none") signed with public material can never pass.
//
// On success the request context carries an Identity:
//
//   - Subject from the standard "sub" claim (may be empty)
//   - Roles from one configured namespaced claim key, e.g. "https://bff-shell/roles"
//   - Permissions from the standard "permissions" claim
//
// Both lists default to empty when the claim is absent. The claim key is
// fixed at startup; request handling never probes alternative keys.
//
// Failures always respond 401 with a generic envelope. The concrete
// validation failure is logged server-side, never echoed to the client.
//
// # Role Gate
//
// RequireRole(roles...) allows a request when the identity's roles intersect
// the required set (logical OR) and responds 403 otherwise. It reads only
// the context, so it must be mounted after the identity middleware; with no
// identity present the roles are empty and any non-empty requirement denies.
//
// # Context Propagation
//
// WithIdentity and FromContext move the Identity through context.Context,
// scoped to a single request. Identities are never cached or reused across
// requests.
package auth

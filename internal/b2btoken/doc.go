// Package b2btoken acquires and caches audience-scoped service tokens.
//
// # Overview
//
// BFF processes call downstream resource APIs with B2B tokens obtained via
// the OAuth2 client-credentials grant. Tokens are scoped to one audience and
// cached in-memory per audience until shortly before their real expiry.
//
// # Cache Semantics
//
// Cache.Token returns the cached token for an audience when one exists and
// its buffered expiry has not passed; otherwise it invokes the Acquirer and
// stores the result. The expiry buffer (default 5 minutes) is subtracted
// from the provider-reported TTL before storing, so a token is treated as
// expired ahead of its real expiry and never presented downstream at the
// edge of validity.
//
// Concurrent misses for the same audience may each trigger an acquisition.
// The token endpoint is idempotent, so the duplicates cost a redundant
// request, not correctness; the cache does not single-flight.
//
// The cache is process-local only. Every BFF instance holds identical
// credentials and produces interchangeable tokens, so no cross-process
// coordination exists.
//
// # Testing
//
// The clock and the Acquirer are both injected, so tests substitute a fake
// clock to cross expiry boundaries deterministically and a stub acquirer to
// count acquisition calls.
package b2btoken

// ABOUTME: Child portal BFF: token-mediated proxy routes over downstream APIs
// ABOUTME: Validates the relayed end-user token, swaps it for B2B tokens downstream

// Package child implements the embedded portal's backend-for-frontend.
//
// Every /api route first passes the identity gate (RS256 verification of the
// relayed user token) and a role gate, then calls the downstream resource
// API with an audience-scoped B2B token from the process-local cache. The
// user's own token never leaves the child BFF toward downstream services.
package child

// ABOUTME: Shell portal BFF: browser session lifecycle and token/identity endpoints
// ABOUTME: The shell owns the session cookie and hands the embedded app its token

// Package shell implements the shell portal's backend-for-frontend.
//
// The shell BFF terminates the browser's login callback from the auth front
// door, stores the resulting access token server-side keyed by an opaque
// session cookie, and exposes /api/token and /api/me so the shell frontend
// (and, via the cross-frame relay, the embedded portal) never persists the
// token itself.
package shell

// Package relay propagates a signed-in user's access token from the hosting
// shell page into a cross-origin embedded application.
//
// # Protocol
//
// Two message types cross the frame boundary:
//
//	{"type": "AUTH_TOKEN", "token": "<JWT>"}
//	{"type": "USER_INFO", "user": {...}}
//
// The Sender posts them to the exact configured child origin, never a
// wildcard. The Receiver acts only on messages whose declared origin equals
// its single trusted parent origin; everything else is dropped silently.
//
// # Receiver State Machine
//
// A receiver is either standalone (the page is not embedded; the relay is
// inert and callers go straight to their own interactive login) or embedded.
// An embedded receiver starts in StateAwaitingToken and moves to StateReady
// when an AUTH_TOKEN arrives. USER_INFO only carries display data; it never
// gates authorization.
//
// Callers that need a token before one has arrived block in Token, bounded
// by attempts x interval (default 50 x 100ms) and cancellable through the
// context. On timeout, Token returns ErrRelayTimeout and the caller falls
// back to interactive acquisition via FallbackTokenSource; an
// unauthenticated request is never the outcome of a relay timeout.
//
// Close releases the receiver: Deliver becomes a no-op and all blocked
// waiters wake with ErrReceiverClosed, so nothing dangles after the
// embedding page tears the component down.
package relay

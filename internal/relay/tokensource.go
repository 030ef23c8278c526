// ABOUTME: Token source composition for the embedded app's outbound calls
// ABOUTME: Relay-first with bounded wait, interactive acquisition on timeout

package relay

import (
	"context"
	"errors"
)

// TokenSource yields a bearer token for outbound calls to the embedded
// app's own BFF.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// fallbackSource tries the relay first and falls back to interactive
// acquisition when the relay cannot produce a token.
type fallbackSource struct {
	receiver    *Receiver
	interactive TokenSource
}

// FallbackTokenSource returns a TokenSource that waits on the relay
// receiver and, when the bounded wait elapses or the relay is inert
// (standalone mode, closed receiver), acquires a token interactively
// instead. It never yields an empty token without an error, so no request
// goes out unauthenticated.
func FallbackTokenSource(receiver *Receiver, interactive TokenSource) TokenSource {
	return &fallbackSource{receiver: receiver, interactive: interactive}
}

func (s *fallbackSource) Token(ctx context.Context) (string, error) {
	token, err := s.receiver.Token(ctx)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, ErrStandalone) || errors.Is(err, ErrRelayTimeout) || errors.Is(err, ErrReceiverClosed) {
		return s.interactive.Token(ctx)
	}
	// Context cancellation propagates; the caller is going away.
	return "", err
}

// ABOUTME: Embedded-side relay receiver with a bounded, cancellable token wait
// ABOUTME: Accepts messages only from the single trusted parent origin

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Receiver errors.
var (
	// ErrRelayTimeout means no token arrived within the bounded wait. The
	// caller falls back to interactive acquisition; this is not fatal.
	ErrRelayTimeout = errors.New("relay token wait timed out")
	// ErrReceiverClosed means the receiver was closed while waiting.
	ErrReceiverClosed = errors.New("relay receiver closed")
	// ErrStandalone means the page is not embedded and the relay is inert.
	ErrStandalone = errors.New("relay inactive in standalone mode")
)

// State of the receiving side.
type State int

const (
	// StateStandalone: the page is not embedded; the relay never activates.
	StateStandalone State = iota
	// StateAwaitingToken: embedded, listener registered, no token yet.
	StateAwaitingToken
	// StateReady: a token has arrived and outgoing calls can attach it.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateStandalone:
		return "standalone"
	case StateAwaitingToken:
		return "awaiting-token"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Default bounded wait: 50 attempts x 100ms.
const (
	DefaultWaitAttempts = 50
	DefaultWaitInterval = 100 * time.Millisecond
)

// Receiver buffers the token relayed by the hosting page. Safe for
// concurrent use; Deliver is the message-listener callback and Token is
// called from outbound request paths.
type Receiver struct {
	trustedOrigin string
	attempts      int
	interval      time.Duration
	logger        *slog.Logger

	mu    sync.Mutex
	state State
	token string
	user  json.RawMessage

	ready  chan struct{} // closed when the first AUTH_TOKEN arrives
	closed chan struct{} // closed by Close
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithWaitBounds overrides the bounded-wait attempts and interval.
func WithWaitBounds(attempts int, interval time.Duration) ReceiverOption {
	return func(r *Receiver) {
		r.attempts = attempts
		r.interval = interval
	}
}

// WithReceiverLogger sets the logger.
func WithReceiverLogger(logger *slog.Logger) ReceiverOption {
	return func(r *Receiver) { r.logger = logger }
}

// NewReceiver creates a receiver trusting exactly trustedOrigin. embedded
// reflects whether the page runs inside a frame (self !== top); a
// standalone receiver stays inert.
func NewReceiver(trustedOrigin string, embedded bool, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		trustedOrigin: trustedOrigin,
		attempts:      DefaultWaitAttempts,
		interval:      DefaultWaitInterval,
		state:         StateStandalone,
		ready:         make(chan struct{}),
		closed:        make(chan struct{}),
	}
	if embedded {
		r.state = StateAwaitingToken
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "relay-receiver")
	return r
}

// State returns the current state.
func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Deliver is the message-listener callback. Messages from any origin other
// than the trusted parent origin are discarded silently, with no state
// change. After Close, Deliver is a no-op.
func (r *Receiver) Deliver(origin string, msg Message) {
	if origin != r.trustedOrigin {
		r.logger.Debug("dropping relay message from untrusted origin", "origin", origin)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
		return
	default:
	}
	if r.state == StateStandalone {
		return
	}

	switch msg.Type {
	case TypeAuthToken:
		if msg.Token == "" {
			return
		}
		r.token = msg.Token
		if r.state != StateReady {
			r.state = StateReady
			close(r.ready)
		}
	case TypeUserInfo:
		if msg.User != nil {
			r.user = msg.User
		}
	}
}

// User returns the buffered identity display data, nil until USER_INFO arrives.
func (r *Receiver) User() json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user
}

// Token returns the relayed token, waiting up to attempts x interval for it
// to arrive. Returns ErrStandalone immediately when not embedded,
// ErrRelayTimeout when the bounded wait elapses, ErrReceiverClosed when the
// receiver is torn down mid-wait, or the context error on cancellation.
func (r *Receiver) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	switch r.state {
	case StateStandalone:
		r.mu.Unlock()
		return "", ErrStandalone
	case StateReady:
		token := r.token
		r.mu.Unlock()
		return token, nil
	}
	r.mu.Unlock()

	timer := time.NewTimer(time.Duration(r.attempts) * r.interval)
	defer timer.Stop()

	select {
	case <-r.ready:
		r.mu.Lock()
		token := r.token
		r.mu.Unlock()
		return token, nil
	case <-r.closed:
		return "", ErrReceiverClosed
	case <-timer.C:
		r.logger.Warn("no relay token within bounded wait, caller should fall back",
			"attempts", r.attempts, "interval", r.interval)
		return "", ErrRelayTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the receiver. Pending Token calls wake with
// ErrReceiverClosed and subsequent Deliver calls are ignored. Safe to call
// more than once.
func (r *Receiver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
}

// ABOUTME: Host-side relay that pushes token and user info into the embedded frame
// ABOUTME: Sends on frame load and token arrival, always to the exact child origin

package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Frame is the cross-origin boundary the sender posts through. The
// implementation belongs to the embedding surface (a browser bridge, a
// webview host, or a test double).
type Frame interface {
	Post(msg Message, targetOrigin string) error
}

// Sender holds the host page's current token and user info and relays them
// into the embedded frame. The token is resolved server-side through the
// shell BFF's session endpoints, never through a client-visible call.
// Safe for concurrent use.
type Sender struct {
	frame        Frame
	targetOrigin string
	logger       *slog.Logger

	mu          sync.Mutex
	frameLoaded bool
	token       string
	user        json.RawMessage
}

// NewSender creates a sender that posts to the given frame at exactly
// targetOrigin. A nil logger falls back to slog.Default.
func NewSender(frame Frame, targetOrigin string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		frame:        frame,
		targetOrigin: targetOrigin,
		logger:       logger.With("component", "relay-sender"),
	}
}

// SetToken stores the current access token and relays it immediately when
// the frame has already loaded.
func (s *Sender) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	loaded := s.frameLoaded
	s.mu.Unlock()

	if loaded && token != "" {
		s.send(Message{Type: TypeAuthToken, Token: token})
	}
}

// SetUser stores the user display payload and relays it immediately when
// the frame has already loaded.
func (s *Sender) SetUser(user json.RawMessage) {
	s.mu.Lock()
	s.user = user
	loaded := s.frameLoaded
	s.mu.Unlock()

	if loaded && user != nil {
		s.send(Message{Type: TypeUserInfo, User: user})
	}
}

// FrameLoaded records that the embedded frame has (re)loaded and re-sends
// whatever state is held. Called on every load event; the receiver tolerates
// duplicates and no acknowledgement is expected.
func (s *Sender) FrameLoaded() {
	s.mu.Lock()
	s.frameLoaded = true
	token := s.token
	user := s.user
	s.mu.Unlock()

	if token != "" {
		s.send(Message{Type: TypeAuthToken, Token: token})
	}
	if user != nil {
		s.send(Message{Type: TypeUserInfo, User: user})
	}
}

func (s *Sender) send(msg Message) {
	if err := s.frame.Post(msg, s.targetOrigin); err != nil {
		s.logger.Warn("posting relay message failed", "type", msg.Type, "error", err)
	}
}

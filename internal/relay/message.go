// ABOUTME: Message types crossing the parent-to-frame boundary
// ABOUTME: Tagged union of AUTH_TOKEN and USER_INFO payloads

package relay

import "encoding/json"

// MessageType tags a relay message.
type MessageType string

const (
	// TypeAuthToken carries the user's access token.
	TypeAuthToken MessageType = "AUTH_TOKEN"
	// TypeUserInfo carries identity display data. It never gates authorization.
	TypeUserInfo MessageType = "USER_INFO"
)

// Message is one relay payload. Exactly one of Token or User is set,
// according to Type.
type Message struct {
	Type  MessageType     `json:"type"`
	Token string          `json:"token,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
}

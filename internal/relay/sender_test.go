// ABOUTME: Tests for the host-side relay sender
// ABOUTME: Covers send ordering, frame reloads, and exact target origin

package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFrame captures posted messages with their target origins.
type recordingFrame struct {
	mu     sync.Mutex
	posts  []Message
	origin []string
}

func (f *recordingFrame) Post(msg Message, targetOrigin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, msg)
	f.origin = append(f.origin, targetOrigin)
	return nil
}

func (f *recordingFrame) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.posts...)
}

const childOrigin = "https://child.portal.example.com"

func TestSender_NothingSentBeforeFrameLoads(t *testing.T) {
	frame := &recordingFrame{}
	sender := NewSender(frame, childOrigin, nil)

	sender.SetToken("user-token")
	sender.SetUser(json.RawMessage(`{"name":"Ada"}`))

	assert.Empty(t, frame.messages())
}

func TestSender_SendsOnFrameLoadWithHeldState(t *testing.T) {
	frame := &recordingFrame{}
	sender := NewSender(frame, childOrigin, nil)

	sender.SetToken("user-token")
	sender.SetUser(json.RawMessage(`{"name":"Ada"}`))
	sender.FrameLoaded()

	msgs := frame.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, TypeAuthToken, msgs[0].Type)
	assert.Equal(t, "user-token", msgs[0].Token)
	assert.Equal(t, TypeUserInfo, msgs[1].Type)
	assert.JSONEq(t, `{"name":"Ada"}`, string(msgs[1].User))
}

func TestSender_SendsWhenTokenArrivesAfterLoad(t *testing.T) {
	frame := &recordingFrame{}
	sender := NewSender(frame, childOrigin, nil)

	sender.FrameLoaded()
	require.Empty(t, frame.messages(), "no token held yet")

	sender.SetToken("late-token")

	msgs := frame.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeAuthToken, msgs[0].Type)
	assert.Equal(t, "late-token", msgs[0].Token)
}

func TestSender_ResendsOnEveryReload(t *testing.T) {
	frame := &recordingFrame{}
	sender := NewSender(frame, childOrigin, nil)

	sender.SetToken("user-token")
	sender.FrameLoaded()
	sender.FrameLoaded() // user navigated the frame; everything resends

	msgs := frame.messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, TypeAuthToken, m.Type)
	}
}

func TestSender_AlwaysPostsToExactOrigin(t *testing.T) {
	frame := &recordingFrame{}
	sender := NewSender(frame, childOrigin, nil)

	sender.SetToken("user-token")
	sender.SetUser(json.RawMessage(`{}`))
	sender.FrameLoaded()

	frame.mu.Lock()
	defer frame.mu.Unlock()
	require.NotEmpty(t, frame.origin)
	for _, origin := range frame.origin {
		assert.Equal(t, childOrigin, origin, "relay must never post to a wildcard or other origin")
	}
}

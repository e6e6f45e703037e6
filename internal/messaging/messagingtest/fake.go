// Package messagingtest provides an in-memory messaging.Transport for tests.
package messagingtest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/memohai/kitchensink/internal/messaging"
)

// Reply is one recorded ReplyMessage call.
type Reply struct {
	Token    string
	Messages []messaging.Message
}

// Transport records calls and serves canned data. Zero value is ready to use.
type Transport struct {
	mu sync.Mutex

	Profiles map[string]messaging.Profile
	Contents map[string][]byte
	// ReplyErr, when set, is returned by every ReplyMessage call.
	ReplyErr error

	replies      []Reply
	profileCalls []string
	contentCalls []string
	leftGroups   []string
	leftRooms    []string
}

func (t *Transport) ReplyMessage(_ context.Context, token string, messages []messaging.Message) (messaging.DeliveryResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ReplyErr != nil {
		return messaging.DeliveryResult{}, t.ReplyErr
	}
	copied := append([]messaging.Message(nil), messages...)
	t.replies = append(t.replies, Reply{Token: token, Messages: copied})
	return messaging.DeliveryResult{RequestID: fmt.Sprintf("req-%d", len(t.replies))}, nil
}

func (t *Transport) GetProfile(_ context.Context, userID string) (messaging.Profile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profileCalls = append(t.profileCalls, userID)
	profile, ok := t.Profiles[userID]
	if !ok {
		return messaging.Profile{}, &messaging.APIError{Op: "get profile", StatusCode: 404, Message: "Not found"}
	}
	return profile, nil
}

func (t *Transport) GetMessageContent(_ context.Context, messageID string) (io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contentCalls = append(t.contentCalls, messageID)
	data, ok := t.Contents[messageID]
	if !ok {
		return nil, &messaging.APIError{Op: "get message content", StatusCode: 404, Message: "Not found"}
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (t *Transport) LeaveGroup(_ context.Context, groupID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leftGroups = append(t.leftGroups, groupID)
	return nil
}

func (t *Transport) LeaveRoom(_ context.Context, roomID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leftRooms = append(t.leftRooms, roomID)
	return nil
}

// Replies returns the recorded reply calls in call order.
func (t *Transport) Replies() []Reply {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Reply(nil), t.replies...)
}

// ReplyFor returns the reply recorded for token.
func (t *Transport) ReplyFor(token string) (Reply, bool) {
	for _, r := range t.Replies() {
		if r.Token == token {
			return r, true
		}
	}
	return Reply{}, false
}

func (t *Transport) ProfileCalls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.profileCalls...)
}

func (t *Transport) ContentCalls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.contentCalls...)
}

func (t *Transport) LeftGroups() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.leftGroups...)
}

func (t *Transport) LeftRooms() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.leftRooms...)
}

var _ messaging.Transport = (*Transport)(nil)

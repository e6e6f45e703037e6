package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTransport matches every error returned because the platform rejected a call.
var ErrTransport = errors.New("transport error")

// Transport is the platform capability the bot depends on.
type Transport interface {
	ReplyMessage(ctx context.Context, replyToken string, messages []Message) (DeliveryResult, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	// GetMessageContent streams the bytes of a platform-hosted message.
	// The caller closes the returned reader.
	GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error)
	LeaveGroup(ctx context.Context, groupID string) error
	LeaveRoom(ctx context.Context, roomID string) error
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Details    []APIErrorDetail
}

type APIErrorDetail struct {
	Message  string `json:"message"`
	Property string `json:"property"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: status %d", e.Op, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, d := range e.Details {
		fmt.Fprintf(&b, " [%s: %s]", d.Property, d.Message)
	}
	return b.String()
}

// Is makes every APIError match ErrTransport.
func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}

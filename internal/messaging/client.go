package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const (
	requestIDHeader = "X-Line-Request-Id"
	maxErrorBody    = 64 * 1024
)

// ClientConfig configures the platform client.
type ClientConfig struct {
	AccessToken    string
	APIBaseURL     string
	DataAPIBaseURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client implements Transport with the official Messaging API SDK. Bot calls
// go through MessagingApiAPI and content downloads through MessagingApiBlobAPI.
type Client struct {
	api    *messaging_api.MessagingApiAPI
	blob   *messaging_api.MessagingApiBlobAPI
	logger *slog.Logger
}

// NewClient creates a Messaging API client.
func NewClient(log *slog.Logger, cfg ClientConfig) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("channel access token is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	apiOpts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(httpClient)}
	if base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"); base != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(base))
	}
	api, err := messaging_api.NewMessagingApiAPI(token, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}

	blobOpts := []messaging_api.MessagingApiBlobAPIOption{messaging_api.WithBlobHTTPClient(httpClient)}
	if base := strings.TrimRight(strings.TrimSpace(cfg.DataAPIBaseURL), "/"); base != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(base))
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(token, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging blob client: %w", err)
	}

	return &Client{
		api:    api,
		blob:   blob,
		logger: log.With(slog.String("component", "messaging_client")),
	}, nil
}

// ReplyMessage sends messages with a single reply call.
func (c *Client) ReplyMessage(ctx context.Context, replyToken string, messages []Message) (DeliveryResult, error) {
	const op = "reply message"
	payloads, err := ToSDKMessages(messages)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res, resp, err := c.api.WithContext(ctx).ReplyMessageWithHttpInfo(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   payloads,
	})
	if err != nil {
		return DeliveryResult{}, c.wrap(op, res, err)
	}
	result := DeliveryResult{RequestID: res.Header.Get(requestIDHeader)}
	if resp != nil {
		for _, sent := range resp.SentMessages {
			result.SentMessages = append(result.SentMessages, SentMessage{ID: sent.Id, QuoteToken: sent.QuoteToken})
		}
	}
	return result, nil
}

// GetProfile fetches a user profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	const op = "get profile"
	res, profile, err := c.api.WithContext(ctx).GetProfileWithHttpInfo(userID)
	if err != nil {
		return Profile{}, c.wrap(op, res, err)
	}
	if profile == nil {
		return Profile{}, fmt.Errorf("%s: empty response: %w", op, ErrTransport)
	}
	return Profile{
		UserID:        profile.UserId,
		DisplayName:   profile.DisplayName,
		PictureURL:    profile.PictureUrl,
		StatusMessage: profile.StatusMessage,
		Language:      profile.Language,
	}, nil
}

// GetMessageContent opens the content stream of a platform-hosted message.
func (c *Client) GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error) {
	res, err := c.blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		return nil, c.wrap("get message content", res, err)
	}
	return res.Body, nil
}

// LeaveGroup makes the bot leave a group chat.
func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	res, _, err := c.api.WithContext(ctx).LeaveGroupWithHttpInfo(groupID)
	if err != nil {
		return c.wrap("leave group", res, err)
	}
	return nil
}

// LeaveRoom makes the bot leave a multi-person chat.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	res, _, err := c.api.WithContext(ctx).LeaveRoomWithHttpInfo(roomID)
	if err != nil {
		return c.wrap("leave room", res, err)
	}
	return nil
}

// wrap converts an SDK failure into an error matching ErrTransport. When the
// platform answered, the result is an *APIError carrying its status and the
// decoded error body.
func (c *Client) wrap(op string, res *http.Response, err error) error {
	if res == nil {
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	apiErr := &APIError{Op: op, StatusCode: res.StatusCode}
	raw := errorBody(res)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = errorBodyFromMessage(err)
	}
	var payload struct {
		Message string           `json:"message"`
		Details []APIErrorDetail `json:"details"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
	} else {
		apiErr.Message = err.Error()
	}
	c.logger.Warn("platform call rejected",
		slog.String("op", op),
		slog.Int("status", res.StatusCode),
		slog.String("request_id", res.Header.Get(requestIDHeader)),
	)
	return apiErr
}

func errorBody(res *http.Response) []byte {
	if res.Body == nil {
		return nil
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return raw
}

// errorBodyFromMessage recovers the response body the SDK embeds in its
// "unexpected status code: <code>, <body>" errors.
func errorBodyFromMessage(err error) []byte {
	msg := err.Error()
	if i := strings.Index(msg, "{"); i >= 0 {
		return []byte(msg[i:])
	}
	return nil
}

// Package messaging defines the outbound side of the bot: reply payloads, the
// Transport capability used to reach the platform, and the reply Sender.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingType indicates a raw payload without a string "type" field.
var ErrMissingType = errors.New("reply payload has no type")

// MessageType is the discriminant the transport uses to interpret a payload.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeLocation MessageType = "location"
	TypeSticker  MessageType = "sticker"
	TypeTemplate MessageType = "template"
)

// Message is one outbound reply payload. The client converts it into the
// SDK model with ToSDKMessage before sending.
type Message interface {
	Type() MessageType
	isMessage()
}

type TextMessage struct {
	Text string `json:"text"`
}

type ImageMessage struct {
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

type VideoMessage struct {
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

type AudioMessage struct {
	OriginalContentURL string `json:"originalContentUrl"`
	// Duration in milliseconds, as reported by the inbound message.
	Duration int64 `json:"duration"`
}

type LocationMessage struct {
	Title     string  `json:"title"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type StickerMessage struct {
	PackageID string `json:"packageId"`
	StickerID string `json:"stickerId"`
}

// RawMessage is a pre-built payload, typically from the template catalogue.
type RawMessage struct {
	kind MessageType
	raw  json.RawMessage
}

// NewRawMessage wraps raw JSON, which must be an object with a non-empty type.
func NewRawMessage(raw []byte) (RawMessage, error) {
	var head struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return RawMessage{}, fmt.Errorf("decode reply payload: %w", err)
	}
	kind, ok := head.Type.(string)
	if !ok || strings.TrimSpace(kind) == "" {
		return RawMessage{}, ErrMissingType
	}
	buf := make(json.RawMessage, len(raw))
	copy(buf, raw)
	return RawMessage{kind: MessageType(kind), raw: buf}, nil
}

func (TextMessage) Type() MessageType     { return TypeText }
func (ImageMessage) Type() MessageType    { return TypeImage }
func (VideoMessage) Type() MessageType    { return TypeVideo }
func (AudioMessage) Type() MessageType    { return TypeAudio }
func (LocationMessage) Type() MessageType { return TypeLocation }
func (StickerMessage) Type() MessageType  { return TypeSticker }
func (m RawMessage) Type() MessageType    { return m.kind }

func (TextMessage) isMessage()     {}
func (ImageMessage) isMessage()    {}
func (VideoMessage) isMessage()    {}
func (AudioMessage) isMessage()    {}
func (LocationMessage) isMessage() {}
func (StickerMessage) isMessage()  {}
func (RawMessage) isMessage()      {}

// MarshalJSON returns the payload verbatim.
func (m RawMessage) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return nil, ErrMissingType
	}
	return m.raw, nil
}

// TextMessages converts texts into text payloads, preserving order.
func TextMessages(texts ...string) []Message {
	out := make([]Message, 0, len(texts))
	for _, text := range texts {
		out = append(out, TextMessage{Text: text})
	}
	return out
}

// Profile is a user profile as returned by the platform.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
	Language      string `json:"language,omitempty"`
}

// DeliveryResult describes an accepted reply call.
type DeliveryResult struct {
	RequestID string `json:"requestId,omitempty"`
	// SentMessages echoes the platform's per-message acknowledgements when present.
	SentMessages []SentMessage `json:"sentMessages,omitempty"`
}

type SentMessage struct {
	ID         string `json:"id"`
	QuoteToken string `json:"quoteToken,omitempty"`
}

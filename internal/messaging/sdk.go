package messaging

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// ToSDKMessage converts a reply payload into the Messaging API SDK model.
// Raw payloads are decoded by the SDK from their JSON.
func ToSDKMessage(m Message) (messaging_api.MessageInterface, error) {
	switch msg := m.(type) {
	case TextMessage:
		return messaging_api.TextMessage{Text: msg.Text}, nil
	case ImageMessage:
		return messaging_api.ImageMessage{
			OriginalContentUrl: msg.OriginalContentURL,
			PreviewImageUrl:    msg.PreviewImageURL,
		}, nil
	case VideoMessage:
		return messaging_api.VideoMessage{
			OriginalContentUrl: msg.OriginalContentURL,
			PreviewImageUrl:    msg.PreviewImageURL,
		}, nil
	case AudioMessage:
		return messaging_api.AudioMessage{
			OriginalContentUrl: msg.OriginalContentURL,
			Duration:           msg.Duration,
		}, nil
	case LocationMessage:
		return messaging_api.LocationMessage{
			Title:     msg.Title,
			Address:   msg.Address,
			Latitude:  msg.Latitude,
			Longitude: msg.Longitude,
		}, nil
	case StickerMessage:
		return messaging_api.StickerMessage{PackageId: msg.PackageID, StickerId: msg.StickerID}, nil
	case RawMessage:
		if len(msg.raw) == 0 {
			return nil, ErrMissingType
		}
		out, err := messaging_api.UnmarshalMessage(msg.raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", msg.kind, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported reply payload %T", m)
	}
}

// ToSDKMessages converts payloads in order.
func ToSDKMessages(msgs []Message) ([]messaging_api.MessageInterface, error) {
	out := make([]messaging_api.MessageInterface, 0, len(msgs))
	for i, m := range msgs {
		converted, err := ToSDKMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, converted)
	}
	return out, nil
}

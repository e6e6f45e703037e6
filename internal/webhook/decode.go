package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	linewebhook "github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// ErrMalformedBatch indicates the callback body is not an object with an events array.
var ErrMalformedBatch = errors.New("malformed callback batch")

type wireBatch struct {
	Destination json.RawMessage `json:"destination"`
	Events      json.RawMessage `json:"events"`
}

// wireEnvelope keeps the pieces of an event the SDK types do not retain
// verbatim: the discriminant and the raw message object.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type wireMessageHead struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ParseBatch decodes a callback body. The body must be a JSON object whose
// events field is an array; anything else yields ErrMalformedBatch. The
// destination is optional and ignored unless it is a string. Entries that
// cannot be decoded become UnknownEvent values rather than failing the whole
// batch, so routing can report them individually.
func ParseBatch(body []byte) (Batch, error) {
	var wb wireBatch
	if err := json.Unmarshal(body, &wb); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	trimmed := bytes.TrimSpace(wb.Events)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Batch{}, fmt.Errorf("%w: events must be an array", ErrMalformedBatch)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	batch := Batch{
		Destination: decodeDestination(wb.Destination),
		Events:      make([]Event, 0, len(items)),
	}
	for _, item := range items {
		batch.Events = append(batch.Events, DecodeEvent(item))
	}
	return batch, nil
}

func decodeDestination(raw json.RawMessage) string {
	var destination string
	if len(raw) == 0 || json.Unmarshal(raw, &destination) != nil {
		return ""
	}
	return destination
}

// DecodeEvent converts one raw event into its typed form.
func DecodeEvent(raw json.RawMessage) Event {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return UnknownEvent{EventMeta: EventMeta{raw: raw}}
	}
	decoded, err := linewebhook.UnmarshalEvent(raw)
	if err != nil {
		return UnknownEvent{EventMeta: EventMeta{raw: raw}, Type: env.Type}
	}

	switch e := decoded.(type) {
	case linewebhook.MessageEvent:
		meta := newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)
		return MessageEvent{EventMeta: meta, ReplyToken: e.ReplyToken, Message: convertMessage(e.Message, env.Message)}
	case linewebhook.FollowEvent:
		meta := newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)
		return FollowEvent{EventMeta: meta, ReplyToken: e.ReplyToken}
	case linewebhook.UnfollowEvent:
		return UnfollowEvent{EventMeta: newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)}
	case linewebhook.JoinEvent:
		meta := newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)
		return JoinEvent{EventMeta: meta, ReplyToken: e.ReplyToken}
	case linewebhook.LeaveEvent:
		return LeaveEvent{EventMeta: newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)}
	case linewebhook.PostbackEvent:
		meta := newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)
		if e.Postback == nil {
			return UnknownEvent{EventMeta: meta, Type: env.Type}
		}
		return PostbackEvent{EventMeta: meta, ReplyToken: e.ReplyToken, Postback: convertPostback(e.Postback)}
	case linewebhook.BeaconEvent:
		meta := newMeta(raw, e.Source, e.Timestamp, string(e.Mode), e.WebhookEventId, e.DeliveryContext)
		if e.Beacon == nil {
			return UnknownEvent{EventMeta: meta, Type: env.Type}
		}
		return BeaconEvent{EventMeta: meta, ReplyToken: e.ReplyToken, Beacon: Beacon{
			HWID: e.Beacon.Hwid,
			Type: string(e.Beacon.Type),
			DM:   e.Beacon.Dm,
		}}
	default:
		return UnknownEvent{EventMeta: EventMeta{raw: raw}, Type: env.Type}
	}
}

func newMeta(raw json.RawMessage, src linewebhook.SourceInterface, ts int64, mode, eventID string, dc *linewebhook.DeliveryContext) EventMeta {
	meta := EventMeta{
		Timestamp:      ts,
		Mode:           mode,
		WebhookEventID: eventID,
		Source:         convertSource(src),
		raw:            raw,
	}
	if dc != nil {
		meta.IsRedelivery = dc.IsRedelivery
	}
	return meta
}

func convertSource(src linewebhook.SourceInterface) Source {
	switch s := src.(type) {
	case linewebhook.UserSource:
		return UserSource{UserID: s.UserId}
	case linewebhook.GroupSource:
		return GroupSource{GroupID: s.GroupId, UserID: s.UserId}
	case linewebhook.RoomSource:
		return RoomSource{RoomID: s.RoomId, UserID: s.UserId}
	default:
		return nil
	}
}

func convertPostback(p *linewebhook.PostbackContent) Postback {
	out := Postback{Data: p.Data}
	if len(p.Params) > 0 {
		out.Params = &PostbackParams{
			Date:     p.Params["date"],
			Time:     p.Params["time"],
			Datetime: p.Params["datetime"],
		}
	}
	return out
}

// DecodeMessage converts a raw message payload into its typed form.
func DecodeMessage(raw json.RawMessage) Message {
	if len(bytes.TrimSpace(raw)) == 0 {
		return UnknownMessage{Raw: raw}
	}
	content, err := linewebhook.UnmarshalMessageContent(raw)
	if err != nil {
		return unknownMessage(raw)
	}
	return convertMessage(content, raw)
}

func convertMessage(content linewebhook.MessageContentInterface, raw json.RawMessage) Message {
	switch m := content.(type) {
	case linewebhook.TextMessageContent:
		return TextMessage{ID: m.Id, Text: m.Text}
	case linewebhook.ImageMessageContent:
		if provider, ok := convertProvider(m.ContentProvider); ok {
			return ImageMessage{ID: m.Id, Provider: provider}
		}
	case linewebhook.VideoMessageContent:
		if provider, ok := convertProvider(m.ContentProvider); ok {
			return VideoMessage{ID: m.Id, Duration: m.Duration, Provider: provider}
		}
	case linewebhook.AudioMessageContent:
		if provider, ok := convertProvider(m.ContentProvider); ok {
			return AudioMessage{ID: m.Id, Duration: m.Duration, Provider: provider}
		}
	case linewebhook.LocationMessageContent:
		return LocationMessage{
			ID:        m.Id,
			Title:     m.Title,
			Address:   m.Address,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		}
	case linewebhook.StickerMessageContent:
		return StickerMessage{ID: m.Id, PackageID: m.PackageId, StickerID: m.StickerId}
	}
	return unknownMessage(raw)
}

func unknownMessage(raw json.RawMessage) UnknownMessage {
	var head wireMessageHead
	_ = json.Unmarshal(raw, &head)
	return UnknownMessage{ID: head.ID, Type: head.Type, Raw: raw}
}

func convertProvider(cp *linewebhook.ContentProvider) (ContentProvider, bool) {
	if cp == nil {
		return nil, false
	}
	switch string(cp.Type) {
	case "line":
		return PlatformHosted{}, true
	case "external":
		return ExternallyHosted{
			OriginalContentURL: cp.OriginalContentUrl,
			PreviewImageURL:    cp.PreviewImageUrl,
		}, true
	default:
		return nil, false
	}
}

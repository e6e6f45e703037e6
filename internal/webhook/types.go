// Package webhook models the inbound callback payload of the messaging
// platform. Events, sources, messages and content providers are closed sets:
// each is a sealed interface whose implementations live in this package, and
// every union carries an explicit Unknown arm for unrecognised discriminants.
package webhook

import "encoding/json"

// EventKind is the discriminant of an inbound event.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventFollow   EventKind = "follow"
	EventUnfollow EventKind = "unfollow"
	EventJoin     EventKind = "join"
	EventLeave    EventKind = "leave"
	EventPostback EventKind = "postback"
	EventBeacon   EventKind = "beacon"
)

// Event is one entry of a callback batch.
type Event interface {
	Kind() EventKind
	Meta() EventMeta
	// Raw returns the event exactly as received.
	Raw() json.RawMessage
	isEvent()
}

// EventMeta holds the fields shared by every event kind.
type EventMeta struct {
	Timestamp      int64
	Mode           string
	WebhookEventID string
	IsRedelivery   bool
	Source         Source
	raw            json.RawMessage
}

func (m EventMeta) Meta() EventMeta      { return m }
func (m EventMeta) Raw() json.RawMessage { return m.raw }

// MessageEvent carries a user message.
type MessageEvent struct {
	EventMeta
	ReplyToken string
	Message    Message
}

// FollowEvent is sent when a user adds the bot as a friend.
type FollowEvent struct {
	EventMeta
	ReplyToken string
}

// UnfollowEvent is sent when a user blocks the bot. It has no reply token.
type UnfollowEvent struct {
	EventMeta
}

// JoinEvent is sent when the bot joins a group or room.
type JoinEvent struct {
	EventMeta
	ReplyToken string
}

// LeaveEvent is sent when the bot is removed from a group or room.
type LeaveEvent struct {
	EventMeta
}

// PostbackEvent carries the data of a postback action.
type PostbackEvent struct {
	EventMeta
	ReplyToken string
	Postback   Postback
}

// BeaconEvent is sent when a user enters the range of a beacon.
type BeaconEvent struct {
	EventMeta
	ReplyToken string
	Beacon     Beacon
}

// UnknownEvent holds an event whose type this package does not recognise.
type UnknownEvent struct {
	EventMeta
	Type string
}

func (MessageEvent) Kind() EventKind  { return EventMessage }
func (FollowEvent) Kind() EventKind   { return EventFollow }
func (UnfollowEvent) Kind() EventKind { return EventUnfollow }
func (JoinEvent) Kind() EventKind     { return EventJoin }
func (LeaveEvent) Kind() EventKind    { return EventLeave }
func (PostbackEvent) Kind() EventKind { return EventPostback }
func (BeaconEvent) Kind() EventKind   { return EventBeacon }
func (e UnknownEvent) Kind() EventKind {
	return EventKind(e.Type)
}

func (MessageEvent) isEvent()  {}
func (FollowEvent) isEvent()   {}
func (UnfollowEvent) isEvent() {}
func (JoinEvent) isEvent()     {}
func (LeaveEvent) isEvent()    {}
func (PostbackEvent) isEvent() {}
func (BeaconEvent) isEvent()   {}
func (UnknownEvent) isEvent()  {}

// Postback is the payload of a postback action.
type Postback struct {
	Data   string          `json:"data"`
	Params *PostbackParams `json:"params,omitempty"`
}

// PostbackParams carries the value chosen in a datetime picker.
type PostbackParams struct {
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Datetime string `json:"datetime,omitempty"`
}

// Beacon identifies the beacon that triggered a BeaconEvent.
type Beacon struct {
	HWID string `json:"hwid"`
	Type string `json:"type"`
	DM   string `json:"dm,omitempty"`
}

// SourceKind is the discriminant of an event source.
type SourceKind string

const (
	SourceUser  SourceKind = "user"
	SourceGroup SourceKind = "group"
	SourceRoom  SourceKind = "room"
)

// Source identifies where an event originated.
type Source interface {
	Kind() SourceKind
	isSource()
}

type UserSource struct {
	UserID string
}

type GroupSource struct {
	GroupID string
	UserID  string
}

type RoomSource struct {
	RoomID string
	UserID string
}

func (UserSource) Kind() SourceKind  { return SourceUser }
func (GroupSource) Kind() SourceKind { return SourceGroup }
func (RoomSource) Kind() SourceKind  { return SourceRoom }

func (UserSource) isSource()  {}
func (GroupSource) isSource() {}
func (RoomSource) isSource()  {}

// UserIDOf returns the user identifier attached to a source, if any. Group
// and room sources omit it when the user has not consented to sharing it.
func UserIDOf(src Source) string {
	switch s := src.(type) {
	case UserSource:
		return s.UserID
	case GroupSource:
		return s.UserID
	case RoomSource:
		return s.UserID
	default:
		return ""
	}
}

// MessageKind is the discriminant of a message payload.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageImage    MessageKind = "image"
	MessageVideo    MessageKind = "video"
	MessageAudio    MessageKind = "audio"
	MessageLocation MessageKind = "location"
	MessageSticker  MessageKind = "sticker"
)

// Message is the payload of a MessageEvent.
type Message interface {
	Kind() MessageKind
	MessageID() string
	isMessage()
}

type TextMessage struct {
	ID   string
	Text string
}

type ImageMessage struct {
	ID       string
	Provider ContentProvider
}

type VideoMessage struct {
	ID       string
	Duration int64
	Provider ContentProvider
}

type AudioMessage struct {
	ID       string
	Duration int64
	Provider ContentProvider
}

type LocationMessage struct {
	ID        string
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}

type StickerMessage struct {
	ID        string
	PackageID string
	StickerID string
}

// UnknownMessage holds a message whose type (or content provider) is not recognised.
type UnknownMessage struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

func (TextMessage) Kind() MessageKind     { return MessageText }
func (ImageMessage) Kind() MessageKind    { return MessageImage }
func (VideoMessage) Kind() MessageKind    { return MessageVideo }
func (AudioMessage) Kind() MessageKind    { return MessageAudio }
func (LocationMessage) Kind() MessageKind { return MessageLocation }
func (StickerMessage) Kind() MessageKind  { return MessageSticker }
func (m UnknownMessage) Kind() MessageKind {
	return MessageKind(m.Type)
}

func (m TextMessage) MessageID() string     { return m.ID }
func (m ImageMessage) MessageID() string    { return m.ID }
func (m VideoMessage) MessageID() string    { return m.ID }
func (m AudioMessage) MessageID() string    { return m.ID }
func (m LocationMessage) MessageID() string { return m.ID }
func (m StickerMessage) MessageID() string  { return m.ID }
func (m UnknownMessage) MessageID() string  { return m.ID }

func (TextMessage) isMessage()     {}
func (ImageMessage) isMessage()    {}
func (VideoMessage) isMessage()    {}
func (AudioMessage) isMessage()    {}
func (LocationMessage) isMessage() {}
func (StickerMessage) isMessage()  {}
func (UnknownMessage) isMessage()  {}

// ContentProvider tells whether media bytes must be fetched from the platform.
type ContentProvider interface {
	isContentProvider()
}

// PlatformHosted content is retrieved through the content API.
type PlatformHosted struct{}

// ExternallyHosted content already has usable URLs.
type ExternallyHosted struct {
	OriginalContentURL string
	PreviewImageURL    string
}

func (PlatformHosted) isContentProvider()   {}
func (ExternallyHosted) isContentProvider() {}

// Batch is a decoded callback request body.
type Batch struct {
	Destination string
	Events      []Event
}

// Package bot routes inbound webhook events to reply handlers.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/kitchensink/internal/media"
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/metrics"
	"github.com/memohai/kitchensink/internal/templates"
	"github.com/memohai/kitchensink/internal/webhook"
)

// ContentFetcher downloads platform-hosted media into the public directory.
type ContentFetcher interface {
	Fetch(ctx context.Context, messageID string, kind media.MediaType) (media.Asset, error)
}

// PreviewMaker derives a preview image from a downloaded original.
type PreviewMaker interface {
	Preview(ctx context.Context, src media.Asset) (media.Asset, error)
}

// RouterConfig holds the process settings the handlers read.
type RouterConfig struct {
	// BaseURL is the public origin, without a trailing slash.
	BaseURL string
	// EnableBye turns on the "bye" leave command.
	EnableBye bool
}

// Router dispatches one event to the handler for its kind.
type Router struct {
	sender    *messaging.Sender
	templates *templates.Store
	fetcher   ContentFetcher
	previews  PreviewMaker
	cfg       RouterConfig
	logger    *slog.Logger
}

// NewRouter creates a router. A nil store disables template replies.
func NewRouter(log *slog.Logger, sender *messaging.Sender, store *templates.Store, fetcher ContentFetcher, previews PreviewMaker, cfg RouterConfig) *Router {
	if log == nil {
		log = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Router{
		sender:    sender,
		templates: store,
		fetcher:   fetcher,
		previews:  previews,
		cfg:       cfg,
		logger:    log.With(slog.String("service", "router")),
	}
}

// Route handles event and reports what was done.
func (r *Router) Route(ctx context.Context, event webhook.Event) (Outcome, error) {
	kind := event.Kind()
	metrics.EventsTotal.WithLabelValues(metricKind(event)).Inc()
	out, err := r.route(ctx, event)
	if err != nil {
		metrics.EventFailures.WithLabelValues(metricKind(event)).Inc()
		return Outcome{}, fmt.Errorf("%s event: %w", kind, err)
	}
	return out, nil
}

func (r *Router) route(ctx context.Context, event webhook.Event) (Outcome, error) {
	log := loggerFrom(ctx, r.logger)

	if e, ok := event.(webhook.MessageEvent); ok && IsSentinelToken(e.ReplyToken) {
		log.Info("test hook received", slog.String("reply_token", e.ReplyToken), slog.String("message", string(messageRaw(e))))
		return Outcome{Event: webhook.EventMessage, Action: ActionIgnored}, nil
	}

	switch e := event.(type) {
	case webhook.MessageEvent:
		return r.handleMessage(ctx, e)
	case webhook.FollowEvent:
		return r.replyText(ctx, e.Kind(), e.ReplyToken, "Got followed event")
	case webhook.UnfollowEvent:
		log.Info("unfollowed this bot", slog.String("event", string(e.Raw())))
		return logged(e.Kind()), nil
	case webhook.JoinEvent:
		return r.replyText(ctx, e.Kind(), e.ReplyToken, "Joined "+sourceKind(e.Source))
	case webhook.LeaveEvent:
		log.Info("left", slog.String("event", string(e.Raw())))
		return logged(e.Kind()), nil
	case webhook.PostbackEvent:
		return r.handlePostback(ctx, e)
	case webhook.BeaconEvent:
		return r.replyText(ctx, e.Kind(), e.ReplyToken, "Got beacon: "+e.Beacon.HWID)
	case webhook.UnknownEvent:
		return Outcome{}, &UnknownKindError{Kind: ErrUnknownEventKind, Type: e.Type, Raw: e.Raw()}
	default:
		return Outcome{}, &UnknownKindError{Kind: ErrUnknownEventKind, Type: string(event.Kind()), Raw: event.Raw()}
	}
}

func (r *Router) handleMessage(ctx context.Context, e webhook.MessageEvent) (Outcome, error) {
	switch m := e.Message.(type) {
	case webhook.TextMessage:
		return r.handleText(ctx, m, e.ReplyToken, e.Source)
	case webhook.ImageMessage:
		return r.handleImage(ctx, m, e.ReplyToken)
	case webhook.VideoMessage:
		return r.handleVideo(ctx, m, e.ReplyToken)
	case webhook.AudioMessage:
		return r.handleAudio(ctx, m, e.ReplyToken)
	case webhook.LocationMessage:
		return r.reply(ctx, e.Kind(), e.ReplyToken, messaging.LocationMessage{
			Title:     m.Title,
			Address:   m.Address,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	case webhook.StickerMessage:
		return r.reply(ctx, e.Kind(), e.ReplyToken, messaging.StickerMessage{
			PackageID: m.PackageID,
			StickerID: m.StickerID,
		})
	case webhook.UnknownMessage:
		return Outcome{}, &UnknownKindError{Kind: ErrUnknownMessageKind, Type: m.Type, Raw: m.Raw}
	default:
		return Outcome{}, &UnknownKindError{Kind: ErrUnknownMessageKind, Type: fmt.Sprintf("%T", m), Raw: messageRaw(e)}
	}
}

// Postbacks from datetime pickers carry the chosen value in params.
var datetimePostbacks = map[string]struct{}{"DATE": {}, "TIME": {}, "DATETIME": {}}

func (r *Router) handlePostback(ctx context.Context, e webhook.PostbackEvent) (Outcome, error) {
	data := e.Postback.Data
	if _, ok := datetimePostbacks[data]; ok {
		params, err := json.Marshal(e.Postback.Params)
		if err != nil {
			return Outcome{}, fmt.Errorf("encode postback params: %w", err)
		}
		data += "(" + string(params) + ")"
	}
	return r.replyText(ctx, e.Kind(), e.ReplyToken, "Got postback: "+data)
}

func (r *Router) replyText(ctx context.Context, kind webhook.EventKind, token string, texts ...string) (Outcome, error) {
	result, err := r.sender.ReplyText(ctx, token, texts...)
	if err != nil {
		return Outcome{}, err
	}
	return replied(kind, result), nil
}

func (r *Router) reply(ctx context.Context, kind webhook.EventKind, token string, msgs ...messaging.Message) (Outcome, error) {
	result, err := r.sender.Reply(ctx, token, msgs...)
	if err != nil {
		return Outcome{}, err
	}
	return replied(kind, result), nil
}

// IsSentinelToken reports whether token is a non-empty run of one repeated
// character, the form the platform uses for webhook verification probes.
func IsSentinelToken(token string) bool {
	if token == "" {
		return false
	}
	var first rune
	for i, c := range token {
		if i == 0 {
			first = c
			continue
		}
		if c != first {
			return false
		}
	}
	return true
}

func sourceKind(src webhook.Source) string {
	if src == nil {
		return "unknown"
	}
	return string(src.Kind())
}

func messageRaw(e webhook.MessageEvent) json.RawMessage {
	if m, ok := e.Message.(webhook.UnknownMessage); ok && len(m.Raw) > 0 {
		return m.Raw
	}
	var wrapper struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(e.Raw(), &wrapper); err == nil && len(wrapper.Message) > 0 {
		return wrapper.Message
	}
	return e.Raw()
}

// metricKind keeps label cardinality bounded for unrecognised event types.
func metricKind(event webhook.Event) string {
	if _, ok := event.(webhook.UnknownEvent); ok {
		return "unknown"
	}
	return string(event.Kind())
}

package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/memohai/kitchensink/internal/media"
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/webhook"
)

var errMediaUnavailable = errors.New("media pipeline is not configured")

func (r *Router) handleImage(ctx context.Context, m webhook.ImageMessage, token string) (Outcome, error) {
	switch p := m.Provider.(type) {
	case webhook.ExternallyHosted:
		return r.reply(ctx, webhook.EventMessage, token, messaging.ImageMessage{
			OriginalContentURL: p.OriginalContentURL,
			PreviewImageURL:    p.PreviewImageURL,
		})
	case webhook.PlatformHosted:
		original, preview, err := r.rehost(ctx, m.ID, media.MediaTypeImage)
		if err != nil {
			return Outcome{}, err
		}
		return r.reply(ctx, webhook.EventMessage, token, messaging.ImageMessage{
			OriginalContentURL: original,
			PreviewImageURL:    preview,
		})
	default:
		return Outcome{}, unknownProvider(m)
	}
}

func (r *Router) handleVideo(ctx context.Context, m webhook.VideoMessage, token string) (Outcome, error) {
	switch p := m.Provider.(type) {
	case webhook.ExternallyHosted:
		return r.reply(ctx, webhook.EventMessage, token, messaging.VideoMessage{
			OriginalContentURL: p.OriginalContentURL,
			PreviewImageURL:    p.PreviewImageURL,
		})
	case webhook.PlatformHosted:
		original, preview, err := r.rehost(ctx, m.ID, media.MediaTypeVideo)
		if err != nil {
			return Outcome{}, err
		}
		return r.reply(ctx, webhook.EventMessage, token, messaging.VideoMessage{
			OriginalContentURL: original,
			PreviewImageURL:    preview,
		})
	default:
		return Outcome{}, unknownProvider(m)
	}
}

func (r *Router) handleAudio(ctx context.Context, m webhook.AudioMessage, token string) (Outcome, error) {
	var original string
	switch p := m.Provider.(type) {
	case webhook.ExternallyHosted:
		original = p.OriginalContentURL
	case webhook.PlatformHosted:
		if r.fetcher == nil {
			return Outcome{}, errMediaUnavailable
		}
		asset, err := r.fetcher.Fetch(ctx, m.ID, media.MediaTypeAudio)
		if err != nil {
			return Outcome{}, err
		}
		original = r.publicURL(asset)
	default:
		return Outcome{}, unknownProvider(m)
	}
	return r.reply(ctx, webhook.EventMessage, token, messaging.AudioMessage{
		OriginalContentURL: original,
		Duration:           m.Duration,
	})
}

// rehost downloads the original and derives its preview, returning both public URLs.
func (r *Router) rehost(ctx context.Context, messageID string, kind media.MediaType) (string, string, error) {
	if r.fetcher == nil || r.previews == nil {
		return "", "", errMediaUnavailable
	}
	original, err := r.fetcher.Fetch(ctx, messageID, kind)
	if err != nil {
		return "", "", err
	}
	preview, err := r.previews.Preview(ctx, original)
	if err != nil {
		return "", "", err
	}
	return r.publicURL(original), r.publicURL(preview), nil
}

func (r *Router) publicURL(asset media.Asset) string {
	return r.cfg.BaseURL + asset.URLPath
}

func unknownProvider(m webhook.Message) error {
	return &UnknownKindError{
		Kind: ErrUnknownMessageKind,
		Type: fmt.Sprintf("%s with unrecognised content provider", m.Kind()),
	}
}

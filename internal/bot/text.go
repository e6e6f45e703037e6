package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/kitchensink/internal/prune"
	"github.com/memohai/kitchensink/internal/templates"
	"github.com/memohai/kitchensink/internal/webhook"
)

const (
	commandProfile = "profile"
	commandBye     = "bye"
)

// handleText applies, in order: the profile command, the bye command, a
// template lookup, and finally an echo of the text.
func (r *Router) handleText(ctx context.Context, m webhook.TextMessage, token string, src webhook.Source) (Outcome, error) {
	switch {
	case m.Text == commandProfile:
		return r.replyProfile(ctx, token, src)
	case m.Text == commandBye && r.cfg.EnableBye:
		return r.leave(ctx, token, src)
	}

	if r.templates != nil {
		msgs, ok, err := r.templates.Resolve(m.Text, templates.BaseURL(r.cfg.BaseURL))
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			return r.reply(ctx, webhook.EventMessage, token, msgs...)
		}
	}

	loggerFrom(ctx, r.logger).Info("echo message", slog.String("reply_token", token), slog.String("text", prune.Edges(m.Text, 256, 64)))
	return r.replyText(ctx, webhook.EventMessage, token, m.Text)
}

func (r *Router) replyProfile(ctx context.Context, token string, src webhook.Source) (Outcome, error) {
	userID := webhook.UserIDOf(src)
	if userID == "" {
		return r.replyText(ctx, webhook.EventMessage, token, "Bot can't use profile API without user ID")
	}
	profile, err := r.sender.Transport().GetProfile(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get profile: %w", err)
	}
	return r.replyText(ctx, webhook.EventMessage, token,
		"Display name: "+profile.DisplayName,
		"Picture: "+profile.PictureURL,
		"Status message: "+profile.StatusMessage,
	)
}

// leave replies first and only then leaves, so the reply is still deliverable.
func (r *Router) leave(ctx context.Context, token string, src webhook.Source) (Outcome, error) {
	transport := r.sender.Transport()
	switch s := src.(type) {
	case webhook.UserSource:
		return r.replyText(ctx, webhook.EventMessage, token, "Bot can't leave from 1:1 chat")
	case webhook.GroupSource:
		out, err := r.replyText(ctx, webhook.EventMessage, token, "Leaving group")
		if err != nil {
			return Outcome{}, err
		}
		if err := transport.LeaveGroup(ctx, s.GroupID); err != nil {
			return Outcome{}, fmt.Errorf("leave group: %w", err)
		}
		return out, nil
	case webhook.RoomSource:
		out, err := r.replyText(ctx, webhook.EventMessage, token, "Leaving room")
		if err != nil {
			return Outcome{}, err
		}
		if err := transport.LeaveRoom(ctx, s.RoomID); err != nil {
			return Outcome{}, fmt.Errorf("leave room: %w", err)
		}
		return out, nil
	default:
		loggerFrom(ctx, r.logger).Warn("bye from event without source")
		return logged(webhook.EventMessage), nil
	}
}

package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender issues reply calls. It never retries; retry policy belongs to the caller.
type Sender struct {
	transport Transport
	logger    *slog.Logger
}

// NewSender creates a Sender over transport.
func NewSender(log *slog.Logger, transport Transport) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		transport: transport,
		logger:    log.With(slog.String("service", "reply_sender")),
	}
}

// ReplyText replies with one text payload per string, in order, using
// exactly one transport call.
func (s *Sender) ReplyText(ctx context.Context, replyToken string, texts ...string) (DeliveryResult, error) {
	return s.Reply(ctx, replyToken, TextMessages(texts...)...)
}

// Reply sends arbitrary payloads with exactly one transport call.
func (s *Sender) Reply(ctx context.Context, replyToken string, messages ...Message) (DeliveryResult, error) {
	if len(messages) == 0 {
		return DeliveryResult{}, fmt.Errorf("at least one message is required")
	}
	result, err := s.transport.ReplyMessage(ctx, replyToken, messages)
	if err != nil {
		return DeliveryResult{}, err
	}
	s.logger.Debug("reply delivered", slog.Int("messages", len(messages)), slog.String("request_id", result.RequestID))
	return result, nil
}

// Transport exposes the underlying transport for non-reply calls.
func (s *Sender) Transport() Transport {
	return s.transport
}

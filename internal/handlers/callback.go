package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/kitchensink/internal/bot"
	"github.com/memohai/kitchensink/internal/webhook"
)

// ListeningMessage is the body of GET /callback.
const ListeningMessage = "I'm listening. Please access with POST."

// CallbackProcessor handles a verified callback body.
type CallbackProcessor interface {
	HandleCallback(ctx context.Context, body []byte) ([]bot.Outcome, error)
}

// CallbackHandler serves the platform webhook endpoint.
type CallbackHandler struct {
	processor CallbackProcessor
	secret    string
	logger    *slog.Logger
}

func NewCallbackHandler(log *slog.Logger, processor CallbackProcessor, channelSecret string) *CallbackHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CallbackHandler{
		processor: processor,
		secret:    channelSecret,
		logger:    log.With(slog.String("handler", "callback")),
	}
}

func (h *CallbackHandler) Register(e *echo.Echo) {
	e.GET("/callback", h.Listening)
	e.POST("/callback", h.Callback, webhook.Middleware(h.secret))
}

func (h *CallbackHandler) Listening(c echo.Context) error {
	return c.String(http.StatusOK, ListeningMessage)
}

// Callback responds 200 with the per-event outcomes, or 500 with an empty
// body when the batch is malformed or any event fails.
func (h *CallbackHandler) Callback(c echo.Context) error {
	body, ok := webhook.Body(c)
	if !ok {
		h.logger.Error("callback body missing from context")
		return c.NoContent(http.StatusInternalServerError)
	}
	outcomes, err := h.processor.HandleCallback(c.Request().Context(), body)
	if err != nil {
		h.logger.Error("callback failed", slog.Any("error", err))
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, outcomes)
}

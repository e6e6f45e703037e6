package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/memohai/kitchensink/internal/webhook"
)

// EventRouter routes a single event.
type EventRouter interface {
	Route(ctx context.Context, event webhook.Event) (Outcome, error)
}

// OrchestratorConfig tunes batch handling.
type OrchestratorConfig struct {
	// EventTimeout bounds each event handler. Zero means no bound.
	EventTimeout time.Duration
}

// Orchestrator fans a callback batch out to the router.
type Orchestrator struct {
	router EventRouter
	cfg    OrchestratorConfig
	logger *slog.Logger
}

func NewOrchestrator(log *slog.Logger, router EventRouter, cfg OrchestratorConfig) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		router: router,
		cfg:    cfg,
		logger: log.With(slog.String("service", "orchestrator")),
	}
}

// HandleCallback decodes body and handles the batch. A malformed body
// returns an error wrapping webhook.ErrMalformedBatch and dispatches nothing.
func (o *Orchestrator) HandleCallback(ctx context.Context, body []byte) ([]Outcome, error) {
	batch, err := webhook.ParseBatch(body)
	if err != nil {
		o.logger.Warn("rejected callback", slog.Any("error", err))
		return nil, err
	}
	return o.Handle(ctx, batch)
}

// Handle routes every event concurrently and returns their outcomes in event
// order. Handlers are not cancelled when a sibling fails or the caller goes
// away; the first error observed fails the whole batch.
func (o *Orchestrator) Handle(ctx context.Context, batch webhook.Batch) ([]Outcome, error) {
	batchID := uuid.NewString()
	log := o.logger.With(slog.String("batch_id", batchID))
	if batch.Destination != "" {
		log.Info("destination user id", slog.String("destination", batch.Destination))
	}

	ctx = withBatchID(context.WithoutCancel(ctx), batchID)
	outcomes := make([]Outcome, len(batch.Events))
	var g errgroup.Group
	for i, event := range batch.Events {
		g.Go(func() error {
			eventCtx := ctx
			if o.cfg.EventTimeout > 0 {
				var cancel context.CancelFunc
				eventCtx, cancel = context.WithTimeout(ctx, o.cfg.EventTimeout)
				defer cancel()
			}
			out, err := o.router.Route(eventCtx, event)
			if err != nil {
				log.Error("event handling failed",
					slog.Int("index", i),
					slog.String("kind", string(event.Kind())),
					slog.Any("error", err),
				)
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug("batch handled", slog.Int("events", len(outcomes)))
	return outcomes, nil
}

type batchIDKey struct{}

func withBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchID returns the correlation id of the batch ctx belongs to.
func BatchID(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// loggerFrom scopes log to the batch ctx belongs to.
func loggerFrom(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id := BatchID(ctx); id != "" {
		return log.With(slog.String("batch_id", id))
	}
	return log
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/memohai/kitchensink/internal/metrics"
)

// DefaultRetentionSchedule runs the sweep hourly.
const DefaultRetentionSchedule = "@every 1h"

// RetentionPolicy bounds the download directory. Zero disables a bound.
type RetentionPolicy struct {
	MaxAge   time.Duration
	MaxBytes int64
}

// SweepResult summarises one retention pass.
type SweepResult struct {
	Scanned        int   `json:"scanned"`
	Evicted        int   `json:"evicted"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

// Retention periodically evicts downloaded files.
type Retention struct {
	provider StorageProvider
	policy   RetentionPolicy
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRetention validates schedule and returns a stopped sweeper.
func NewRetention(log *slog.Logger, provider StorageProvider, policy RetentionPolicy, schedule string) (*Retention, error) {
	if log == nil {
		log = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return &Retention{
		provider: provider,
		policy:   policy,
		schedule: schedule,
		logger:   log.With(slog.String("service", "media_retention")),
		now:      time.Now,
	}, nil
}

// Start schedules the sweep. Calling it twice has no effect.
func (r *Retention) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}
	c := cron.New(cron.WithLogger(cronLogger{r.logger}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.logger})))
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.Sweep(context.Background()); err != nil {
			r.logger.Error("retention sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("retention scheduled",
		slog.String("schedule", r.schedule),
		slog.Duration("max_age", r.policy.MaxAge),
		slog.Int64("max_bytes", r.policy.MaxBytes),
	)
	return nil
}

// Stop halts scheduling and waits for a running sweep.
func (r *Retention) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep removes files older than MaxAge, then the oldest files until the
// total size is within MaxBytes.
func (r *Retention) Sweep(ctx context.Context) (SweepResult, error) {
	if r.provider == nil {
		return SweepResult{}, ErrProviderUnavailable
	}
	objects, err := r.provider.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Scanned: len(objects)}
	sort.SliceStable(objects, func(i, j int) bool { return objects[i].ModTime.Before(objects[j].ModTime) })

	kept := make([]Object, 0, len(objects))
	if r.policy.MaxAge > 0 {
		cutoff := r.now().Add(-r.policy.MaxAge)
		for _, obj := range objects {
			if obj.ModTime.Before(cutoff) {
				if err := r.evict(ctx, obj, "max_age"); err != nil {
					return result, err
				}
				result.Evicted++
				continue
			}
			kept = append(kept, obj)
		}
	} else {
		kept = append(kept, objects...)
	}

	var total int64
	for _, obj := range kept {
		total += obj.SizeBytes
	}
	if r.policy.MaxBytes > 0 {
		for len(kept) > 0 && total > r.policy.MaxBytes {
			oldest := kept[0]
			if err := r.evict(ctx, oldest, "max_bytes"); err != nil {
				return result, err
			}
			result.Evicted++
			total -= oldest.SizeBytes
			kept = kept[1:]
		}
	}
	result.RemainingBytes = total
	if result.Evicted > 0 {
		r.logger.Info("retention sweep",
			slog.Int("scanned", result.Scanned),
			slog.Int("evicted", result.Evicted),
			slog.Int64("remaining_bytes", total),
		)
	}
	return result, nil
}

func (r *Retention) evict(ctx context.Context, obj Object, reason string) error {
	if err := r.provider.Delete(ctx, obj.Key); err != nil {
		return fmt.Errorf("evict %s: %w", obj.Key, err)
	}
	metrics.MediaEvicted.Inc()
	r.logger.Debug("evicted", slog.String("key", obj.Key), slog.String("reason", reason))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}

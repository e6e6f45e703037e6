package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/memohai/kitchensink/internal/metrics"
)

const (
	// DefaultBinary is the ImageMagick conversion utility.
	DefaultBinary  = "convert"
	DefaultWorkers = 2

	previewSuffix = "-preview.jpg"
)

// Runner executes a conversion process and returns its stderr. Tests swap in
// a fake implementation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return bytes.TrimSpace(stderr.Bytes()), err
}

// TranscoderConfig tunes the worker pool.
type TranscoderConfig struct {
	Binary  string
	Workers int
}

type transcodeJob struct {
	ctx  context.Context
	args []string
	done chan transcodeResult
}

type transcodeResult struct {
	stderr []byte
	err    error
}

// Transcoder produces preview images on a bounded pool of workers so that
// conversion processes never run on request goroutines.
type Transcoder struct {
	provider StorageProvider
	runner   Runner
	binary   string
	workers  int
	logger   *slog.Logger

	jobs      chan transcodeJob
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewTranscoder creates a transcoder. A nil runner uses ExecRunner.
func NewTranscoder(log *slog.Logger, provider StorageProvider, runner Runner, cfg TranscoderConfig) *Transcoder {
	if log == nil {
		log = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Transcoder{
		provider: provider,
		runner:   runner,
		binary:   cfg.Binary,
		workers:  cfg.Workers,
		logger:   log.With(slog.String("service", "media_transcoder")),
		jobs:     make(chan transcodeJob),
		stopped:  make(chan struct{}),
	}
}

// Start launches the workers. Calling it again has no effect.
func (t *Transcoder) Start() {
	t.startOnce.Do(func() {
		for i := 0; i < t.workers; i++ {
			t.wg.Add(1)
			go t.worker()
		}
		t.logger.Info("transcoder started", slog.Int("workers", t.workers), slog.String("binary", t.binary))
	})
}

// Stop rejects new submissions and waits for running jobs to finish.
func (t *Transcoder) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.stopped) })
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transcoder) worker() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopped:
			return
		case job := <-t.jobs:
			stderr, err := t.runner.Run(job.ctx, t.binary, job.args...)
			job.done <- transcodeResult{stderr: stderr, err: err}
		}
	}
}

// PreviewKey returns the preview storage key for an original key: "<id>.mp4" → "<id>-preview.jpg".
func PreviewKey(key string) string {
	if idx := strings.LastIndexByte(key, '.'); idx > 0 {
		key = key[:idx]
	}
	return key + previewSuffix
}

// Preview converts src into a 240px-wide JPEG (image) or the first frame as
// JPEG (video). Audio has no preview and returns ErrNoPreview.
func (t *Transcoder) Preview(ctx context.Context, src Asset) (Asset, error) {
	if t.provider == nil {
		return Asset{}, ErrProviderUnavailable
	}
	dstKey := PreviewKey(src.Key)
	dstPath, err := t.provider.Path(dstKey)
	if err != nil {
		return Asset{}, err
	}
	var args []string
	switch src.MediaType {
	case MediaTypeImage:
		args = []string{"-resize", "240x", "jpeg:" + src.Path, "jpeg:" + dstPath}
	case MediaTypeVideo:
		args = []string{"mp4:" + src.Path + "[0]", "jpeg:" + dstPath}
	case MediaTypeAudio:
		return Asset{}, fmt.Errorf("%w: %s", ErrNoPreview, src.MediaType)
	default:
		return Asset{}, fmt.Errorf("%w: %q", ErrUnsupportedMedia, string(src.MediaType))
	}

	started := time.Now()
	stderr, err := t.submit(ctx, args)
	metrics.TranscodeDuration.WithLabelValues(string(src.MediaType)).Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, ErrTranscoderStopped) || ctx.Err() != nil {
			return Asset{}, err
		}
		terr := &TranscodeError{Media: src.MediaType, Args: args, Stderr: excerpt(stderr), Err: err}
		t.logger.Error("transcode failed", slog.String("key", src.Key), slog.Any("error", terr))
		return Asset{}, terr
	}

	obj, err := t.provider.Stat(ctx, dstKey)
	if err != nil {
		return Asset{}, &TranscodeError{Media: src.MediaType, Args: args, Err: fmt.Errorf("no output written: %w", err)}
	}
	return Asset{
		Key:       dstKey,
		Path:      dstPath,
		URLPath:   t.provider.AccessPath(dstKey),
		MediaType: MediaTypeImage,
		SizeBytes: obj.SizeBytes,
	}, nil
}

// submit hands a job to a worker and waits for its result or ctx.
func (t *Transcoder) submit(ctx context.Context, args []string) ([]byte, error) {
	select {
	case <-t.stopped:
		return nil, ErrTranscoderStopped
	default:
	}
	job := transcodeJob{ctx: ctx, args: args, done: make(chan transcodeResult, 1)}
	select {
	case t.jobs <- job:
	case <-t.stopped:
		return nil, ErrTranscoderStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-job.done:
		return res.stderr, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/kitchensink/internal/bot"
	"github.com/memohai/kitchensink/internal/config"
	"github.com/memohai/kitchensink/internal/handlers"
	"github.com/memohai/kitchensink/internal/healthcheck"
	"github.com/memohai/kitchensink/internal/logger"
	"github.com/memohai/kitchensink/internal/media"
	"github.com/memohai/kitchensink/internal/media/providers/localfs"
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/metrics"
	"github.com/memohai/kitchensink/internal/server"
	"github.com/memohai/kitchensink/internal/templates"
	"github.com/memohai/kitchensink/internal/version"
)

func runServe() error {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideTransport,
			messaging.NewSender,
			provideTemplates,
			provideStorage,
			provideFetcher,
			provideTranscoder,
			provideRetention,
			provideRouter,
			provideOrchestrator,
			provideServerHandler(providePingHandler),
			provideServerHandler(handlers.NewMetricsHandler),
			provideServerHandler(provideCallbackHandler),
			provideServerHandler(provideFilesHandler),
			provideServer,
		),
		fx.Invoke(
			startTranscoder,
			startRetention,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideTransport(log *slog.Logger, cfg config.Config) (messaging.Transport, error) {
	client, err := messaging.NewClient(log, messaging.ClientConfig{
		AccessToken:    cfg.Channel.AccessToken,
		APIBaseURL:     cfg.Channel.APIBaseURL,
		DataAPIBaseURL: cfg.Channel.DataAPIBaseURL,
		Timeout:        time.Duration(cfg.Channel.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func provideTemplates(log *slog.Logger, cfg config.Config) (*templates.Store, error) {
	store, err := templates.Load(cfg.Templates.Path)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	log.Info("templates loaded", slog.Int("keys", len(store.Keys())), slog.String("path", cfg.Templates.Path))
	return store, nil
}

func provideStorage(cfg config.Config) (*localfs.Provider, error) {
	return localfs.New(filepath.Join(cfg.Media.PublicDir, "downloaded"))
}

func provideFetcher(log *slog.Logger, transport messaging.Transport, provider *localfs.Provider, cfg config.Config) *media.Fetcher {
	return media.NewFetcher(log, transport, provider, cfg.Media.MaxBytes)
}

func provideTranscoder(log *slog.Logger, provider *localfs.Provider, cfg config.Config) *media.Transcoder {
	return media.NewTranscoder(log, provider, media.ExecRunner{}, media.TranscoderConfig{
		Binary:  cfg.Media.Transcoder.Binary,
		Workers: cfg.Media.Transcoder.Workers,
	})
}

func provideRetention(log *slog.Logger, provider *localfs.Provider, cfg config.Config) (*media.Retention, error) {
	rc := cfg.Media.Retention
	maxAge, err := rc.MaxAgeDuration()
	if err != nil {
		return nil, err
	}
	return media.NewRetention(log, provider, media.RetentionPolicy{MaxAge: maxAge, MaxBytes: rc.MaxBytes}, rc.Schedule)
}

func provideRouter(log *slog.Logger, sender *messaging.Sender, store *templates.Store, fetcher *media.Fetcher, transcoder *media.Transcoder, cfg config.Config) *bot.Router {
	return bot.NewRouter(log, sender, store, fetcher, transcoder, bot.RouterConfig{
		BaseURL:   cfg.Server.BaseURL,
		EnableBye: cfg.Bot.EnableBye,
	})
}

func provideOrchestrator(log *slog.Logger, router *bot.Router, cfg config.Config) (*bot.Orchestrator, error) {
	timeout, err := cfg.Bot.EventTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return bot.NewOrchestrator(log, router, bot.OrchestratorConfig{EventTimeout: timeout}), nil
}

func providePingHandler(log *slog.Logger, provider *localfs.Provider, store *templates.Store, cfg config.Config) *handlers.PingHandler {
	return handlers.NewPingHandler(log,
		healthcheck.WritableDir("media.downloads", provider.Root()),
		healthcheck.Binary(cfg.Media.Transcoder.Binary),
		healthcheck.Count("templates", len(store.Keys())),
	)
}

func provideCallbackHandler(log *slog.Logger, orchestrator *bot.Orchestrator, cfg config.Config) *handlers.CallbackHandler {
	return handlers.NewCallbackHandler(log, orchestrator, cfg.Channel.Secret)
}

func provideFilesHandler(log *slog.Logger, provider *localfs.Provider, cfg config.Config) *handlers.FilesHandler {
	return handlers.NewFilesHandler(log, cfg.Media.PublicDir, provider.Root())
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startTranscoder(lc fx.Lifecycle, transcoder *media.Transcoder) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { transcoder.Start(); return nil },
		OnStop:  func(ctx context.Context) error { return transcoder.Stop(ctx) },
	})
}

func startRetention(lc fx.Lifecycle, logger *slog.Logger, retention *media.Retention, cfg config.Config) {
	if !cfg.Media.Retention.Enabled {
		logger.Info("media retention disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return retention.Start() },
		OnStop:  func(ctx context.Context) error { return retention.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting kitchensink %s\n", version.GetInfo())
	metrics.Register()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

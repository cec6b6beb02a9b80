// Package server builds the watcher's dependencies and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/alert"
	"github.com/JakeFAU/profile-watcher/internal/api"
	"github.com/JakeFAU/profile-watcher/internal/classify"
	"github.com/JakeFAU/profile-watcher/internal/clock/system"
	"github.com/JakeFAU/profile-watcher/internal/config"
	"github.com/JakeFAU/profile-watcher/internal/extract"
	"github.com/JakeFAU/profile-watcher/internal/fetcher/headless"
	"github.com/JakeFAU/profile-watcher/internal/id/uuid"
	"github.com/JakeFAU/profile-watcher/internal/identity"
	"github.com/JakeFAU/profile-watcher/internal/ledger"
	"github.com/JakeFAU/profile-watcher/internal/metrics"
	"github.com/JakeFAU/profile-watcher/internal/monitor"
	"github.com/JakeFAU/profile-watcher/internal/scheduler"
	"github.com/JakeFAU/profile-watcher/internal/session"
	"github.com/JakeFAU/profile-watcher/internal/storage"
	gcsstorage "github.com/JakeFAU/profile-watcher/internal/storage/gcs"
	localstorage "github.com/JakeFAU/profile-watcher/internal/storage/local"
	memorystorage "github.com/JakeFAU/profile-watcher/internal/storage/memory"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     monitor.Clock
	gcs       *gcsclient.Client
	fetcher   *headless.Fetcher
	telegram  *alert.Telegram
	scheduler *scheduler.Scheduler
	apiServer *api.Server
}

// Build creates the application's dependencies. Chrome is not launched
// until the first cycle.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger, clock: system.New()}
	metrics.Init()

	app.logger.Info("building watcher",
		zap.String("source", cfg.SourceURL()),
		zap.Strings("keywords", cfg.Keywords),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	blobs, err := app.setupStorage(ctx)
	if err != nil {
		return nil, err
	}
	ledgerStore, err := ledger.NewStore(blobs, cfg.Ledger.File)
	if err != nil {
		return nil, fmt.Errorf("ledger store init failed: %w", err)
	}
	sessionStore, err := session.NewStore(blobs, cfg.Session.File, logger.Named("session"))
	if err != nil {
		return nil, fmt.Errorf("session store init failed: %w", err)
	}

	profile, err := identity.New(cfg.Profile())
	if err != nil {
		return nil, fmt.Errorf("identity profile invalid: %w", err)
	}
	app.fetcher, err = headless.NewChromedp(cfg.FetcherConfig(), logger.Named("fetcher"))
	if err != nil {
		return nil, fmt.Errorf("headless fetcher init failed: %w", err)
	}
	extractor := extract.New(cfg.ExtractorConfig(), logger.Named("extract"))
	app.telegram = alert.New(cfg.TelegramConfig(), logger.Named("alert"))

	schedCfg := scheduler.Config{
		SourceURL:     cfg.SourceURL(),
		PermalinkBase: cfg.SourceURL(),
		Profile:       profile,
		Marker:        extractor.Marker(),
		MarkerTimeout: cfg.Fetch.MarkerTimeout,
		MinInterval:   cfg.Schedule.MinInterval,
		MaxInterval:   cfg.Schedule.MaxInterval,
	}
	if cfg.Logging.Table {
		schedCfg.Report = os.Stdout
	}
	app.scheduler, err = scheduler.New(
		app.fetcher,
		extractor,
		classify.NewPolicy(cfg.Keywords),
		app.telegram,
		ledger.New(cfg.Ledger.Capacity),
		ledgerStore,
		sessionStore,
		app.clock,
		uuid.New(),
		schedCfg,
		logger.Named("scheduler"),
	)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("scheduler init failed: %w", err)
	}

	if cfg.Server.Addr != "" {
		app.apiServer = api.NewServer(app.scheduler, logger.Named("api"))
	}
	return app, nil
}

// Scheduler exposes the cycle loop, mainly for tests.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Run starts the application and blocks until the context is canceled or
// SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.announce(ctx)

	var srv *http.Server
	if a.apiServer != nil {
		srv = &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           a.apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("http server started", zap.String("addr", a.cfg.Server.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", zap.Error(err))
				stop()
			}
		}()
	}

	runErr := a.scheduler.Run(ctx)
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}
	a.Close(shutdownCtx)
	return runErr
}

// announce sends the startup notice, or warns once that alerts are disabled.
func (a *App) announce(ctx context.Context) {
	if !a.telegram.Configured() {
		a.logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set; alerts will only be logged")
		return
	}
	if !a.cfg.Alert.StartupNotice {
		return
	}
	notice := alert.FormatStartupNotice(a.cfg.Target.Handle, a.clock.Now().Local(), a.cfg.Keywords)
	if err := a.telegram.Notify(ctx, notice); err != nil {
		a.logger.Warn("startup notice failed", zap.Error(err))
		return
	}
	a.logger.Info("startup notice sent")
}

// Close gracefully shuts down the application.
func (a *App) Close(_ context.Context) {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}

func (a *App) setupStorage(ctx context.Context) (storage.Store, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		a.logger.Info("using GCS storage backend")
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcs = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: a.cfg.Storage.GCSBucket,
			Prefix: a.cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Debug("GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return blobs, nil
	case config.BackendLocal:
		a.logger.Info("using local storage backend")
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Debug("local storage backend", zap.String("path", a.cfg.Storage.BaseDir))
		return blobs, nil
	case config.BackendMemory:
		a.logger.Warn("using in-memory storage backend; ledger and session are lost on exit")
		return memorystorage.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

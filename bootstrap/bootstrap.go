// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/sage/adapters/clock"
	"github.com/artpar/sage/adapters/idgen"
	"github.com/artpar/sage/adapters/memory"
	"github.com/artpar/sage/adapters/metrics"
	"github.com/artpar/sage/adapters/notify"
	"github.com/artpar/sage/adapters/sqlite"
	"github.com/artpar/sage/adapters/tabular"
	"github.com/artpar/sage/adapters/watcher"
	"github.com/artpar/sage/app"
	"github.com/artpar/sage/config"
	"github.com/artpar/sage/ports"
	"github.com/artpar/sage/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	Specs     *app.SpecService
	Processor *app.Processor
	Senders   *app.SenderService

	watcher       *watcher.Watcher
	cancelWatcher context.CancelFunc
}

// New builds the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	var store ports.ProcessedStore
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewProcessedStore()
	default:
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		store = sqlite.NewProcessedStore(db)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	clk := clock.Real{}
	ids := idgen.UUID{}
	reader := tabular.Reader{}

	a.Specs = app.NewSpecService(cfg.Paths.Catalogs, logger)
	resolver := app.NewResolver(a.Specs, ids, logger)
	a.Processor = app.NewProcessor(a.Specs, resolver, reader, store, clk, ids, logger, app.ProcessorConfig{
		PackagesDir: cfg.Paths.Packages,
		Notifier:    notify.NewLog(logger),
		Metrics:     a.Metrics,
	})
	a.Senders = app.NewSenderService(a.Specs, store, clk, ids, cfg.Paths.Senders, logger)

	a.initHTTPServer(reader, clk)

	if cfg.Watch.Enabled {
		a.watcher = watcher.New(cfg.Paths.Inbox, cfg.Watch.Settle, a.handleInbound, logger)
	}

	return a, nil
}

func (a *App) initHTTPServer(reader ports.DatasetReader, clk ports.Clock) {
	apiHandler := web.NewHandler(web.Deps{
		Specs:       a.Specs,
		Processor:   a.Processor,
		Senders:     a.Senders,
		Reader:      reader,
		Clock:       clk,
		PackagesDir: a.Config.Paths.Packages,
		MaxUpload:   a.Config.Server.MaxUpload,
		Logger:      a.Logger,
	})

	r := chi.NewRouter()
	r.Mount("/", apiHandler.Router())
	if a.Metrics != nil {
		r.Handle(a.Config.Metrics.Path, promhttp.Handler())
	}

	a.HTTPServer = &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      r,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

func (a *App) handleInbound(ctx context.Context, path string) {
	report, err := a.Processor.ProcessInbound(ctx, path)
	if err != nil {
		a.Logger.Error().Err(err).Str("path", path).Msg("inbound processing failed")
		return
	}
	a.Logger.Info().
		Str("path", path).
		Str("package", report.Package).
		Bool("success", report.Success).
		Msg("inbound artifact processed")
}

// Run starts the server (and watcher, if enabled) and blocks until an
// interrupt or server error.
func (a *App) Run() error {
	errCh := make(chan error, 1)

	if a.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancelWatcher = cancel
		go func() {
			if err := a.watcher.Run(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.cancelWatcher != nil {
		a.cancelWatcher()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/raicesdev/bienesraices/assets"
	"github.com/raicesdev/bienesraices/internal"
	"github.com/raicesdev/bienesraices/internal/auth"
	authdb "github.com/raicesdev/bienesraices/internal/auth/db"
	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/email/mailgun"
	emailview "github.com/raicesdev/bienesraices/internal/email/view"
	"github.com/raicesdev/bienesraices/internal/migrate"
	"github.com/raicesdev/bienesraices/internal/property"
	propertydb "github.com/raicesdev/bienesraices/internal/property/db"
	"github.com/raicesdev/bienesraices/internal/web"
	"github.com/raicesdev/bienesraices/internal/web/view"
	"github.com/raicesdev/bienesraices/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	// Two database handles: a single-connection pool for writes and a
	// read-only pool for queries.
	writeDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		return 1
	}
	defer writeDB.Close()

	if cfg.db.migrate {
		meta := migrate.Metadata{
			AppVersion: internal.BuildRevision,
			Timestamp:  internal.BuildRevisionTime,
		}

		ran, err := migrate.RunFS(ctx, writeDB, migrations.FS, meta)
		if err != nil {
			logger.Error("failed to run migrations", "error", err)
			return 1
		}

		for _, m := range ran {
			logger.Info("ran migration", "sequence", m.Sequence, "filename", m.Filename)
		}
	}

	readDB, err := db.OpenSQLite(cfg.db.file, false)
	if err != nil {
		logger.Error("failed to open read database", "error", err)
		return 1
	}
	defer readDB.Close()

	var sender email.Sender
	switch cfg.email.driver {
	case "mailgun":
		sender = mailgun.NewSender(http.DefaultClient, cfg.email.mailgun)
	default:
		sender = email.NewLogSender(logger)
	}

	emailService := email.NewService(emailview.NewFSRenderer(assets.EmailFS), sender, cfg.email.from)

	authErrFunc := func(err error) {
		logger.Error("async auth failure", "error", err)
	}

	authService, err := auth.NewService(authdb.New(writeDB, readDB), emailService, authErrFunc, cfg.auth)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}
	defer authService.Wait()

	if err := os.MkdirAll(cfg.uploadsDir, 0o755); err != nil {
		logger.Error("failed to create uploads directory", "error", err)
		return 1
	}

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:       logger,
			ViewRenderer: view.NewFSRenderer(assets.TemplateFS),
			AuthService:  authService,
			Properties:   property.NewService(propertydb.New(writeDB, readDB)),
			Sessions:     auth.NewSessionManager(cfg.session.key, cfg.session.ttl),
			DistFS:       http.FS(assets.DistFS),
			UploadsDir:   cfg.uploadsDir,
		}, cfg.http.server),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

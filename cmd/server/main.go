package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gsessions "github.com/gorilla/sessions"
	"github.com/letterdrop/letterdrop/assets"
	"github.com/letterdrop/letterdrop/internal"
	"github.com/letterdrop/letterdrop/internal/auth"
	authdb "github.com/letterdrop/letterdrop/internal/auth/db"
	"github.com/letterdrop/letterdrop/internal/db"
	"github.com/letterdrop/letterdrop/internal/email"
	"github.com/letterdrop/letterdrop/internal/email/postmark"
	emailview "github.com/letterdrop/letterdrop/internal/email/view"
	"github.com/letterdrop/letterdrop/internal/krypto"
	"github.com/letterdrop/letterdrop/internal/migrate"
	"github.com/letterdrop/letterdrop/internal/subscription"
	subscriptiondb "github.com/letterdrop/letterdrop/internal/subscription/db"
	"github.com/letterdrop/letterdrop/internal/web"
	"github.com/letterdrop/letterdrop/internal/web/sessions"
	"github.com/letterdrop/letterdrop/internal/web/view"
	"github.com/letterdrop/letterdrop/migrations"
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

	sqlDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer sqlDB.Close()

	if cfg.db.migrate {
		migrations, err := migrate.RunFS(ctx, sqlDB, migrations.FS, migrate.Metadata{
			AppVersion: internal.BuildRevision,
			Timestamp:  internal.BuildRevisionTime,
		})
		if err != nil {
			logger.Error("failed to run migrations", "error", err)
			return 1
		}

		for _, m := range migrations {
			logger.Info("ran migration", "sequence", m.Sequence, "filename", m.Filename)
		}
	}

	encryptor, err := krypto.NewEncryptor(cfg.db.encryptionKeys)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		return 1
	}

	verifier, err := auth.NewVerifier(cfg.auth.verifierWorkers)
	if err != nil {
		logger.Error("failed to create password verifier", "error", err)
		return 1
	}

	authService, err := auth.NewService(authdb.New(sqlDB, encryptor, cfg.db.blindIndexKey), verifier)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	emailService, err := emailServiceFromConfig(logger, cfg.email)
	if err != nil {
		logger.Error("failed to create email service", "error", err)
		return 1
	}

	subscriptions := subscription.NewService(
		subscriptiondb.New(sqlDB, encryptor, cfg.db.blindIndexKey),
		emailService,
		func(err error) {
			logger.Error("subscription service error", "error", err)
		},
		subscription.ServiceConfig{
			BaseURL: cfg.baseURL,
		},
	)

	cookieStore := gsessions.NewCookieStore(cookieKeyPairs(cfg.http.cookieKeys)...)
	cookieStore.Options = &gsessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.http.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:        logger,
			ViewRenderer:  view.NewFSRenderer(assets.TemplateFS),
			AuthService:   authService,
			Subscriptions: subscriptions,
			SessionStore:  sessions.NewStore(cookieStore),
			StaticFS:      http.FS(assets.StaticFS),
		}),
	}

	// Two tasks run concurrently:
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

func emailServiceFromConfig(logger *slog.Logger, cfg emailConfig) (*email.Service, error) {
	renderer := emailview.NewFSRenderer(assets.EmailFS)

	var sender email.Sender
	switch cfg.driver {
	case "postmark":
		client := &http.Client{
			Timeout: time.Second * 10,
		}
		sender = postmark.NewSender(client, cfg.postmark)
	default:
		sender = email.NewLogSender(logger)
	}

	return email.NewService(renderer, sender, cfg.from), nil
}

// cookieKeyPairs converts the configured keys to the alternating
// authentication/encryption key pairs the cookie store expects.
func cookieKeyPairs(keys []krypto.Key) [][]byte {
	pairs := make([][]byte, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key.SecretValue())
	}

	return pairs
}

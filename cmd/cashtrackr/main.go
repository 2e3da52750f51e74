package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/cashtrackr/internal/account"
	"github.com/dukerupert/cashtrackr/internal/config"
	"github.com/dukerupert/cashtrackr/internal/credential"
	"github.com/dukerupert/cashtrackr/internal/database"
	"github.com/dukerupert/cashtrackr/internal/email"
	"github.com/dukerupert/cashtrackr/internal/logging"
	"github.com/dukerupert/cashtrackr/internal/server"
	"github.com/dukerupert/cashtrackr/internal/store"
)

const cleanupInterval = 10 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var mailer account.Mailer
	if cfg.EmailConfigured() {
		mailer = email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.FrontendURL)
	} else {
		slog.Warn("postmark not configured, tokens will be logged instead of emailed")
		mailer = email.NewLogSender(logger.With("component", "email"))
	}

	userStore := store.NewUserStore(db)
	jwt := credential.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	accounts := account.NewService(userStore, mailer, credential.NewHasher(cfg.BcryptCost), jwt,
		account.WithTokenTTL(cfg.TokenTTL),
		account.WithLogger(logger.With("component", "account")),
	)

	srv := server.New(db, accounts, jwt, server.Options{
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
		TrustProxy: cfg.TrustProxy,
		WSOrigins:  []string{cfg.FrontendHost()},
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	httpServer.RegisterOnShutdown(srv.Hub().Close)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("cashtrackr starting", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cfg.TokenTTL > 0 {
					if n, err := userStore.ClearExpiredTokens(gctx); err != nil {
						slog.Error("cleanup expired tokens", "error", err)
					} else if n > 0 {
						slog.Info("cleared expired tokens", "count", n)
					}
				}
				srv.RateLimiter().Cleanup()
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		accounts.Wait()
		os.Exit(1)
	}

	// Let queued emails go out before the process exits.
	accounts.Wait()
}

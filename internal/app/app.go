// Package app orchestrates the convocore components and their
// lifecycle: the HTTP API server, the optional Telegram ingress, and the
// task scheduler run under one errgroup and shut down together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/convocore/convocore/internal/config"
)

// App holds the running components. TelegramBot may be nil when the
// ingress is disabled.
type App struct {
	logger      *slog.Logger
	cfg         *config.Config
	httpServer  *http.Server
	telegramBot *tgbot.Bot
	scheduler   *Scheduler
}

// New creates the application orchestrator.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	handler http.Handler,
	telegramBot *tgbot.Bot,
	scheduler *Scheduler,
) *App {
	return &App{
		logger: logger.With("component", "app"),
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: handler,
		},
		telegramBot: telegramBot,
		scheduler:   scheduler,
	}
}

// Run starts every component and blocks until the context is cancelled
// or one of them fails. Shutdown is graceful: the HTTP server drains
// in-flight requests, the scheduler waits for running jobs.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting convocore...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", "addr", a.cfg.HTTP.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown failed", "error", err)
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	if a.telegramBot != nil {
		g.Go(func() error {
			a.logger.Info("Starting Telegram listener...")

			a.telegramBot.Start(gCtx)
			a.logger.Info("Telegram listener stopped.")

			if gCtx.Err() == nil {
				a.logger.Warn("Telegram listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Start(); err != nil {
				a.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			a.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	a.logger.Info("convocore running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("convocore stopped due to error", "error", err)
		return err
	}

	a.logger.Info("convocore stopped gracefully.")
	return nil
}

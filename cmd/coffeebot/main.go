// Package main запускает Telegram-бота учёта сделок, напоминания и административный HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coffee-rent-bot/internal/bot"
	"github.com/mmeshcher/coffee-rent-bot/internal/config"
	"github.com/mmeshcher/coffee-rent-bot/internal/handler"
	"github.com/mmeshcher/coffee-rent-bot/internal/middleware"
	"github.com/mmeshcher/coffee-rent-bot/internal/reminder"
	"github.com/mmeshcher/coffee-rent-bot/internal/repository"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if cfg.BotToken == "" {
		sugar.Fatalw("configuration error", "error", "bot token is required")
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo)
	defer svc.Close()

	client := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken)
	b := bot.NewBot(svc, client, cfg.AdminChatID, logger)
	if cfg.AdminChatID == 0 {
		sugar.Warn("admin chat id is not set, reminders will not be delivered")
	}

	scheduler, err := reminder.NewScheduler(repo, b, logger, cfg.ReminderSchedule)
	if err != nil {
		sugar.Fatalw("reminder initialization error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.APIToken)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(ctx)
	})

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting admin API server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

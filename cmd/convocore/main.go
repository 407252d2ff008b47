// Package main contains the entrypoint for the convocore service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/convocore/convocore/internal/api"
	"github.com/convocore/convocore/internal/app"
	"github.com/convocore/convocore/internal/cache"
	"github.com/convocore/convocore/internal/config"
	"github.com/convocore/convocore/internal/convo"
	"github.com/convocore/convocore/internal/database"
	"github.com/convocore/convocore/internal/gemini"
	"github.com/convocore/convocore/internal/groups"
	"github.com/convocore/convocore/internal/identity"
	"github.com/convocore/convocore/internal/logger"
	"github.com/convocore/convocore/internal/tasks"
	"github.com/convocore/convocore/internal/telegram"

	tgbot "github.com/go-telegram/bot"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, starts the application, and returns an
// exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	var identityCache identity.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.New(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL, log)
		if err != nil {
			log.Error("Failed to connect to identity cache", "addr", cfg.Cache.RedisAddr, "error", err)
			return 1
		}
		defer redisCache.Close()
		identityCache = redisCache
	}

	identityResolver := identity.NewResolver(store, identityCache, log)
	groupResolver := groups.NewResolver(store, log)

	geminiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		ModelName:         cfg.Gemini.Model,
		Temperature:       cfg.Gemini.Temperature,
		SystemInstruction: cfg.Gemini.SystemInstruction,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RetryDelaySeconds: cfg.Gemini.RetryDelaySeconds,
	}, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	assembler := convo.NewAssembler(store, geminiClient, log)

	server := api.NewServer(log, store, identityResolver, groupResolver, assembler)
	handler := server.Router(cfg.HTTP.RequestTimeout)

	var tg *tgbot.Bot
	if cfg.Telegram.Token != "" {
		tg, err = telegram.New(cfg.Telegram.Token, log,
			tgbot.WithMiddlewares(telegram.UpdateLogger(log)),
			tgbot.WithDefaultHandler(telegram.NewMessageHandler(telegram.HandlerDeps{
				Logger:    log,
				Identity:  identityResolver,
				Groups:    groupResolver,
				Assembler: assembler,
			})),
		)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}
	} else {
		log.Info("Telegram token not configured, ingress disabled")
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	})
	var jobs []app.Job
	if cfg.Scheduler.MaintenanceEnabled {
		jobs = append(jobs, app.Job{
			Name:     "sql_maintenance",
			Schedule: cfg.Scheduler.MaintenanceSchedule,
			Run:      taskMap["sql_maintenance"],
		})
	}
	scheduler, err := app.NewScheduler(log, jobs)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	application := app.New(log, cfg, handler, tg, scheduler)

	log.Info("Starting convocore...")
	runErr := application.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("convocore stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("convocore stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

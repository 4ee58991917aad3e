// @title        Taskboard API
// @version      1.0
// @description  Users and tasks with consistent two-way assignment.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/api"
	"github.com/taskboard/taskboard-api/internal/api/handler"
	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/service"
	mongostore "github.com/taskboard/taskboard-api/internal/infrastructure/db/mongo"
	redisstore "github.com/taskboard/taskboard-api/internal/infrastructure/db/redis"
	"github.com/taskboard/taskboard-api/internal/infrastructure/queue"
	"github.com/taskboard/taskboard-api/internal/pkg/config"
	"github.com/taskboard/taskboard-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty && !cfg.IsProduction(),
		Service: "taskboard-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Entity store ---
	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	users := mongostore.NewUserRepository(db)
	tasks := mongostore.NewTaskRepository(db)
	events := mongostore.NewEventRepository(db)
	if err := mongostore.EnsureIndexes(ctx, users, tasks, events); err != nil {
		return err
	}

	readiness := []handler.Dependency{
		{Name: "mongodb", Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) }},
	}

	opts := service.Options{TaskDefaultLimit: cfg.Engine.TaskDefaultLimit}
	if cfg.Mongo.Transactions {
		opts.Tx = mongostore.NewTxRunner(client)
		log.Info().Msg("multi-document transactions enabled")
	}

	// --- Idempotency keys (optional) ---
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, creation is not idempotent")
	} else {
		defer rdb.Close()
		opts.Idempotency = redisstore.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		readiness = append(readiness, handler.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb, cfg.Redis.Timeout) },
		})
	}

	// --- Assignment audit trail ---
	dispatcher := queue.NewDispatcher(cfg.Engine.EventWorkers, events, logger.Component("events"))
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Close()
	opts.Publisher = dispatcher

	var (
		userService ports.UserService = service.NewUserService(users, tasks, opts, logger.Component("users"))
		taskService ports.TaskService = service.NewTaskService(users, tasks, events, opts, logger.Component("tasks"))
	)

	e := api.NewRouter(api.Dependencies{
		Users:     userService,
		Tasks:     taskService,
		Readiness: readiness,
		Log:       logger.Component("http"),
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Stringer("log_level", logger.Level()).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskmate/config"
	"taskmate/internal/api"
	"taskmate/internal/repository"
	"taskmate/internal/service/auth"
	"taskmate/internal/service/chat"
	"taskmate/internal/service/importer"
	"taskmate/internal/service/llm"
	"taskmate/pkg/db"
	"taskmate/pkg/mq"
	"taskmate/pkg/otel"
	"taskmate/pkg/outbox"
	pkgredis "taskmate/pkg/redis"
	"taskmate/pkg/util"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		defer log.Sync()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply migrations before serving")
}

func serve(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "taskmate",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownOtel()
	}

	// Init DB
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	if migrateOnStart {
		if err := db.Migrate(ctx, pool, log); err != nil {
			return err
		}
	}

	// Redis 和 MQ 都是可选的
	rdb, err := pkgredis.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Warn("Redis unavailable, chat rate limiting disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 动作事件先写入 outbox，再由 dispatcher 发布到 MQ
	var publisher chat.EventPublisher
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("MQ unavailable, action events disabled", zap.Error(err))
		} else {
			defer p.Close()
			outboxRepo := outbox.NewRepository(pool)
			publisher = outbox.NewWriter(outboxRepo)
			go outbox.NewDispatcher(outboxRepo, p, log).Start(ctx)
		}
	}

	model, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	if !model.Configured() {
		log.Warn("Language model API key is not set, /chat will fail", zap.String("provider", model.Name()))
	}

	loc, err := time.LoadLocation(cfg.Chat.Timezone)
	if err != nil {
		return err
	}

	// Init repositories
	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool, log)
	noteRepo := repository.NewNoteRepository(pool, log)
	notificationRepo := repository.NewNotificationRepository(pool, log)
	teamRepo := repository.NewTeamRepository(pool, log)
	chatRepo := repository.NewChatRepository(pool, log)

	// Init services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL, log)

	var limiter chat.RateLimiter
	if rdb != nil && cfg.Chat.RateLimitPerMinute > 0 {
		limiter = util.NewRateLimiter(rdb, cfg.Chat.RateLimitPerMinute, time.Minute, log)
	}

	chatService := chat.NewService(model, chat.Store{
		Tasks:         taskRepo,
		Notes:         noteRepo,
		Notifications: notificationRepo,
		Teams:         teamRepo,
		History:       chatRepo,
	}, publisher, limiter, chat.Options{
		Mode:     cfg.Chat.ActionMode,
		Locale:   cfg.Chat.Locale,
		Location: loc,
		Limits: chat.Limits{
			Tasks:   cfg.Chat.Context.Tasks,
			Notes:   cfg.Chat.Context.Notes,
			History: cfg.Chat.Context.History,
		},
	}, log)

	router := api.NewRouter(api.Handlers{
		Auth:   api.NewAuthHandler(authService, cfg.JWT.TTL, cfg.Server.SecureCookie, log),
		Chat:   api.NewChatHandler(chatService, log),
		Tasks:  api.NewTaskHandler(taskRepo, teamRepo, log),
		Notes:  api.NewNoteHandler(noteRepo, notificationRepo),
		Teams:  api.NewTeamHandler(teamRepo, log),
		Import: api.NewImportHandler(importer.New(cfg.Import.MaxBytes, log), log),
	}, authService, pool, log)

	srv := router.Server(cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

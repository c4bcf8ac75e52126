package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/config"
	"github.com/BASTARDsol/Mafia2Forum/internal/database"
	"github.com/BASTARDsol/Mafia2Forum/internal/handlers"
	"github.com/BASTARDsol/Mafia2Forum/internal/logger"
	"github.com/BASTARDsol/Mafia2Forum/internal/middleware"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
	"github.com/BASTARDsol/Mafia2Forum/internal/services"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	users         repositories.UserRepository
	topics        repositories.TopicRepository
	notifications repositories.NotificationRepository
	subscriptions repositories.SubscriptionRepository
	messages      repositories.MessageRepository
	close         func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	// Initialize database connections
	db, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to create redis client", zap.Error(err))
	}
	defer redisClient.Close()

	hub := realtime.NewHub()
	publisher, err := startRealtime(ctx, cfg, redisClient, hub, log)
	if err != nil {
		log.Fatal("Failed to start realtime backend", zap.Error(err))
	}

	// Services
	authService := services.NewAuthService(cfg.JWTSecret)
	presenceTracker := services.NewPresenceTracker(repositories.NewRedisPresenceStore(redisClient), cfg.PresenceWindow)
	notificationService := services.NewNotificationService(
		db.notifications, db.subscriptions, db.messages, db.users,
		publisher, cfg.PushTimeout, log.Named("notifications"),
	)
	contentService := services.NewContentService(db.topics, db.users, db.subscriptions, notificationService)

	presence := middleware.NewPresence(
		presenceTracker,
		repositories.NewRedisPresenceWriteLimiter(redisClient),
		publisher,
		cfg.PresenceWriteInterval,
		cfg.PushTimeout,
		log.Named("presence"),
	)

	handler := handlers.NewHandler(presenceTracker, notificationService, contentService, hub, log.Named("http"))
	router := handlers.NewRouter(handler, handlers.RouterConfig{
		Auth:         authService,
		Presence:     presence,
		ServiceToken: cfg.ServiceToken,
	})

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		<-ctx.Done()

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("realtime", cfg.RealtimeBackend))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if database.IsSQLiteURL(cfg.DatabaseURL) {
		db, err := database.NewSQLiteDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := database.MigrateSQLite(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &stores{
			users:         repositories.NewSQLiteUserRepository(db),
			topics:        repositories.NewSQLiteTopicRepository(db),
			notifications: repositories.NewSQLiteNotificationRepository(db),
			subscriptions: repositories.NewSQLiteSubscriptionRepository(db),
			messages:      repositories.NewSQLiteMessageRepository(db),
			close:         func() { db.Close() },
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &stores{
		users:         repositories.NewPostgresUserRepository(pool),
		topics:        repositories.NewPostgresTopicRepository(pool),
		notifications: repositories.NewPostgresNotificationRepository(pool),
		subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		messages:      repositories.NewPostgresMessageRepository(pool),
		close:         pool.Close,
	}, nil
}

// startRealtime returns the publisher for the configured backend and starts the
// bridge that feeds its messages into the local hub. With no backend, events
// go straight to the hub and reach only this instance's sockets.
func startRealtime(ctx context.Context, cfg *config.Config, redisClient *redis.Client, hub *realtime.Hub, log *zap.Logger) (realtime.Publisher, error) {
	bridgeLog := log.Named("realtime")

	switch cfg.RealtimeBackend {
	case config.RealtimeNATS:
		nc, err := realtime.NewNATSConn(cfg.NATSURL, "forum-notify")
		if err != nil {
			return nil, err
		}
		go func() {
			defer nc.Drain()
			if err := realtime.RunNATSBridge(ctx, nc, hub, bridgeLog); err != nil {
				bridgeLog.Error("nats bridge stopped", zap.Error(err))
			}
		}()
		return realtime.NewNATSPublisher(nc), nil
	case config.RealtimeNone:
		return hub, nil
	default:
		go func() {
			if err := realtime.RunRedisBridge(ctx, redisClient, hub, bridgeLog); err != nil {
				bridgeLog.Error("redis bridge stopped", zap.Error(err))
			}
		}()
		return realtime.NewRedisPublisher(redisClient), nil
	}
}

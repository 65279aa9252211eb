package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/proconnect/messaging-service/internal/api"
	"github.com/proconnect/messaging-service/internal/config"
	"github.com/proconnect/messaging-service/internal/events"
	"github.com/proconnect/messaging-service/internal/hub"
	"github.com/proconnect/messaging-service/internal/logger"
	"github.com/proconnect/messaging-service/internal/presence"
	"github.com/proconnect/messaging-service/internal/repository"
	"github.com/proconnect/messaging-service/internal/service"
	"github.com/proconnect/messaging-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "./config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if cfg.App.JWTSecret == "" {
		panic("app.jwt_secret (APP_JWT_SECRET) is required")
	}
	if cfg.Mongo.URI == "" {
		panic("mongo.uri (MONGO_URI) is required")
	}

	sugar, err := logger.New(cfg.App.Env == "development")
	if err != nil {
		panic(err)
	}
	defer sugar.Sync()
	sugar.Infof("starting messaging-service (env=%s)", cfg.App.Env)

	// Mongo, with retry: the store tends to come up after us in compose.
	var mc *mongo.Client
	connect := func() error {
		var cerr error
		mc, cerr = repository.Connect(context.Background(), cfg.Mongo.URI)
		if cerr != nil {
			sugar.Warnf("mongo connect: %v (retrying)", cerr)
		}
		return cerr
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, bo); err != nil {
		sugar.Fatalf("mongo connect: %v", err)
	}
	db := mc.Database(cfg.Mongo.Database)
	msgRepo := repository.NewMongoMessages(db.Collection(cfg.Mongo.MessagesCollection), cfg.Mongo.UsersCollection)
	userRepo := repository.NewMongoUsers(db.Collection(cfg.Mongo.UsersCollection))

	// Redis is optional; it backs the rate limiter and, when selected, the
	// presence registry.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("redis ping: %v", err)
		}
		cancel()
	}

	var registry presence.Registry
	switch cfg.Presence.Backend {
	case "redis":
		if rdb == nil {
			sugar.Fatal("presence.backend=redis requires redis.enabled=true")
		}
		registry = presence.NewRedis(rdb, cfg.Redis.Prefix, cfg.PresenceTTL)
	default:
		registry = presence.NewMemory()
	}

	var pub *events.Publisher
	var eventSink service.EventPublisher
	if cfg.Kafka.Enabled {
		pub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageCreated)
		eventSink = pub
	}

	svc := service.NewMessaging(msgRepo, userRepo, eventSink, sugar)

	h := hub.New()
	relay := ws.NewRelay(h, registry, svc, sugar)
	wsServer := ws.NewServer(relay, cfg, sugar)

	dbPing := func(ctx context.Context) error { return mc.Ping(ctx, nil) }
	handler := api.NewHandler(svc, dbPing, sugar)
	app := api.NewServer(cfg, handler, wsServer, rdb)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		if err := app.Listen(addr); err != nil {
			sugar.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down messaging-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = app.Shutdown()
	if pub != nil {
		_ = pub.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = mc.Disconnect(ctx)
	sugar.Info("shutdown complete")
}

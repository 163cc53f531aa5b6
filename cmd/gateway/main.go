package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lokmen200/soukstyle/gateway"
	"github.com/lokmen200/soukstyle/pkg/auth"
	"github.com/lokmen200/soukstyle/pkg/config"
	"github.com/lokmen200/soukstyle/pkg/discovery"
	"github.com/lokmen200/soukstyle/pkg/grpc"
	"github.com/lokmen200/soukstyle/pkg/logging"
	"github.com/lokmen200/soukstyle/pkg/notify"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"github.com/lokmen200/soukstyle/pkg/repository/memory"
	"github.com/lokmen200/soukstyle/pkg/service"
	"github.com/lokmen200/soukstyle/pkg/storage"
	"go.uber.org/zap"
)

const healthInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting API",
		zap.String("name", cfg.Server.Name),
		zap.String("address", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver))

	ctx := context.Background()
	checks := map[string]grpc.Check{}

	// Store
	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()
	if mongo, ok := repos.Audit.(*repository.MongoRepository); ok {
		checks["mongodb"] = mongo.Ping
	}

	// Redis is optional: cache, rate limit and cross-instance broadcast
	var (
		cache       service.Cache = service.NopCache{}
		limiter     gateway.RateLimiter
		broadcaster notify.Broadcaster = notify.NewHub()
	)
	if cfg.Redis.Addr != "" {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()
		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, continuing without it", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
			cache = redisRepo
			limiter = redisRepo
			broadcaster = notify.NewRedisBroadcaster(redisRepo, logger)
			checks["redis"] = redisRepo.Ping
		}
	}
	if cfg.NATS.URL != "" {
		natsCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		nb, err := notify.ConnectNats(natsCtx, cfg.NATS.URL, logger)
		cancel()
		if err != nil {
			logger.Warn("NATS unavailable, keeping the current broadcaster", zap.Error(err))
		} else {
			defer nb.Close()
			broadcaster = nb
		}
	}

	// Notifications run on the actor system
	system := actor.NewActorSystem()
	dispatcher, err := notify.NewDispatcher(system, notify.Config{
		Notifications: repos.Notifications,
		Mailer:        notify.NewLogMailer(logger),
		Broadcaster:   broadcaster,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := service.New(service.Deps{
		Repos:    repos,
		Notifier: dispatcher,
		Cache:    cache,
		Tokens:   tokens,
		Logger:   logger,
		Options: service.Options{
			LowStockThreshold: cfg.Orders.LowStockThreshold,
			CancelWindow:      cfg.Orders.CancelWindow,
			AdminEmails:       cfg.Auth.AdminEmails,
		},
	})

	uploader, err := storage.New(cfg.Uploads, logger)
	if err != nil {
		logger.Fatal("Failed to set up uploads", zap.Error(err))
	}

	gw := gateway.NewGateway(cfg, gateway.Deps{
		Services:    services,
		Tokens:      tokens,
		Limiter:     limiter,
		Uploader:    uploader,
		Broadcaster: broadcaster,
	}, logger)
	gw.SetupRoutes()

	serverErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()

	// gRPC health endpoint
	var health *grpc.HealthServer
	if cfg.GRPC.Port > 0 {
		health = grpc.NewHealthServer(cfg.Server.Name, checks, logger)
		health.Watch(healthInterval)
		go func() {
			if err := health.Start(cfg.GRPC.Port); err != nil {
				serverErr <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	// Service discovery
	var (
		sd       *discovery.ServiceDiscovery
		instance = &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	)
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd", zap.String("address", instance.Addr()))
		}
	}

	logger.Info("API started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			logger.Warn("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if health != nil {
		health.Stop()
	}
	if err := dispatcher.Stop(); err != nil {
		logger.Warn("Notification dispatcher did not drain", zap.Error(err))
	}

	logger.Info("API stopped")
}

// openStore returns the repositories for the configured driver and a func
// releasing them.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Repositories, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("Using the in-memory store; data is lost on restart")
		store := memory.NewStore()
		return service.Repositories{
			Users:         store.Users(),
			Shops:         store.Shops(),
			Products:      store.Products(),
			Orders:        store.Orders(),
			Reviews:       store.Reviews(),
			Coupons:       store.Coupons(),
			Carts:         store.Carts(),
			Notifications: store.Notifications(),
			Categories:    store.Categories(),
			Audit:         store,
		}, func() {}, nil
	}

	mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		return service.Repositories{}, nil, err
	}
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx); err != nil {
		mongo.Close(context.Background())
		return service.Repositories{}, nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))

	return service.Repositories{
		Users:         mongo.Users(),
		Shops:         mongo.Shops(),
		Products:      mongo.Products(),
		Orders:        mongo.Orders(),
		Reviews:       mongo.Reviews(),
		Coupons:       mongo.Coupons(),
		Carts:         mongo.Carts(),
		Notifications: mongo.Notifications(),
		Categories:    mongo.Categories(),
		Audit:         mongo,
	}, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongo.Close(closeCtx)
	}, nil
}

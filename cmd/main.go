package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/config"
	"github.com/keepsake-app/keepsake/internal/handler"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/repository"
	"github.com/keepsake-app/keepsake/internal/routers"
	"github.com/keepsake-app/keepsake/internal/service"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/middleware/jwt"
	logger "github.com/keepsake-app/keepsake/middleware/log"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer appLogger.Close()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	db, err := storage.InitPostgres(&cfg.Postgres)
	if err != nil {
		appLogger.Fatal("failed to init postgres", zap.Error(err))
	}

	rdb, err := storage.InitRedis(&cfg.Redis)
	if err != nil {
		appLogger.Fatal("failed to init redis", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	entryRepo := repository.NewEntryRepository(db)

	followTTL := time.Duration(cfg.Redis.FollowCacheTTLSeconds) * time.Second
	follows := repository.NewCachedFollowGraph(repository.NewFollowRepository(db), rdb, followTTL)

	// Notification delivery is best effort. Without a broker the service
	// still runs, it just stops emitting events.
	var emitter notify.Emitter = notify.NopEmitter{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaEmitter, err := notify.NewKafkaEmitter(&cfg.Kafka, appLogger.Logger)
		if err != nil {
			appLogger.Warn("kafka unavailable, notifications disabled", zap.Error(err))
		} else {
			emitter = kafkaEmitter
			defer kafkaEmitter.Close()
		}
	}

	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)

	authService := service.NewAuthService(userRepo, tokenManager)
	groupService := service.NewGroupService(groupRepo, memoryRepo, follows, emitter)
	entryService := service.NewEntryService(groupRepo, entryRepo, userRepo, follows, emitter)

	authHandler := handler.NewAuthHandler(authService)
	groupHandler := handler.NewGroupHandler(groupService)
	entryHandler := handler.NewEntryHandler(entryService)

	r := routers.SetupRouter(appLogger, tokenManager, authHandler, groupHandler, entryHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	appLogger.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		appLogger.Fatal("server exited", zap.Error(err))
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/handlers"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/internal/workers"
	"github.com/warbler/warbler/pkg/cache"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLogger(cfg.Log.Level)
	logger.Info("Starting Warbler server...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// 自动迁移数据库表
	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	ctx := context.Background()

	// 初始化Redis缓存（可选）
	var stats *services.StatsCache
	if cfg.Redis.Enabled {
		redisClient := cache.NewRedisClient(
			cfg.Redis.Addr(),
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			cfg.Redis.MinIdleConns,
		)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		stats = services.NewStatsCache(redisClient, cfg.Stats.CacheTTL)
	}

	// 初始化事件发布：有Kafka时交给worker进程，否则在本进程内处理
	var publisher queue.Publisher
	if cfg.Kafka.Enabled {
		producer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.UserEvents)
		defer producer.Close()
		publisher = producer
	} else {
		publisher = workers.NewInlinePublisher(workers.NewStatsWorker(stats, nil, logger))
	}

	// 初始化仓库
	userRepo := repository.NewUserRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)

	// 初始化服务
	userService := services.NewUserService(db.DB, userRepo, followRepo, messageRepo, likeRepo, stats, publisher, logger)
	messageService := services.NewMessageService(db.DB, messageRepo, followRepo, likeRepo, userRepo, publisher, logger)
	likeService := services.NewLikeService(db.DB, messageRepo, likeRepo, userRepo, publisher, logger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := handlers.NewRouter(&handlers.RouterDeps{
		UserRepo:       userRepo,
		UserService:    userService,
		MessageService: messageService,
		LikeService:    likeService,
		Sessions:       middleware.NewSessionManager(&cfg.Session, logger),
		Metrics:        metrics.New(prometheus.DefaultRegisterer),
		Gatherer:       prometheus.DefaultGatherer,
		JWT:            cfg.JWT,
		Logger:         logger,
	})

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func init() {
	// 创建默认配置文件（如果不存在）
	if os.Getenv("CONFIG_PATH") != "" {
		return
	}
	if err := os.MkdirAll("configs", 0755); err != nil {
		log.Printf("Failed to create configs directory: %v", err)
		return
	}
	configPath := "configs/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":5000"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s

database:
  driver: "postgres"
  host: "localhost"
  port: 5432
  user: "warbler"
  password: "warbler"
  dbname: "warbler"
  sslmode: "disable"
  max_open_conns: 25
  max_idle_conns: 5

redis:
  enabled: false
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 10

kafka:
  enabled: false
  brokers:
    - "localhost:9092"
  topics:
    user_events: "warbler-user-events"
  group_id: "warbler-stats-worker"

jwt:
  secret: "change-me-in-production"
  expire_time: 24h

session:
  secret: "change-me-in-production"
  max_age: 16h
  secure: false

stats:
  cache_ttl: 1h

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/warbler/warbler/internal/config"
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
	logger.Info("Starting Warbler stats worker...")

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	// 检查Redis连接
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka消费者
	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.UserEvents, cfg.Kafka.GroupID)

	// 初始化工作处理器
	stats := services.NewStatsCache(redisClient, cfg.Stats.CacheTTL)
	statsWorker := workers.NewStatsWorker(stats, consumer, logger)

	// 启动工作处理器
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := statsWorker.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Stats worker stopped with error")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	logger.Info("Shutting down worker...")

	// 优雅关闭
	cancel()
	<-done

	if err := statsWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop stats worker")
	}

	logger.Info("Worker exited")
}

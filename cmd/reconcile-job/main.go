// cmd/reconcile-job/main.go
package main

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"stockgate/internal/pkg/bootstrap"
	"stockgate/internal/pkg/logger"
	"stockgate/internal/pkg/redis"
	"stockgate/internal/pkg/tracing"
	"stockgate/internal/service/reservation/application"
	"stockgate/internal/service/reservation/infrastructure"
	"stockgate/internal/service/reservation/infrastructure/adapter"
	"stockgate/internal/zookeeper"
)

const serviceName = "reconcile-job"

// 对账任务：用持久层的权威库存覆写所有准入计数器
// 这是一次性的维护操作，不能与在线准入流量并发执行——
// 通过 ZooKeeper 分布式锁保证全局只有一个实例在跑
func main() {
	os.Exit(run())
}

func run() int {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to initialize tracer provider")
		return 1
	}

	// 1. 全局互斥
	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to connect to zookeeper")
		return 1
	}
	defer zkConn.Close()

	lock, err := zookeeper.NewDistributedLock(zkConn, "reconcile")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to create distributed lock")
		return 1
	}
	if err := lock.Lock(); err != nil {
		logger.Logger.Error().Err(err).Msg("failed to acquire reconcile lock")
		return 1
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Logger.Error().Err(err).Msg("failed to release reconcile lock")
		}
	}()
	logger.Logger.Info().Msg("✅ Reconcile lock acquired.")

	// 2. 基础设施连接
	redisClient, err := redis.New(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to connect to redis")
		return 1
	}
	defer redisClient.Close()

	db, err := infrastructure.NewDB(cfg.Infra.Mysql)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to connect to mysql")
		return 1
	}

	counter, err := adapter.NewCounterRedisAdapter(redisClient)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to initialize stock counter adapter")
		return 1
	}
	repo := infrastructure.NewGormStockRepository(db)

	// 3. 执行对账
	service := application.NewReconcileService(repo, counter, otel.Tracer(serviceName))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	exitCode := 0
	if err := service.ReconcileAll(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("reconciliation failed")
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Error shutting down tracer provider")
	}
	return exitCode
}

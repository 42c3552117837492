// cmd/intake-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"stockgate/internal/pkg/bootstrap"
	"stockgate/internal/pkg/logger"
	"stockgate/internal/pkg/mq"
	"stockgate/internal/pkg/redis"
	"stockgate/internal/service/reservation/application"
	"stockgate/internal/service/reservation/infrastructure"
	"stockgate/internal/service/reservation/infrastructure/adapter"
	"stockgate/internal/service/reservation/interfaces"
)

const serviceName = "intake-service"

// main 是应用的"组装根" (Composition Root)
// 创建并组装所有依赖项，然后启动应用
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	// 基础设施连接
	redisClient, err := redis.New(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	db, err := infrastructure.NewDB(cfg.Infra.Mysql)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	fulfillmentWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.FulfillmentTopic)
	alertWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.AlertTopic)

	// 出站适配器
	counter, err := adapter.NewCounterRedisAdapter(redisClient)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize stock counter adapter")
	}
	cache := adapter.NewCacheRedisAdapter(redisClient, time.Duration(cfg.App.CacheTTLSeconds)*time.Second)
	policy, err := adapter.NewPolicyCelAdapter(cfg.App.AdmissionRule)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid admission rule")
	}
	producer := adapter.NewFulfillmentKafkaAdapter(fulfillmentWriter)
	alerter := adapter.NewAlertKafkaAdapter(alertWriter)
	repo := infrastructure.NewGormStockRepository(db)

	// 应用服务 + HTTP 入站适配器
	service := application.NewIntakeService(counter, producer, alerter, policy, repo, cache, otel.Tracer(serviceName))
	handler := interfaces.NewIntakeHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8080,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { _ = fulfillmentWriter.Close() },
			func(ctx context.Context) { _ = alertWriter.Close() },
			func(ctx context.Context) { _ = redisClient.Close() },
		},
	})
}

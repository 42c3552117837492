// cmd/fulfillment-service/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

const serviceName = "fulfillment-service"

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.New(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	db, err := infrastructure.NewDB(cfg.Infra.Mysql)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}

	// 失败的消息投回原 Topic 重试，超限后进入死信 Topic
	retryWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.FulfillmentTopic)
	dltWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.DeadLetterTopic)
	alertWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.AlertTopic)
	failureHandler := mq.NewFailureHandler(retryWriter, dltWriter, cfg.App.MaxRetries)

	reader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.ConsumerGroup, cfg.Infra.Kafka.FulfillmentTopic)
	dltReader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.ConsumerGroup+"-dlt", cfg.Infra.Kafka.DeadLetterTopic)

	repo := infrastructure.NewGormStockRepository(db)
	cache := adapter.NewCacheRedisAdapter(redisClient, time.Duration(cfg.App.CacheTTLSeconds)*time.Second)
	alerter := adapter.NewAlertKafkaAdapter(alertWriter)

	service := application.NewFulfillmentService(repo, cache, otel.Tracer(serviceName))
	consumer := interfaces.NewFulfillmentConsumerAdapter(reader, service, failureHandler)
	dltConsumer := interfaces.NewDltConsumerAdapter(dltReader, alerter)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8081,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		Background: []func(ctx context.Context) error{
			consumer.Start,
			dltConsumer.Start,
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { consumer.Stop(ctx) },
			func(ctx context.Context) { dltConsumer.Stop(ctx) },
			func(ctx context.Context) { _ = retryWriter.Close() },
			func(ctx context.Context) { _ = dltWriter.Close() },
			func(ctx context.Context) { _ = alertWriter.Close() },
			func(ctx context.Context) { _ = redisClient.Close() },
		},
	})
}

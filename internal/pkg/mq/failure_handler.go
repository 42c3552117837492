// internal/pkg/mq/failure_handler.go
package mq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"stockgate/internal/pkg/logger"
)

// FailureHandler 统一处理消费失败的消息：
// 未超过重试上限的消息重新投回原 Topic（携带递增的重试计数），
// 超过上限的消息转入死信 Topic，等待人工介入。
type FailureHandler struct {
	retryWriter Publisher
	dltWriter   Publisher
	maxRetries  int
}

func NewFailureHandler(retryWriter, dltWriter Publisher, maxRetries int) *FailureHandler {
	return &FailureHandler{
		retryWriter: retryWriter,
		dltWriter:   dltWriter,
		maxRetries:  maxRetries,
	}
}

// Handle 根据消息的重试次数决定去向。返回 error 表示移交失败，
// 调用方此时不应提交 Offset，让 Broker 重新投递原消息。
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, processingErr error) error {
	retryCount, _ := strconv.Atoi(HeaderValue(msg, HeaderRetryCount))

	if retryCount < h.maxRetries {
		logger.Ctx(ctx).Warn().
			Err(processingErr).
			Int("retry_count", retryCount+1).
			Str("key", string(msg.Key)).
			Msg("Message processing failed, scheduling retry.")
		return h.publishRetry(ctx, msg, retryCount+1)
	}

	logger.Ctx(ctx).Error().
		Err(processingErr).
		Int("retry_count", retryCount).
		Str("key", string(msg.Key)).
		Msg("🚨 Message exhausted retries, routing to dead-letter topic.")
	return h.publishDeadLetter(ctx, msg, processingErr)
}

func (h *FailureHandler) publishRetry(ctx context.Context, msg kafka.Message, nextRetry int) error {
	headers := replaceHeader(msg.Headers, HeaderRetryCount, strconv.Itoa(nextRetry))
	return ProduceMessage(ctx, h.retryWriter, msg.Key, msg.Value, headers...)
}

func (h *FailureHandler) publishDeadLetter(ctx context.Context, msg kafka.Message, processingErr error) error {
	headers := []kafka.Header{
		{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", processingErr))},
		{Key: HeaderExceptionMessage, Value: []byte(processingErr.Error())},
	}
	return ProduceMessage(ctx, h.dltWriter, msg.Key, msg.Value, headers...)
}

func replaceHeader(headers []kafka.Header, key, value string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers)+1)
	for _, h := range headers {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return append(out, kafka.Header{Key: key, Value: []byte(value)})
}

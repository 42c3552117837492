package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	Init()
	cfg := GetCurrentConfig()

	assert.Equal(t, "quantity > 0 && quantity <= 100", cfg.App.AdmissionRule)
	assert.Equal(t, 3, cfg.App.MaxRetries)
	assert.Equal(t, "stock-fulfillment-events", cfg.Infra.Kafka.FulfillmentTopic)
	assert.Equal(t, "stock-fulfillment-events-dlt", cfg.Infra.Kafka.DeadLetterTopic)
	assert.Equal(t, "localhost:6379", cfg.Infra.Redis.Addr)
}

func TestInit_LoadsYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  admissionRule: "quantity > 0 && quantity <= 5"
  cacheTtlSeconds: 60
  maxRetries: 5
infra:
  redis:
    addr: "redis.internal:6379"
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    fulfillmentTopic: "custom-events"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)

	Init()
	cfg := GetCurrentConfig()

	assert.Equal(t, "quantity > 0 && quantity <= 5", cfg.App.AdmissionRule)
	assert.Equal(t, 60, cfg.App.CacheTTLSeconds)
	assert.Equal(t, 5, cfg.App.MaxRetries)
	assert.Equal(t, "redis.internal:6379", cfg.Infra.Redis.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "custom-events", cfg.Infra.Kafka.FulfillmentTopic)
	// 文件未提供的字段保持默认值
	assert.Equal(t, "stock-consistency-alerts", cfg.Infra.Kafka.AlertTopic)
}

func TestInit_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("infra:\n  redis:\n    addr: \"from-file:6379\"\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("REDIS_ADDR", "from-env:6379")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("ZK_SERVERS", "zk1:2181")

	Init()
	cfg := GetCurrentConfig()

	assert.Equal(t, "from-env:6379", cfg.Infra.Redis.Addr)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, []string{"zk1:2181"}, cfg.Infra.Zookeeper.Servers)
}

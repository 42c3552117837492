// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置树，通过 yaml 文件加载，环境变量可覆盖关键项
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	// AdmissionRule 是准入策略的 CEL 表达式，对 productId / quantity 求值
	AdmissionRule   string `yaml:"admissionRule"`
	CacheTTLSeconds int    `yaml:"cacheTtlSeconds"`
	MaxRetries      int    `yaml:"maxRetries"`
}

type InfraConfig struct {
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Mysql     MysqlConfig     `yaml:"mysql"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	FulfillmentTopic string   `yaml:"fulfillmentTopic"`
	DeadLetterTopic  string   `yaml:"deadLetterTopic"`
	AlertTopic       string   `yaml:"alertTopic"`
	ConsumerGroup    string   `yaml:"consumerGroup"`
}

type MysqlConfig struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type ZookeeperConfig struct {
	Servers []string `yaml:"servers"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置。必须在任何 GetCurrentConfig 调用之前执行。
// 配置文件路径由 CONFIG_PATH 指定，缺省为 configs/config.yaml；
// 文件不存在时使用内置默认值，便于本地快速启动。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_PATH", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
	} else {
		log.Printf("⚠️ WARNING: config file %s not found, using defaults.", path)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init() must be called before GetCurrentConfig()")
	}
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			AdmissionRule:   "quantity > 0 && quantity <= 100",
			CacheTTLSeconds: 300,
			MaxRetries:      3,
		},
		Infra: InfraConfig{
			Redis: RedisConfig{Addr: "localhost:6379"},
			Kafka: KafkaConfig{
				Brokers:          []string{"localhost:9092"},
				FulfillmentTopic: "stock-fulfillment-events",
				DeadLetterTopic:  "stock-fulfillment-events-dlt",
				AlertTopic:       "stock-consistency-alerts",
				ConsumerGroup:    "fulfillment-service",
			},
			Mysql: MysqlConfig{
				Addr:     "localhost:3306",
				User:     "root",
				Password: "root",
				Database: "stockgate",
			},
			Zookeeper: ZookeeperConfig{Servers: []string{"localhost:2181"}},
			Jaeger:    JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Nacos:     NacosConfig{Group: "DEFAULT_GROUP"},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Mysql.Addr = getEnv("MYSQL_ADDR", cfg.Infra.Mysql.Addr)
	cfg.Infra.Mysql.User = getEnv("MYSQL_USER", cfg.Infra.Mysql.User)
	cfg.Infra.Mysql.Password = getEnv("MYSQL_PASSWORD", cfg.Infra.Mysql.Password)
	cfg.Infra.Mysql.Database = getEnv("MYSQL_DATABASE", cfg.Infra.Mysql.Database)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if servers := os.Getenv("ZK_SERVERS"); servers != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(servers, ",")
	}
}

// getEnv 从环境变量中读取配置，不存在时返回兜底值
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

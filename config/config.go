package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	AppEnv string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// EngineConfig tunes the pricing pipeline: cache bounds, the bulk cap, the
// worker pool, and the soft latency thresholds that trigger performance
// warnings.
type EngineConfig struct {
	CacheTTL             time.Duration
	CacheMaxEntries      int
	RuleSnapshotTTL      time.Duration
	MaxBulkItems         int
	BulkWorkers          int
	RuleEvalTimeout      time.Duration
	SingleCalcThreshold  time.Duration
	BulkCalcThreshold    time.Duration
	CacheLookupThreshold time.Duration
	TieBreakPolicy       string // "most_recent" or "lowest_id"
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv: getEnv("APP_ENV", "dev"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_pricing"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC_PRICING_RULES", "pricing.rule.events"),
			GroupID: getEnv("KAFKA_GROUP_PRICING", "pricing-engine"),
		},
		Engine: EngineConfig{
			CacheTTL:             getEnvDuration("PRICING_CACHE_TTL", 300*time.Second),
			CacheMaxEntries:      getEnvInt("PRICING_CACHE_MAX_ENTRIES", 1000),
			RuleSnapshotTTL:      getEnvDuration("PRICING_RULE_SNAPSHOT_TTL", 300*time.Second),
			MaxBulkItems:         getEnvInt("PRICING_MAX_BULK_ITEMS", 50),
			BulkWorkers:          getEnvInt("PRICING_BULK_WORKERS", 8),
			RuleEvalTimeout:      getEnvDuration("PRICING_RULE_EVAL_TIMEOUT", 200*time.Millisecond),
			SingleCalcThreshold:  getEnvDuration("PRICING_SINGLE_CALC_THRESHOLD", 500*time.Millisecond),
			BulkCalcThreshold:    getEnvDuration("PRICING_BULK_CALC_THRESHOLD", 1000*time.Millisecond),
			CacheLookupThreshold: getEnvDuration("PRICING_CACHE_LOOKUP_THRESHOLD", 100*time.Millisecond),
			TieBreakPolicy:       getEnv("PRICING_TIE_BREAK_POLICY", "most_recent"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

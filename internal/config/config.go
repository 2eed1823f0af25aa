package config

import (
	"os"
	"strconv"
	"time"
)

type PolicyEngineConfig struct {
	Port        string
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	RabbitMQCfg RabbitMQConfig
	EngineCfg   EngineConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

// EngineConfig holds the evaluation and lifecycle SLAs.
type EngineConfig struct {
	// DefaultReviewWindowDays is used when a base policy does not set its own
	// partner review window.
	DefaultReviewWindowDays int
	// SweepInterval is how often the auto-approval sweep runs.
	SweepInterval time.Duration
	// EvaluationLockTTL bounds how long a single policy evaluation may hold
	// its per-policy lock.
	EvaluationLockTTL time.Duration
	// DuplicateClaimWindow suppresses a second claim for the same
	// (policy, trigger) pair inside this window.
	DuplicateClaimWindow time.Duration
	// Currency is the settlement currency for generated payouts.
	Currency string
	// EvaluationWorkers sizes the evaluation worker pool.
	EvaluationWorkers int
}

func New() *PolicyEngineConfig {
	return &PolicyEngineConfig{
		Port: getEnvOrDefault("PORT", "8084"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "policy_engine"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		EngineCfg: EngineConfig{
			DefaultReviewWindowDays: getEnvOrDefaultInt("REVIEW_WINDOW_DAYS", 7),
			SweepInterval:           getEnvOrDefaultDuration("AUTO_APPROVAL_SWEEP_INTERVAL", time.Hour),
			EvaluationLockTTL:       getEnvOrDefaultDuration("EVALUATION_LOCK_TTL", 5*time.Minute),
			DuplicateClaimWindow:    getEnvOrDefaultDuration("DUPLICATE_CLAIM_WINDOW", 24*time.Hour),
			Currency:                getEnvOrDefault("PAYOUT_CURRENCY", "VND"),
			EvaluationWorkers:       getEnvOrDefaultInt("EVALUATION_WORKERS", 10),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

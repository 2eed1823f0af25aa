package redis

import (
	"context"
	"fmt"
	"time"

	"policy-engine/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// evaluationLockKey namespaces the per-policy evaluation lock.
func evaluationLockKey(registeredPolicyID uuid.UUID) string {
	return fmt.Sprintf("policy_engine:evaluation_lock:%s", registeredPolicyID)
}

// AcquireEvaluationLock takes the single-writer lock for one registered
// policy. Returns false when another instance holds it; the caller should
// skip this cycle rather than wait.
func (r *RedisClient) AcquireEvaluationLock(ctx context.Context, registeredPolicyID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := r.Client.SetNX(ctx, evaluationLockKey(registeredPolicyID), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire evaluation lock for policy %s: %w", registeredPolicyID, err)
	}
	return ok, nil
}

func (r *RedisClient) ReleaseEvaluationLock(ctx context.Context, registeredPolicyID uuid.UUID) error {
	if err := r.Client.Del(ctx, evaluationLockKey(registeredPolicyID)).Err(); err != nil {
		return fmt.Errorf("failed to release evaluation lock for policy %s: %w", registeredPolicyID, err)
	}
	return nil
}

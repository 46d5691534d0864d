package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LevelStore 定义了知识水平评估结果的缓存接口。
// 缓存按 (用户, 助手) 维度存储，带过期时间。
type LevelStore interface {
	Get(ctx context.Context, userID uint, assistantID string) (string, bool, error)
	Set(ctx context.Context, userID uint, assistantID string, level string) error
}

type redisLevelStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewLevelStore 创建一个新的 LevelStore 实例。
func NewLevelStore(redisClient *redis.Client, ttl time.Duration) LevelStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisLevelStore{redisClient: redisClient, ttl: ttl}
}

func levelKey(userID uint, assistantID string) string {
	return fmt.Sprintf("knowledge_level:%d_%s", userID, assistantID)
}

// Get 读取缓存的知识水平。不存在时第二个返回值为 false。
func (s *redisLevelStore) Get(ctx context.Context, userID uint, assistantID string) (string, bool, error) {
	level, err := s.redisClient.Get(ctx, levelKey(userID, assistantID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get knowledge level: %w", err)
	}
	return level, true, nil
}

// Set 写入知识水平缓存。
func (s *redisLevelStore) Set(ctx context.Context, userID uint, assistantID string, level string) error {
	if err := s.redisClient.Set(ctx, levelKey(userID, assistantID), level, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set knowledge level: %w", err)
	}
	return nil
}

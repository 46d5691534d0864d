package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CheckpointStore 定义了工作流检查点的读写接口。
// 每个 (用户, 助手) 线程只保留一份检查点，后写覆盖先写。
type CheckpointStore interface {
	Load(ctx context.Context, userID uint, assistantID string, dest interface{}) (bool, error)
	Save(ctx context.Context, userID uint, assistantID string, state interface{}) error
	DeleteByAssistant(ctx context.Context, assistantID string) error
}

type redisCheckpointStore struct {
	redisClient *redis.Client
}

// NewCheckpointStore 创建一个新的 CheckpointStore 实例。
func NewCheckpointStore(redisClient *redis.Client) CheckpointStore {
	return &redisCheckpointStore{redisClient: redisClient}
}

func checkpointKey(userID uint, assistantID string) string {
	return fmt.Sprintf("workflow:checkpoint:%d_%s", userID, assistantID)
}

// Load 读取检查点并反序列化到 dest。不存在时返回 false 而非错误。
func (s *redisCheckpointStore) Load(ctx context.Context, userID uint, assistantID string, dest interface{}) (bool, error) {
	jsonData, err := s.redisClient.Get(ctx, checkpointKey(userID, assistantID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if err := json.Unmarshal([]byte(jsonData), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return true, nil
}

// Save 序列化并覆盖写入检查点。
func (s *redisCheckpointStore) Save(ctx context.Context, userID uint, assistantID string, state interface{}) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.redisClient.Set(ctx, checkpointKey(userID, assistantID), jsonData, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

// DeleteByAssistant 删除某个助手名下所有线程的检查点，助手删除时调用。
func (s *redisCheckpointStore) DeleteByAssistant(ctx context.Context, assistantID string) error {
	pattern := fmt.Sprintf("workflow:checkpoint:*_%s", assistantID)
	iter := s.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

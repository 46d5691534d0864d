package service

import (
	"context"
	"fmt"
	"strings"

	"edumate-go/internal/repository"
	"edumate-go/pkg/llm"
	"edumate-go/pkg/log"
)

// 知识水平的取值。
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// AssessorService 接口定义了学生知识水平评估操作。
type AssessorService interface {
	Assess(ctx context.Context, userID uint, assistantID, latestMessage string) string
}

type assessorService struct {
	llmClient  llm.Client
	levelStore repository.LevelStore
}

// NewAssessorService 创建一个新的 AssessorService 实例。
func NewAssessorService(llmClient llm.Client, levelStore repository.LevelStore) AssessorService {
	return &assessorService{
		llmClient:  llmClient,
		levelStore: levelStore,
	}
}

// Assess 评估学生的知识水平，返回 beginner、intermediate 或 advanced。
// 评估结果按 (用户, 助手) 缓存；任何失败都回退到 beginner，不向上返回错误。
func (s *assessorService) Assess(ctx context.Context, userID uint, assistantID, latestMessage string) string {
	if strings.TrimSpace(latestMessage) == "" {
		return LevelBeginner
	}

	if cached, ok, err := s.levelStore.Get(ctx, userID, assistantID); err != nil {
		log.Warnf("[AssessorService] 读取知识水平缓存失败: %v", err)
	} else if ok {
		return coerceLevel(cached)
	}

	prompt := fmt.Sprintf(
		"Based on the following student message, classify the student's knowledge level "+
			"as exactly one of: beginner, intermediate, advanced. "+
			"Respond with only that single word.\n\nStudent message: %s", latestMessage)

	reply, err := s.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		log.Warnf("[AssessorService] 知识水平评估调用失败, 回退到 beginner: %v", err)
		return LevelBeginner
	}

	level := coerceLevel(reply)
	if err := s.levelStore.Set(ctx, userID, assistantID, level); err != nil {
		log.Warnf("[AssessorService] 写入知识水平缓存失败: %v", err)
	}
	return level
}

// coerceLevel 将模型输出规整为三个合法取值之一，无法识别时取 beginner。
func coerceLevel(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(normalized, LevelAdvanced):
		return LevelAdvanced
	case strings.Contains(normalized, LevelIntermediate):
		return LevelIntermediate
	case strings.Contains(normalized, LevelBeginner):
		return LevelBeginner
	default:
		return LevelBeginner
	}
}

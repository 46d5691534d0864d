// Package workflow 实现了对话处理的六阶段工作流引擎。
package workflow

import (
	"edumate-go/internal/model"
	"edumate-go/internal/service"
)

// State 是一轮对话处理过程中各阶段共享的状态。
// 整个结构会以 JSON 形式写入 Redis 检查点，按 (用户, 助手) 线程覆盖保存。
type State struct {
	ConversationID string              `json:"conversationId"`
	UserID         uint                `json:"userId"`
	AssistantID    string              `json:"assistantId"`
	Assistant      *model.Assistant    `json:"assistant,omitempty"`
	Messages       []model.ChatMessage `json:"messages"`
	KnowledgeLevel string              `json:"knowledgeLevel,omitempty"`
	ChatSummary    string              `json:"chatSummary,omitempty"`

	// 以下字段只在本轮内有效，不进入检查点
	Query       string                   `json:"-"`
	Context     []service.ScoredChunk    `json:"-"`
	ChatHistory []model.ConversationTurn `json:"-"`
	Answer      string                   `json:"-"`
}

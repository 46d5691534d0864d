// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatMessage 代表工作流检查点中保存的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTurn 代表一次单独的问答交互，只追加不修改。
type ConversationTurn struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"userId"`
	AssistantID    string    `gorm:"type:varchar(36);index;not null" json:"assistantId"`
	ConversationID string    `gorm:"type:varchar(64);index;not null" json:"conversationId"`
	Prompt         string    `gorm:"type:text;not null" json:"prompt"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

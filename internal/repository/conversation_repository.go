// Package repository 提供了数据访问层的实现。
package repository

import (
	"time"

	"edumate-go/internal/model"

	"gorm.io/gorm"
)

// ConversationSummary 描述一个对话线程的概要信息。
type ConversationSummary struct {
	ConversationID string    `json:"conversationId"`
	AssistantID    string    `json:"assistantId"`
	TurnCount      int64     `json:"turnCount"`
	LastActiveAt   time.Time `json:"lastActiveAt"`
}

// ConversationRepository 定义了对话记录的操作接口。
// 对话记录只追加，不更新不删除（助手删除时级联清理除外）。
type ConversationRepository interface {
	Append(turn *model.ConversationTurn) error
	FindTurns(conversationID string, limit int) ([]model.ConversationTurn, error)
	FindRecentByThread(userID uint, assistantID string, limit int) ([]model.ConversationTurn, error)
	ListConversations(userID uint, assistantID string) ([]ConversationSummary, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Append 追加一条问答记录。
func (r *conversationRepository) Append(turn *model.ConversationTurn) error {
	return r.db.Create(turn).Error
}

// FindTurns 按时间倒序返回某个对话的问答记录。
func (r *conversationRepository) FindTurns(conversationID string, limit int) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	db := r.db.Where("conversation_id = ?", conversationID).Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&turns).Error
	return turns, err
}

// FindRecentByThread 按时间倒序返回用户与助手之间最近的问答记录。
func (r *conversationRepository) FindRecentByThread(userID uint, assistantID string, limit int) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	db := r.db.Where("user_id = ? AND assistant_id = ?", userID, assistantID).Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&turns).Error
	return turns, err
}

// ListConversations 返回用户的对话线程列表，可按助手过滤。
func (r *conversationRepository) ListConversations(userID uint, assistantID string) ([]ConversationSummary, error) {
	db := r.db.Model(&model.ConversationTurn{}).Where("user_id = ?", userID)
	if assistantID != "" {
		db = db.Where("assistant_id = ?", assistantID)
	}

	var summaries []ConversationSummary
	err := db.
		Select("conversation_id, assistant_id, COUNT(*) AS turn_count, MAX(created_at) AS last_active_at").
		Group("conversation_id, assistant_id").
		Order("last_active_at DESC").
		Scan(&summaries).Error
	return summaries, err
}

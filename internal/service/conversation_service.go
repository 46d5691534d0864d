package service

import (
	"edumate-go/internal/model"
	"edumate-go/internal/repository"
)

// ConversationService 接口定义了对话记录的查询操作。
type ConversationService interface {
	ListConversations(userID uint, assistantID string) ([]repository.ConversationSummary, error)
	GetTurns(userID uint, conversationID string, limit int) ([]model.ConversationTurn, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(conversationRepo repository.ConversationRepository) ConversationService {
	return &conversationService{conversationRepo: conversationRepo}
}

// ListConversations 返回用户的对话线程列表，可按助手过滤。
func (s *conversationService) ListConversations(userID uint, assistantID string) ([]repository.ConversationSummary, error) {
	return s.conversationRepo.ListConversations(userID, assistantID)
}

// GetTurns 按时间倒序返回一个对话的问答记录，仅返回属于该用户的记录。
func (s *conversationService) GetTurns(userID uint, conversationID string, limit int) ([]model.ConversationTurn, error) {
	turns, err := s.conversationRepo.FindTurns(conversationID, limit)
	if err != nil {
		return nil, err
	}
	owned := make([]model.ConversationTurn, 0, len(turns))
	for _, turn := range turns {
		if turn.UserID == userID {
			owned = append(owned, turn)
		}
	}
	return owned, nil
}

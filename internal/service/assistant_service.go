package service

import (
	"context"
	"strings"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/pkg/log"

	"github.com/google/uuid"
)

// CreateAssistantRequest 描述创建助手的入参。
type CreateAssistantRequest struct {
	Name                string `json:"name" binding:"required"`
	Subject             string `json:"subject" binding:"required"`
	Topic               string `json:"topic" binding:"required"`
	Description         string `json:"description"`
	TeacherInstructions string `json:"teacherInstructions"`
	Published           bool   `json:"published"`
}

// UpdateAssistantRequest 描述更新助手的入参。
// 所有字段均为可选，nil 表示保持原值。
type UpdateAssistantRequest struct {
	Name                *string `json:"name"`
	Subject             *string `json:"subject"`
	Topic               *string `json:"topic"`
	Description         *string `json:"description"`
	TeacherInstructions *string `json:"teacherInstructions"`
	Published           *bool   `json:"published"`
}

// AssistantService 接口定义了助手相关的业务操作。
type AssistantService interface {
	Create(userID uint, req CreateAssistantRequest) (*model.Assistant, error)
	Get(id string) (*model.Assistant, error)
	ListMine(userID uint) ([]model.Assistant, error)
	ListPublished(filter repository.AssistantFilter) ([]model.Assistant, error)
	Update(userID uint, id string, req UpdateAssistantRequest) (*model.Assistant, error)
	Delete(ctx context.Context, userID uint, id string) error
	SubmitRating(userID uint, id string, score int) (*model.Assistant, error)
}

type assistantService struct {
	assistantRepo   repository.AssistantRepository
	checkpointStore repository.CheckpointStore
}

// NewAssistantService 创建一个新的 AssistantService 实例。
func NewAssistantService(assistantRepo repository.AssistantRepository, checkpointStore repository.CheckpointStore) AssistantService {
	return &assistantService{
		assistantRepo:   assistantRepo,
		checkpointStore: checkpointStore,
	}
}

// Create 创建一个新的助手。
func (s *assistantService) Create(userID uint, req CreateAssistantRequest) (*model.Assistant, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewValidationError("助手名称不能为空")
	}

	assistant := &model.Assistant{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Name:                req.Name,
		Subject:             req.Subject,
		Topic:               req.Topic,
		Description:         req.Description,
		TeacherInstructions: req.TeacherInstructions,
		Published:           req.Published,
	}
	if err := s.assistantRepo.Create(assistant); err != nil {
		return nil, err
	}
	log.Infof("[AssistantService] 创建助手成功, ID: %s, Name: %s", assistant.ID, assistant.Name)
	return assistant, nil
}

func (s *assistantService) Get(id string) (*model.Assistant, error) {
	return s.assistantRepo.FindByID(id)
}

func (s *assistantService) ListMine(userID uint) ([]model.Assistant, error) {
	return s.assistantRepo.FindByUser(userID)
}

func (s *assistantService) ListPublished(filter repository.AssistantFilter) ([]model.Assistant, error) {
	return s.assistantRepo.FindPublished(filter)
}

// Update 更新助手信息，仅允许所有者操作。
// 只修改请求中显式携带的字段。
func (s *assistantService) Update(userID uint, id string, req UpdateAssistantRequest) (*model.Assistant, error) {
	assistant, err := s.assistantRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if assistant.UserID != userID {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, NewValidationError("助手名称不能为空")
		}
		assistant.Name = *req.Name
	}
	if req.Subject != nil {
		assistant.Subject = *req.Subject
	}
	if req.Topic != nil {
		assistant.Topic = *req.Topic
	}
	if req.Description != nil {
		assistant.Description = *req.Description
	}
	if req.TeacherInstructions != nil {
		assistant.TeacherInstructions = *req.TeacherInstructions
	}
	if req.Published != nil {
		assistant.Published = *req.Published
	}

	if err := s.assistantRepo.Update(assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

// Delete 删除助手及其知识库，仅允许所有者操作。
// 关联的工作流检查点一并清理，失败时仅记录日志。
func (s *assistantService) Delete(ctx context.Context, userID uint, id string) error {
	assistant, err := s.assistantRepo.FindByID(id)
	if err != nil {
		return err
	}
	if assistant.UserID != userID {
		return ErrForbidden
	}
	if err := s.assistantRepo.Delete(id); err != nil {
		return err
	}
	if err := s.checkpointStore.DeleteByAssistant(ctx, id); err != nil {
		log.Warnf("[AssistantService] 清理助手检查点失败, ID: %s, Error: %v", id, err)
	}
	return nil
}

// SubmitRating 提交评分，分数范围 1 到 5。
func (s *assistantService) SubmitRating(userID uint, id string, score int) (*model.Assistant, error) {
	if score < 1 || score > 5 {
		return nil, NewValidationError("评分必须在 1 到 5 之间")
	}
	if _, err := s.assistantRepo.FindByID(id); err != nil {
		return nil, err
	}
	return s.assistantRepo.SubmitRating(id, userID, score)
}

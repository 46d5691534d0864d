package service

import (
	"context"
	"testing"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAssistantRepo 返回固定的助手并记录删除调用，其余方法为空实现。
type stubAssistantRepo struct {
	assistant *model.Assistant
	deleted   []string
}

func (s *stubAssistantRepo) Create(*model.Assistant) error { return nil }
func (s *stubAssistantRepo) FindByID(id string) (*model.Assistant, error) {
	return s.assistant, nil
}
func (s *stubAssistantRepo) FindByUser(uint) ([]model.Assistant, error) { return nil, nil }
func (s *stubAssistantRepo) FindPublished(repository.AssistantFilter) ([]model.Assistant, error) {
	return nil, nil
}
func (s *stubAssistantRepo) Update(*model.Assistant) error { return nil }
func (s *stubAssistantRepo) Delete(id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}
func (s *stubAssistantRepo) SubmitRating(string, uint, int) (*model.Assistant, error) {
	return nil, nil
}
func (s *stubAssistantRepo) IncrementInteractions(string) error { return nil }

func newDocTestService(ownerID uint, completed *model.Document) DocumentService {
	assistantRepo := &stubAssistantRepo{assistant: &model.Assistant{ID: "a1", UserID: ownerID}}
	docRepo := &fakeDocumentRepo{}
	if completed != nil {
		docRepo.completedByTitle = completed
	}
	return NewDocumentService(assistantRepo, docRepo)
}

func TestAddURLRejectsInvalidURL(t *testing.T) {
	svc := newDocTestService(1, nil)

	for _, raw := range []string{"", "not-a-url", "ftp://example.com/file", "http://"} {
		_, err := svc.AddURL(context.Background(), 1, "a1", raw, "title")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "url %q", raw)
	}
}

func TestAddURLForbiddenForNonOwner(t *testing.T) {
	svc := newDocTestService(1, nil)

	_, err := svc.AddURL(context.Background(), 2, "a1", "https://example.com/article", "title")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddURLReusesCompletedDocument(t *testing.T) {
	existing := &model.Document{
		ID:          "doc-1",
		AssistantID: "a1",
		Title:       "title",
		Status:      model.DocStatusCompleted,
	}
	svc := newDocTestService(1, existing)

	doc, err := svc.AddURL(context.Background(), 1, "a1", "https://example.com/article", "title")
	require.NoError(t, err)

	// 同名且已完成的文档直接复用，不创建新记录
	assert.Equal(t, "doc-1", doc.ID)
}

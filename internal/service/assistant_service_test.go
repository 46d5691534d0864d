package service

import (
	"context"
	"testing"

	"edumate-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCheckpointStore 记录按助手清理检查点的调用。
type fakeCheckpointStore struct {
	deletedAssistants []string
}

func (f *fakeCheckpointStore) Load(ctx context.Context, userID uint, assistantID string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *fakeCheckpointStore) Save(ctx context.Context, userID uint, assistantID string, state interface{}) error {
	return nil
}

func (f *fakeCheckpointStore) DeleteByAssistant(ctx context.Context, assistantID string) error {
	f.deletedAssistants = append(f.deletedAssistants, assistantID)
	return nil
}

func TestDeleteAssistantClearsCheckpoints(t *testing.T) {
	repo := &stubAssistantRepo{assistant: &model.Assistant{ID: "a1", UserID: 1}}
	checkpoints := &fakeCheckpointStore{}
	svc := NewAssistantService(repo, checkpoints)

	err := svc.Delete(context.Background(), 1, "a1")
	require.NoError(t, err)

	assert.Equal(t, []string{"a1"}, repo.deleted)
	// 助手删除后其所有线程的检查点一并清理
	assert.Equal(t, []string{"a1"}, checkpoints.deletedAssistants)
}

func TestDeleteAssistantForbiddenForNonOwner(t *testing.T) {
	repo := &stubAssistantRepo{assistant: &model.Assistant{ID: "a1", UserID: 1}}
	checkpoints := &fakeCheckpointStore{}
	svc := NewAssistantService(repo, checkpoints)

	err := svc.Delete(context.Background(), 2, "a1")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, repo.deleted)
	assert.Empty(t, checkpoints.deletedAssistants)
}

func TestSubmitRatingValidatesScore(t *testing.T) {
	repo := &stubAssistantRepo{assistant: &model.Assistant{ID: "a1", UserID: 1}}
	svc := NewAssistantService(repo, &fakeCheckpointStore{})

	for _, score := range []int{0, -1, 6} {
		_, err := svc.SubmitRating(1, "a1", score)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "score %d", score)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"edumate-go/internal/model"
	"edumate-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.InitForTest()
}

type fakeEmbeddingClient struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// fakeDocumentRepo 只实现检索与文档服务测试需要的部分，其余方法为空实现。
type fakeDocumentRepo struct {
	chunks           []model.Chunk
	chunksErr        error
	docs             map[string]*model.Document
	completedByTitle *model.Document
}

func (f *fakeDocumentRepo) Create(doc *model.Document) error { return nil }
func (f *fakeDocumentRepo) FindByID(id string) (*model.Document, error) {
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return nil, errors.New("not found")
}
func (f *fakeDocumentRepo) FindByAssistant(assistantID string) ([]model.Document, error) {
	return nil, nil
}
func (f *fakeDocumentRepo) FindCompletedByTitle(assistantID, title string) (*model.Document, error) {
	return f.completedByTitle, nil
}
func (f *fakeDocumentRepo) UpdateStatus(id, status, errorMessage string) error    { return nil }
func (f *fakeDocumentRepo) UpdateMetadata(id, metadata string) error              { return nil }
func (f *fakeDocumentRepo) ReplaceChunks(docID string, chunks []model.Chunk) error { return nil }
func (f *fakeDocumentRepo) DeleteWithChunks(id string) error                      { return nil }
func (f *fakeDocumentRepo) FindChunksByAssistant(assistantID string) ([]model.Chunk, error) {
	return f.chunks, f.chunksErr
}

func TestSearchRanksByCosineDescending(t *testing.T) {
	embedder := &fakeEmbeddingClient{vector: []float32{1, 0}}
	repo := &fakeDocumentRepo{chunks: []model.Chunk{
		{ID: 1, Content: "orthogonal", Embedding: model.Vector{0, 1}},
		{ID: 2, Content: "exact", Embedding: model.Vector{1, 0}},
		{ID: 3, Content: "partial", Embedding: model.Vector{0.6, 0.8}},
	}}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "partial", results[1].Chunk.Content)
	assert.InDelta(t, 0.6, results[1].Score, 1e-9)
	assert.Equal(t, "orthogonal", results[2].Chunk.Content)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestSearchTruncatesToK(t *testing.T) {
	embedder := &fakeEmbeddingClient{vector: []float32{1, 0}}
	repo := &fakeDocumentRepo{chunks: []model.Chunk{
		{ID: 1, Embedding: model.Vector{1, 0}},
		{ID: 2, Embedding: model.Vector{0.9, 0.1}},
		{ID: 3, Embedding: model.Vector{0.5, 0.5}},
	}}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchStableOrderOnTies(t *testing.T) {
	embedder := &fakeEmbeddingClient{vector: []float32{1, 0}}
	repo := &fakeDocumentRepo{chunks: []model.Chunk{
		{ID: 1, Content: "first", Embedding: model.Vector{1, 0}},
		{ID: 2, Content: "second", Embedding: model.Vector{1, 0}},
		{ID: 3, Content: "third", Embedding: model.Vector{1, 0}},
	}}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 得分相同的切块保持插入顺序
	assert.Equal(t, "first", results[0].Chunk.Content)
	assert.Equal(t, "second", results[1].Chunk.Content)
	assert.Equal(t, "third", results[2].Chunk.Content)
}

func TestSearchDegradesToEmptyOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbeddingClient{err: errors.New("provider down")}
	repo := &fakeDocumentRepo{chunks: []model.Chunk{{ID: 1, Embedding: model.Vector{1, 0}}}}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyKnowledgeBase(t *testing.T) {
	embedder := &fakeEmbeddingClient{vector: []float32{1, 0}}
	repo := &fakeDocumentRepo{}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchSkipsChunksWithoutEmbedding(t *testing.T) {
	embedder := &fakeEmbeddingClient{vector: []float32{1, 0}}
	repo := &fakeDocumentRepo{chunks: []model.Chunk{
		{ID: 1, Content: "no vector"},
		{ID: 2, Content: "has vector", Embedding: model.Vector{1, 0}},
	}}
	svc := NewRetrievalService(embedder, repo)

	results, err := svc.Search(context.Background(), "query", "a1", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "has vector", results[0].Chunk.Content)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

package service

import (
	"context"
	"math"
	"sort"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/pkg/embedding"
	"edumate-go/pkg/log"
)

// ScoredChunk 是一条带相似度得分的检索结果。
type ScoredChunk struct {
	Chunk model.Chunk
	Score float64
}

// RetrievalService 接口定义了知识库检索操作。
type RetrievalService interface {
	Search(ctx context.Context, query, assistantID string, k int) ([]ScoredChunk, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	docRepo         repository.DocumentRepository
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embeddingClient embedding.Client, docRepo repository.DocumentRepository) RetrievalService {
	return &retrievalService{
		embeddingClient: embeddingClient,
		docRepo:         docRepo,
	}
}

// Search 对助手的知识库做余弦相似度检索，返回得分最高的 k 条切块。
// 检索是尽力而为的：向量化失败或没有候选时返回空结果而非错误。
func (s *retrievalService) Search(ctx context.Context, query, assistantID string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 5
	}

	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Warnf("[RetrievalService] 查询向量化失败, 返回空结果: %v", err)
		return []ScoredChunk{}, nil
	}

	chunks, err := s.docRepo.FindChunksByAssistant(assistantID)
	if err != nil {
		log.Warnf("[RetrievalService] 读取切块失败, 返回空结果: %v", err)
		return []ScoredChunk{}, nil
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(queryVector, chunk.Embedding),
		})
	}

	// 稳定排序：得分相同的切块保持插入顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity 计算两个向量的余弦相似度 dot/(||a||*||b||)。
// 维度不一致或任一向量为零向量时返回 0。
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

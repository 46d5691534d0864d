// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"edumate-go/internal/config"
	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/pkg/embedding"
	"edumate-go/pkg/extract"
	"edumate-go/pkg/log"
	"edumate-go/pkg/storage"
	"edumate-go/pkg/tasks"
)

// IngestionError 表示摄取流程中的一次失败，携带失败发生的阶段。
type IngestionError struct {
	Step string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Step, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// Processor 封装了文档摄取的所有依赖和逻辑。
type Processor struct {
	tikaClient      *extract.TikaClient
	embeddingClient embedding.Client
	ingestCfg       config.IngestConfig
	docRepo         repository.DocumentRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *extract.TikaClient,
	embeddingClient embedding.Client,
	ingestCfg config.IngestConfig,
	docRepo repository.DocumentRepository,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		ingestCfg:       ingestCfg,
		docRepo:         docRepo,
	}
}

// Process 是文档摄取的主函数，由 Kafka 消费者调用。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentTask) error {
	log.Infof("[Processor] 开始处理文档, DocID: %s, SourceKind: %s, Title: %s", task.DocID, task.SourceKind, task.Title)

	doc, err := p.docRepo.FindByID(task.DocID)
	if err != nil {
		log.Errorf("[Processor] 查询文档记录失败, DocID: %s, Error: %v", task.DocID, err)
		return &IngestionError{Step: "load_document", Err: err}
	}

	// 队列是至少一次投递，已完成的文档直接跳过
	if doc.Status == model.DocStatusCompleted {
		log.Infof("[Processor] 文档已处理完成，跳过, DocID: %s", task.DocID)
		return nil
	}

	if err := p.docRepo.UpdateStatus(task.DocID, model.DocStatusProcessing, ""); err != nil {
		return &IngestionError{Step: "mark_processing", Err: err}
	}

	if err := p.process(ctx, task); err != nil {
		// 失败时标记 failed，事务保证没有半写入的切块
		if markErr := p.docRepo.UpdateStatus(task.DocID, model.DocStatusFailed, err.Error()); markErr != nil {
			log.Errorf("[Processor] 标记文档失败状态时出错, DocID: %s, Error: %v", task.DocID, markErr)
		}
		return err
	}

	if err := p.docRepo.UpdateStatus(task.DocID, model.DocStatusCompleted, ""); err != nil {
		return &IngestionError{Step: "mark_completed", Err: err}
	}
	log.Infof("[Processor] 文档处理成功完成, DocID: %s", task.DocID)
	return nil
}

func (p *Processor) process(ctx context.Context, task tasks.DocumentTask) error {
	// 1. 按来源类型提取纯文本
	textContent, err := p.extractText(ctx, task)
	if err != nil {
		log.Errorf("[Processor] 文本提取失败, DocID: %s, Error: %v", task.DocID, err)
		return &IngestionError{Step: "extract", Err: err}
	}
	if textContent == "" {
		return &IngestionError{Step: "extract", Err: errors.New("提取的文本内容为空")}
	}
	log.Infof("[Processor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 2. 文本切块
	chunkSize := p.ingestCfg.ChunkSizeOrDefault()
	chunkOverlap := p.ingestCfg.ChunkOverlapOrDefault()
	pieces := SplitText(textContent, chunkSize, chunkOverlap)
	log.Infof("[Processor] 文本分块完成, chunkSize: %d, chunkOverlap: %d, 共 %d 个分块", chunkSize, chunkOverlap, len(pieces))
	if len(pieces) == 0 {
		return &IngestionError{Step: "split", Err: errors.New("未生成任何文本分块")}
	}

	// 3. 逐块向量化
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		vector, err := p.embeddingClient.CreateEmbedding(ctx, piece)
		if err != nil {
			log.Errorf("[Processor] 分块 %d 向量化失败, Error: %v", i, err)
			return &IngestionError{Step: "embed", Err: fmt.Errorf("块 %d 向量化失败: %w", i, err)}
		}
		chunks = append(chunks, model.Chunk{
			DocumentID:  task.DocID,
			AssistantID: task.AssistantID,
			Seq:         i,
			Content:     piece,
			Embedding:   vector,
		})
	}

	// 4. 在一个事务内写入全部切块
	if err := p.docRepo.ReplaceChunks(task.DocID, chunks); err != nil {
		log.Errorf("[Processor] 批量保存文本分块到数据库失败, Error: %v", err)
		return &IngestionError{Step: "persist", Err: err}
	}
	log.Infof("[Processor] 成功将 %d 个分块存入数据库", len(chunks))

	// 5. 记录处理元数据
	metadata, _ := json.Marshal(map[string]interface{}{
		"chunk_count": len(chunks),
		"source_kind": task.SourceKind,
		"source_ref":  task.SourceRef,
	})
	if err := p.docRepo.UpdateMetadata(task.DocID, string(metadata)); err != nil {
		log.Warnf("[Processor] 更新文档元数据失败, DocID: %s, Error: %v", task.DocID, err)
	}
	return nil
}

// extractText 按来源类型分派到对应的提取器。
func (p *Processor) extractText(ctx context.Context, task tasks.DocumentTask) (string, error) {
	switch task.SourceKind {
	case model.SourceKindPDF:
		// PDF 原始文件存放在 MinIO，先下载再交给 Tika
		object, err := storage.GetObject(ctx, task.SourceRef)
		if err != nil {
			return "", fmt.Errorf("从 MinIO 下载文件失败: %w", err)
		}
		defer object.Close()

		buf := new(bytes.Buffer)
		size, err := buf.ReadFrom(object)
		if err != nil {
			return "", fmt.Errorf("读取 MinIO 对象流失败: %w", err)
		}
		if size == 0 {
			return "", errors.New("文件内容为空")
		}
		return p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.SourceRef)
	case model.SourceKindWeb:
		return extract.FetchArticle(ctx, task.SourceRef)
	case model.SourceKindYouTube:
		return extract.FetchTranscript(ctx, task.SourceRef)
	default:
		return "", fmt.Errorf("未知的来源类型: %s", task.SourceKind)
	}
}

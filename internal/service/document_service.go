package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"

	"edumate-go/internal/model"
	"edumate-go/internal/repository"
	"edumate-go/pkg/extract"
	"edumate-go/pkg/kafka"
	"edumate-go/pkg/log"
	"edumate-go/pkg/storage"
	"edumate-go/pkg/tasks"

	"github.com/google/uuid"
)

// DocumentService 接口定义了知识库文档的业务操作。
type DocumentService interface {
	UploadPDF(ctx context.Context, userID uint, assistantID string, file multipart.File, header *multipart.FileHeader, title string) (*model.Document, error)
	AddURL(ctx context.Context, userID uint, assistantID, rawURL, title string) (*model.Document, error)
	List(userID uint, assistantID string) ([]model.Document, error)
	Delete(ctx context.Context, userID uint, docID string) error
}

type documentService struct {
	assistantRepo repository.AssistantRepository
	docRepo       repository.DocumentRepository
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(assistantRepo repository.AssistantRepository, docRepo repository.DocumentRepository) DocumentService {
	return &documentService{
		assistantRepo: assistantRepo,
		docRepo:       docRepo,
	}
}

// UploadPDF 处理 PDF 上传：原始文件写入 MinIO，创建 pending 文档记录并发送处理任务。
func (s *documentService) UploadPDF(ctx context.Context, userID uint, assistantID string, file multipart.File, header *multipart.FileHeader, title string) (*model.Document, error) {
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return nil, NewValidationError("仅支持上传 PDF 文件")
	}
	if title == "" {
		title = header.Filename
	}

	assistant, err := s.assistantRepo.FindByID(assistantID)
	if err != nil {
		return nil, err
	}
	if assistant.UserID != userID {
		return nil, ErrForbidden
	}

	// 同名且已完成的文档直接复用，避免重复摄取
	if existing, err := s.docRepo.FindCompletedByTitle(assistantID, title); err != nil {
		return nil, err
	} else if existing != nil {
		log.Infof("[DocumentService] 文档已存在且处理完成, 跳过上传, Title: %s", title)
		return existing, nil
	}

	docID := uuid.NewString()
	objectName := fmt.Sprintf("documents/%s.pdf", docID)
	if err := storage.PutObject(ctx, objectName, file, header.Size, "application/pdf"); err != nil {
		return nil, fmt.Errorf("上传文件到 MinIO 失败: %w", err)
	}

	doc := &model.Document{
		ID:          docID,
		AssistantID: assistantID,
		UserID:      userID,
		Title:       title,
		SourceKind:  model.SourceKindPDF,
		SourceRef:   objectName,
		Status:      model.DocStatusPending,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}

	if err := s.enqueue(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AddURL 处理网页或 YouTube 来源：校验 URL，创建 pending 文档记录并发送处理任务。
func (s *documentService) AddURL(ctx context.Context, userID uint, assistantID, rawURL, title string) (*model.Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, NewValidationError("无效的 URL")
	}
	if title == "" {
		title = rawURL
	}

	assistant, err := s.assistantRepo.FindByID(assistantID)
	if err != nil {
		return nil, err
	}
	if assistant.UserID != userID {
		return nil, ErrForbidden
	}

	if existing, err := s.docRepo.FindCompletedByTitle(assistantID, title); err != nil {
		return nil, err
	} else if existing != nil {
		log.Infof("[DocumentService] 文档已存在且处理完成, 跳过添加, Title: %s", title)
		return existing, nil
	}

	sourceKind := model.SourceKindWeb
	if extract.IsYouTubeURL(rawURL) {
		sourceKind = model.SourceKindYouTube
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		AssistantID: assistantID,
		UserID:      userID,
		Title:       title,
		SourceKind:  sourceKind,
		SourceRef:   rawURL,
		Status:      model.DocStatusPending,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}

	if err := s.enqueue(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) enqueue(doc *model.Document) error {
	task := tasks.DocumentTask{
		DocID:       doc.ID,
		AssistantID: doc.AssistantID,
		UserID:      doc.UserID,
		SourceKind:  doc.SourceKind,
		SourceRef:   doc.SourceRef,
		Title:       doc.Title,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		log.Errorf("[DocumentService] 发送文档处理任务失败, DocID: %s, Error: %v", doc.ID, err)
		// 入队失败时将文档标记为 failed，避免永远停在 pending
		_ = s.docRepo.UpdateStatus(doc.ID, model.DocStatusFailed, "发送处理任务失败")
		return fmt.Errorf("发送文档处理任务失败: %w", err)
	}
	log.Infof("[DocumentService] 文档处理任务已入队, DocID: %s", doc.ID)
	return nil
}

// List 返回助手的文档列表，仅允许所有者查看。
func (s *documentService) List(userID uint, assistantID string) ([]model.Document, error) {
	assistant, err := s.assistantRepo.FindByID(assistantID)
	if err != nil {
		return nil, err
	}
	if assistant.UserID != userID {
		return nil, ErrForbidden
	}
	return s.docRepo.FindByAssistant(assistantID)
}

// Delete 删除文档及其切块，并清理 MinIO 中的原始文件。
func (s *documentService) Delete(ctx context.Context, userID uint, docID string) error {
	doc, err := s.docRepo.FindByID(docID)
	if err != nil {
		return err
	}
	if doc.UserID != userID {
		return ErrForbidden
	}

	if doc.SourceKind == model.SourceKindPDF {
		if err := storage.RemoveObject(ctx, doc.SourceRef); err != nil {
			log.Warnf("[DocumentService] 删除 MinIO 对象失败, Object: %s, Error: %v", doc.SourceRef, err)
		}
	}
	return s.docRepo.DeleteWithChunks(docID)
}

package repository

import (
	"edumate-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 接口定义了文档与切块数据的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id string) (*model.Document, error)
	FindByAssistant(assistantID string) ([]model.Document, error)
	FindCompletedByTitle(assistantID, title string) (*model.Document, error)
	UpdateStatus(id, status, errorMessage string) error
	UpdateMetadata(id, metadata string) error
	ReplaceChunks(docID string, chunks []model.Chunk) error
	DeleteWithChunks(id string) error
	FindChunksByAssistant(assistantID string) ([]model.Chunk, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) FindByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByAssistant(assistantID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("assistant_id = ?", assistantID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// FindCompletedByTitle 查找同一助手下同名且已处理完成的文档，用于去重。
func (r *documentRepository) FindCompletedByTitle(assistantID, title string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("assistant_id = ? AND title = ? AND status = ?",
		assistantID, title, model.DocStatusCompleted).First(&doc).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) UpdateStatus(id, status, errorMessage string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "error_message": errorMessage}).Error
}

func (r *documentRepository) UpdateMetadata(id, metadata string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("metadata", metadata).Error
}

// ReplaceChunks 在一个事务内删除文档的旧切块并写入新切块。
// 事务失败时不会留下半写入的切块。
func (r *documentRepository) ReplaceChunks(docID string, chunks []model.Chunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
}

// DeleteWithChunks 删除文档及其所有切块。
func (r *documentRepository) DeleteWithChunks(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Document{}).Error
	})
}

// FindChunksByAssistant 返回助手所有已完成文档的切块，按插入顺序排列。
func (r *documentRepository) FindChunksByAssistant(assistantID string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := r.db.
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("chunks.assistant_id = ? AND documents.status = ?", assistantID, model.DocStatusCompleted).
		Order("chunks.id ASC").
		Find(&chunks).Error
	return chunks, err
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 文档处理状态。
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// 文档来源类型。
const (
	SourceKindPDF     = "pdf"
	SourceKindWeb     = "web"
	SourceKindYouTube = "youtube"
)

// Document 定义了 documents 表的 ORM 模型。
// SourceRef 对 PDF 是 MinIO 对象名，对网页和 YouTube 是 URL。
type Document struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssistantID  string    `gorm:"type:varchar(36);not null;index" json:"assistantId"`
	UserID       uint      `gorm:"not null" json:"userId"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	SourceKind   string    `gorm:"type:varchar(20);not null" json:"sourceKind"`
	SourceRef    string    `gorm:"type:varchar(1024);not null" json:"sourceRef"`
	Status       string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	Metadata     string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// Vector 是存储在 MySQL text 列中的 JSON 序列化向量。
type Vector []float32

// Value implements the driver.Valuer interface.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("unsupported type for Vector: %T", value)
	}
}

// Chunk 定义了 chunks 表的 ORM 模型。
// 一条记录对应切块后的一个文本片段及其向量。
type Chunk struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID  string `gorm:"type:varchar(36);not null;index" json:"documentId"`
	AssistantID string `gorm:"type:varchar(36);not null;index" json:"assistantId"`
	Seq         int    `gorm:"not null" json:"seq"`
	Content     string `gorm:"type:text;not null" json:"content"`
	Embedding   Vector `gorm:"type:longtext" json:"-"`
}

func (Chunk) TableName() string {
	return "chunks"
}

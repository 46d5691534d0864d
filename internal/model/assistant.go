package model

import "time"

// Assistant 定义了 assistants 表的 ORM 模型。
// 一个助手绑定一个学科与主题，并拥有自己的知识库文档。
type Assistant struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID              uint      `gorm:"index;not null" json:"userId"`
	Name                string    `gorm:"type:varchar(100);not null" json:"name"`
	Subject             string    `gorm:"type:varchar(100);not null" json:"subject"`
	Topic               string    `gorm:"type:varchar(100);not null" json:"topic"`
	Description         string    `gorm:"type:text" json:"description"`
	TeacherInstructions string    `gorm:"type:text" json:"teacherInstructions"`
	Published           bool      `gorm:"not null;default:false" json:"published"`
	Interactions        int64     `gorm:"not null;default:0" json:"interactions"`
	AverageRating       float64   `gorm:"not null;default:0" json:"averageRating"`
	TotalReviews        int64     `gorm:"not null;default:0" json:"totalReviews"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Assistant) TableName() string {
	return "assistants"
}

// AssistantRating 定义了 assistant_ratings 表的 ORM 模型。
// 每个用户对同一个助手只保留一条评分记录。
type AssistantRating struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AssistantID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_assistant_user" json:"assistantId"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_assistant_user" json:"userId"`
	Score       int       `gorm:"not null" json:"score"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (AssistantRating) TableName() string {
	return "assistant_ratings"
}

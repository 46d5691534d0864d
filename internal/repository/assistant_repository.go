package repository

import (
	"fmt"
	"math"

	"edumate-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssistantFilter 描述助手列表查询的过滤条件。
type AssistantFilter struct {
	Keyword   string
	Subject   string
	Topic     string
	MinRating float64
	MaxRating float64
}

// AssistantRepository 接口定义了助手数据的持久化操作。
type AssistantRepository interface {
	Create(assistant *model.Assistant) error
	FindByID(id string) (*model.Assistant, error)
	FindByUser(userID uint) ([]model.Assistant, error)
	FindPublished(filter AssistantFilter) ([]model.Assistant, error)
	Update(assistant *model.Assistant) error
	Delete(id string) error
	SubmitRating(assistantID string, userID uint, score int) (*model.Assistant, error)
	IncrementInteractions(assistantID string) error
}

type assistantRepository struct {
	db *gorm.DB
}

// NewAssistantRepository 创建一个新的 AssistantRepository 实例。
func NewAssistantRepository(db *gorm.DB) AssistantRepository {
	return &assistantRepository{db: db}
}

func (r *assistantRepository) Create(assistant *model.Assistant) error {
	return r.db.Create(assistant).Error
}

func (r *assistantRepository) FindByID(id string) (*model.Assistant, error) {
	var assistant model.Assistant
	err := r.db.Where("id = ?", id).First(&assistant).Error
	if err != nil {
		return nil, err
	}
	return &assistant, nil
}

func (r *assistantRepository) FindByUser(userID uint) ([]model.Assistant, error) {
	var assistants []model.Assistant
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&assistants).Error
	return assistants, err
}

// FindPublished 按过滤条件检索已发布的助手，按评分从高到低排序。
func (r *assistantRepository) FindPublished(filter AssistantFilter) ([]model.Assistant, error) {
	db := r.db.Model(&model.Assistant{}).Where("published = ?", true)

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if filter.Subject != "" {
		db = db.Where("subject = ?", filter.Subject)
	}
	if filter.Topic != "" {
		db = db.Where("topic = ?", filter.Topic)
	}
	if filter.MinRating > 0 {
		db = db.Where("average_rating >= ?", filter.MinRating)
	}
	if filter.MaxRating > 0 {
		db = db.Where("average_rating <= ?", filter.MaxRating)
	}

	var assistants []model.Assistant
	err := db.Order("average_rating DESC, created_at DESC").Find(&assistants).Error
	return assistants, err
}

func (r *assistantRepository) Update(assistant *model.Assistant) error {
	return r.db.Save(assistant).Error
}

// Delete 删除助手及其所有关联数据（文档、切块、对话记录、评分）。
func (r *assistantRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assistant_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&model.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&model.ConversationTurn{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&model.AssistantRating{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Assistant{}).Error
	})
}

// SubmitRating 写入或更新用户对助手的评分，并在行锁保护下重算聚合值。
// 平均分保留一位小数。
func (r *assistantRepository) SubmitRating(assistantID string, userID uint, score int) (*model.Assistant, error) {
	var updated model.Assistant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// 先锁住助手行，评分的读改写都在锁内完成
		var assistant model.Assistant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", assistantID).First(&assistant).Error; err != nil {
			return err
		}

		var rating model.AssistantRating
		err := tx.Where("assistant_id = ? AND user_id = ?", assistantID, userID).First(&rating).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			rating = model.AssistantRating{AssistantID: assistantID, UserID: userID, Score: score}
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			rating.Score = score
			if err := tx.Save(&rating).Error; err != nil {
				return err
			}
		}

		// 重算平均分与评分总数
		var scores []int
		if err := tx.Model(&model.AssistantRating{}).
			Where("assistant_id = ?", assistantID).
			Pluck("score", &scores).Error; err != nil {
			return err
		}

		assistant.AverageRating, assistant.TotalReviews = aggregateScores(scores)
		if err := tx.Save(&assistant).Error; err != nil {
			return err
		}
		updated = assistant
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit rating: %w", err)
	}
	return &updated, nil
}

// aggregateScores 计算评分的平均值与总数，平均分保留一位小数。
func aggregateScores(scores []int) (float64, int64) {
	if len(scores) == 0 {
		return 0, 0
	}
	sum := 0
	for _, score := range scores {
		sum += score
	}
	avg := float64(sum) / float64(len(scores))
	return math.Round(avg*10) / 10, int64(len(scores))
}

// IncrementInteractions 在行锁保护下将助手的对话次数加一。
func (r *assistantRepository) IncrementInteractions(assistantID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var assistant model.Assistant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", assistantID).First(&assistant).Error; err != nil {
			return err
		}
		assistant.Interactions++
		return tx.Save(&assistant).Error
	})
}

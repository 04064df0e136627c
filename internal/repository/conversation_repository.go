package repository

import (
	"context"
	"fitcoach-go/internal/model"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ConversationStats aggregates a user's conversations.
type ConversationStats struct {
	Total         int64
	Completed     int64
	AverageRating *float64
}

// ConversationRepository persists chat sessions.
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id uint) (*model.Conversation, error)
	// FindActiveSince returns the newest active conversation of the user
	// created at or after since.
	FindActiveSince(ctx context.Context, userID uint, since time.Time) (*model.Conversation, error)
	// Update writes only the given columns of conversation id.
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	ListByUser(ctx context.Context, userID uint, status model.ConversationStatus, limit int) ([]model.Conversation, error)
	StatsByUser(ctx context.Context, userID uint) (ConversationStats, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a gorm backed ConversationRepository.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *conversationRepository) FindActiveSince(ctx context.Context, userID uint, since time.Time) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, model.StatusActive, since).
		Order("created_at DESC").Order("id DESC").
		First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *conversationRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update conversation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's conversations, newest first. An empty status
// matches every status; limit <= 0 means no limit.
func (r *conversationRepository) ListByUser(ctx context.Context, userID uint, status model.ConversationStatus, limit int) ([]model.Conversation, error) {
	var convs []model.Conversation
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations of user %d: %w", userID, err)
	}
	return convs, nil
}

func (r *conversationRepository) StatsByUser(ctx context.Context, userID uint) (ConversationStats, error) {
	var row struct {
		Total         int64
		Completed     int64
		AverageRating *float64
	}
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed, "+
			"AVG(satisfaction_rating) AS average_rating", model.StatusCompleted).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return ConversationStats{}, fmt.Errorf("failed to aggregate conversations of user %d: %w", userID, err)
	}
	return ConversationStats{Total: row.Total, Completed: row.Completed, AverageRating: row.AverageRating}, nil
}

package repository

import (
	"context"
	"fitcoach-go/internal/model"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatContextRepository stores the keyed working memory of conversations.
type ChatContextRepository interface {
	// Set upserts the record for (conversation, type, key). The last write
	// wins; no history is kept.
	Set(ctx context.Context, conversationID uint, contextType model.ContextType, key string, value datatypes.JSON, relevance float64) error
	Get(ctx context.Context, conversationID uint, contextType model.ContextType, key string) (*model.ChatContext, error)
	// ListByConversation returns every record, most relevant first.
	ListByConversation(ctx context.Context, conversationID uint) ([]model.ChatContext, error)
}

type chatContextRepository struct {
	db *gorm.DB
}

// NewChatContextRepository creates a gorm backed ChatContextRepository.
func NewChatContextRepository(db *gorm.DB) ChatContextRepository {
	return &chatContextRepository{db: db}
}

func (r *chatContextRepository) Set(ctx context.Context, conversationID uint, contextType model.ContextType, key string, value datatypes.JSON, relevance float64) error {
	record := model.ChatContext{
		ConversationID: conversationID,
		ContextType:    contextType,
		ContextKey:     key,
		ContextValue:   value,
		Relevance:      relevance,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "context_type"}, {Name: "context_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"context_value", "relevance", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to set context %s/%s of conversation %d: %w", contextType, key, conversationID, err)
	}
	return nil
}

func (r *chatContextRepository) Get(ctx context.Context, conversationID uint, contextType model.ContextType, key string) (*model.ChatContext, error) {
	var record model.ChatContext
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND context_type = ? AND context_key = ?", conversationID, contextType, key).
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *chatContextRepository) ListByConversation(ctx context.Context, conversationID uint) ([]model.ChatContext, error) {
	var records []model.ChatContext
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("relevance DESC").Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list context of conversation %d: %w", conversationID, err)
	}
	return records, nil
}

package repository

import (
	"context"
	"fitcoach-go/internal/model"
	"fmt"

	"gorm.io/gorm"
)

// MessageRepository persists conversation turns.
type MessageRepository interface {
	// Create stores msg and bumps the conversation's message count and
	// last activity in the same transaction.
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uint) (*model.Message, error)
	UpdateIntent(ctx context.Context, id uint, intent model.Intent) error
	UpdateReaction(ctx context.Context, id uint, reaction model.Reaction) error
	// ListByConversation returns up to limit messages in creation order.
	ListByConversation(ctx context.Context, conversationID uint, limit int) ([]model.Message, error)
	// RecentBefore returns the last n messages older than beforeID, in
	// creation order.
	RecentBefore(ctx context.Context, conversationID, beforeID uint, n int) ([]model.Message, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	IntentCountsByUser(ctx context.Context, userID uint) (map[model.Intent]int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a gorm backed MessageRepository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumns(map[string]interface{}{
				"message_count":    gorm.Expr("message_count + ?", 1),
				"last_activity_at": msg.CreatedAt,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create message in conversation %d: %w", msg.ConversationID, err)
	}
	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *messageRepository) UpdateIntent(ctx context.Context, id uint, intent model.Intent) error {
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		UpdateColumn("intent_detected", intent).Error
	if err != nil {
		return fmt.Errorf("failed to set intent of message %d: %w", id, err)
	}
	return nil
}

func (r *messageRepository) UpdateReaction(ctx context.Context, id uint, reaction model.Reaction) error {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		UpdateColumn("user_reaction", reaction)
	if res.Error != nil {
		return fmt.Errorf("failed to set reaction of message %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint, limit int) ([]model.Message, error) {
	var msgs []model.Message
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages of conversation %d: %w", conversationID, err)
	}
	return msgs, nil
}

func (r *messageRepository) RecentBefore(ctx context.Context, conversationID, beforeID uint, n int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id < ?", conversationID, beforeID).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages of conversation %d: %w", conversationID, err)
	}
	// newest first -> chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Joins("JOIN chat_conversations ON chat_conversations.id = chat_messages.conversation_id").
		Where("chat_conversations.user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count messages of user %d: %w", userID, err)
	}
	return count, nil
}

// IntentCountsByUser counts the intents detected on the user's own messages.
func (r *messageRepository) IntentCountsByUser(ctx context.Context, userID uint) (map[model.Intent]int64, error) {
	var rows []struct {
		Intent model.Intent
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("chat_messages.intent_detected AS intent, COUNT(*) AS total").
		Joins("JOIN chat_conversations ON chat_conversations.id = chat_messages.conversation_id").
		Where("chat_conversations.user_id = ? AND chat_messages.message_type = ? AND chat_messages.intent_detected IS NOT NULL",
			userID, model.MessageUser).
		Group("chat_messages.intent_detected").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count intents of user %d: %w", userID, err)
	}
	counts := make(map[model.Intent]int64, len(rows))
	for _, row := range rows {
		counts[row.Intent] = row.Total
	}
	return counts, nil
}

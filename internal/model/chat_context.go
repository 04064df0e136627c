package model

import (
	"time"

	"gorm.io/datatypes"
)

// ContextType groups context records of a conversation.
type ContextType string

const (
	ContextUserProfile    ContextType = "user_profile"
	ContextWorkoutHistory ContextType = "workout_history"
	ContextPreferences    ContextType = "preferences"
)

// Context keys written by the chat service.
const (
	KeyBasicInfo         = "basic_info"
	KeyRecentWorkouts    = "recent_workouts"
	KeyConversationStyle = "conversation_style"
	KeyMessageStyle      = "message_style"
	KeyTopicsOfInterest  = "topics_of_interest"
)

// ChatContext is a keyed fact the assistant keeps about a conversation.
// There is one row per (conversation, type, key); writes overwrite it.
type ChatContext struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint           `gorm:"not null;uniqueIndex:idx_chat_context_key" json:"conversationId"`
	ContextType    ContextType    `gorm:"type:varchar(30);not null;uniqueIndex:idx_chat_context_key" json:"contextType"`
	ContextKey     string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_chat_context_key" json:"contextKey"`
	ContextValue   datatypes.JSON `json:"contextValue"`
	Relevance      float64        `gorm:"not null;default:1" json:"relevance"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (ChatContext) TableName() string {
	return "chat_contexts"
}

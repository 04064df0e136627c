// Package model contains the gorm models and the domain enums of the chat.
package model

import "time"

// ConversationType is the coaching theme chosen when a session starts.
type ConversationType string

const (
	TypeGeneralFitness      ConversationType = "general_fitness"
	TypeWorkoutConsultation ConversationType = "workout_consultation"
	TypeProgressAnalysis    ConversationType = "progress_analysis"
	TypeMotivationChat      ConversationType = "motivation_chat"
	TypeTechniqueGuidance   ConversationType = "technique_guidance"
)

// Valid reports whether t is one of the known conversation types.
func (t ConversationType) Valid() bool {
	switch t {
	case TypeGeneralFitness, TypeWorkoutConsultation, TypeProgressAnalysis,
		TypeMotivationChat, TypeTechniqueGuidance:
		return true
	}
	return false
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
)

// Conversation is one chat session between a user and the assistant.
type Conversation struct {
	ID                 uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint               `gorm:"index;not null" json:"userId"`
	Title              string             `gorm:"type:varchar(255)" json:"title"`
	ConversationType   ConversationType   `gorm:"type:varchar(30);not null;default:general_fitness" json:"conversationType"`
	Status             ConversationStatus `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	AIModelUsed        string             `gorm:"type:varchar(50)" json:"aiModelUsed"`
	SatisfactionRating *float64           `gorm:"default:null" json:"satisfactionRating"`
	MessageCount       int                `gorm:"not null;default:0" json:"messageCount"`
	CreatedAt          time.Time          `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	LastActivityAt     *time.Time         `gorm:"default:null" json:"lastActivityAt"`
}

func (Conversation) TableName() string {
	return "chat_conversations"
}

// ExpiredAt reports whether the conversation is older than timeout at now.
// Status is ignored: a completed conversation can still be within the window.
func (c *Conversation) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.CreatedAt) > timeout
}

package model

import "time"

// MessageType tells who authored a message.
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

const MessageDelivered = "delivered"

// Reaction is the feedback a user can leave on an assistant message.
type Reaction string

const (
	ReactionHelpful    Reaction = "helpful"
	ReactionNotHelpful Reaction = "not_helpful"
	ReactionLike       Reaction = "like"
	ReactionDislike    Reaction = "dislike"
)

func (r Reaction) Valid() bool {
	switch r {
	case ReactionHelpful, ReactionNotHelpful, ReactionLike, ReactionDislike:
		return true
	}
	return false
}

// Message is a single conversation turn. Rows are immutable once written,
// except for IntentDetected on user messages and UserReaction on replies.
type Message struct {
	ID             uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint        `gorm:"index;not null" json:"conversationId"`
	MessageType    MessageType `gorm:"type:varchar(10);not null" json:"type"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Status         string      `gorm:"type:varchar(20);not null;default:delivered" json:"status"`
	// ConfidenceScore is in [0,1]; nil for user messages.
	ConfidenceScore *float64 `gorm:"default:null" json:"confidence"`
	ResponseTimeMs  float64  `gorm:"not null;default:0" json:"responseTimeMs"`
	// TokensEstimate is words x 1.3, an approximation and not a tokenizer count.
	TokensEstimate float64    `gorm:"not null;default:0" json:"tokensEstimate"`
	IntentDetected *Intent    `gorm:"type:varchar(30);default:null;index" json:"intent"`
	AIModelVersion string     `gorm:"type:varchar(50)" json:"aiModelVersion,omitempty"`
	UserReaction   *Reaction  `gorm:"type:varchar(20);default:null" json:"userReaction"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
}

func (Message) TableName() string {
	return "chat_messages"
}

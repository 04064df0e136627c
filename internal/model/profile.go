package model

import (
	"time"

	"gorm.io/datatypes"
)

// The models below belong to the user, profile and workout subsystems.
// The chat service only reads them.

// User is the account the conversation belongs to.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:varchar(150);uniqueIndex" json:"username"`
	FirstName string `gorm:"type:varchar(150)" json:"firstName"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile holds the fitness facts a user filled in.
type UserProfile struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"uniqueIndex;not null" json:"userId"`
	Goal          string         `gorm:"type:varchar(50)" json:"goal"`
	ActivityLevel string         `gorm:"type:varchar(50)" json:"activityLevel"`
	FocusAreas    datatypes.JSON `json:"focusAreas"`
	Age           *int           `json:"age"`
	CurrentWeight *float64       `json:"currentWeight"`
	TargetWeight  *float64       `json:"targetWeight"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// WorkoutSession is one workout a user started, and possibly completed.
type WorkoutSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index;not null" json:"userId"`
	WorkoutName    string     `gorm:"type:varchar(200)" json:"workoutName"`
	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt    *time.Time `gorm:"index" json:"completedAt"`
	UserRating     *int       `json:"userRating"`
	ActualDuration *int       `json:"actualDuration"`
}

func (WorkoutSession) TableName() string {
	return "workout_sessions"
}

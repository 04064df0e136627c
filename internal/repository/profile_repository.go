package repository

import (
	"context"
	"fitcoach-go/internal/model"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProfileRepository reads the user, profile and workout tables owned by
// other subsystems.
type ProfileRepository interface {
	FindUser(ctx context.Context, userID uint) (*model.User, error)
	FindProfile(ctx context.Context, userID uint) (*model.UserProfile, error)
	// RecentCompletedSessions returns completed sessions finished after
	// since, most recent first, at most limit rows.
	RecentCompletedSessions(ctx context.Context, userID uint, since time.Time, limit int) ([]model.WorkoutSession, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindUser(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *profileRepository) FindProfile(ctx context.Context, userID uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) RecentCompletedSessions(ctx context.Context, userID uint, since time.Time, limit int) ([]model.WorkoutSession, error) {
	var sessions []model.WorkoutSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND completed_at >= ?", userID, true, since).
		Order("completed_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load workout sessions of user %d: %w", userID, err)
	}
	return sessions, nil
}

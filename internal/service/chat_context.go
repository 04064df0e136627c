package service

import (
	"context"
	"encoding/json"
	"errors"
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/repository"
	"fitcoach-go/pkg/log"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	recentWorkoutWindow = 7 * 24 * time.Hour
	recentWorkoutLimit  = 5
	longMessageWords    = 20
	maxTopics           = 5
	dateLayout          = "02/01/2006"
)

// Relevance weights of the context records.
const (
	relevanceProfile          = 1.0
	relevanceProfileMissing   = 0.5
	relevanceWorkouts         = 0.8
	relevanceStyle            = 0.6
	relevanceMessageStyle     = 0.7
	relevanceTopicsOfInterest = 0.6
)

// ProfileFacts is the basic_info record. ProfileComplete is false only when
// the user has no profile at all.
type ProfileFacts struct {
	ProfileComplete *bool           `json:"profile_complete,omitempty"`
	Goal            string          `json:"goal,omitempty"`
	ActivityLevel   string          `json:"activity_level,omitempty"`
	FocusAreas      json.RawMessage `json:"focus_areas,omitempty"`
	Age             *int            `json:"age,omitempty"`
	CurrentWeight   *float64        `json:"current_weight,omitempty"`
	TargetWeight    *float64        `json:"target_weight,omitempty"`
}

// WorkoutSummary describes one recently completed session.
type WorkoutSummary struct {
	WorkoutName string `json:"workout_name"`
	CompletedAt string `json:"completed_at"`
	Rating      *int   `json:"rating"`
	Duration    *int   `json:"duration"`
}

type WorkoutHistory struct {
	RecentSessions []WorkoutSummary `json:"recent_sessions"`
}

type ConversationStyle struct {
	PreferredResponseLength string `json:"preferred_response_length"`
	TechnicalLevel          string `json:"technical_level"`
}

type MessageStyle struct {
	PrefersDetailed   bool `json:"prefers_detailed"`
	LastMessageLength int  `json:"last_message_length"`
}

type TopicsOfInterest struct {
	Topics []model.Intent `json:"topics"`
}

// ContextSnapshot is the decoded working memory of a conversation.
type ContextSnapshot struct {
	Profile  ProfileFacts
	Workouts WorkoutHistory
	Topics   TopicsOfInterest
}

// contextKeeper reads and writes ChatContext records for the orchestrator.
type contextKeeper struct {
	contexts  repository.ChatContextRepository
	profiles  repository.ProfileRepository
	templates *Templates
	now       func() time.Time
}

func (k *contextKeeper) set(ctx context.Context, convID uint, contextType model.ContextType, key string, value interface{}, relevance float64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode context %s: %w", key, err)
	}
	return k.contexts.Set(ctx, convID, contextType, key, datatypes.JSON(data), relevance)
}

// get decodes the record into dest, reporting false when there is none.
func (k *contextKeeper) get(ctx context.Context, convID uint, contextType model.ContextType, key string, dest interface{}) (bool, error) {
	record, err := k.contexts.Get(ctx, convID, contextType, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(record.ContextValue, dest); err != nil {
		return false, fmt.Errorf("failed to decode context %s: %w", key, err)
	}
	return true, nil
}

// initialise seeds a new conversation with the user's profile facts, the
// last week's completed workouts and the default conversation style.
func (k *contextKeeper) initialise(ctx context.Context, conv *model.Conversation) error {
	facts, relevance, err := k.profileFacts(ctx, conv.UserID)
	if err != nil {
		return err
	}
	if err := k.set(ctx, conv.ID, model.ContextUserProfile, model.KeyBasicInfo, facts, relevance); err != nil {
		return err
	}

	sessions, err := k.profiles.RecentCompletedSessions(ctx, conv.UserID, k.now().Add(-recentWorkoutWindow), recentWorkoutLimit)
	if err != nil {
		return err
	}
	history := WorkoutHistory{RecentSessions: make([]WorkoutSummary, 0, len(sessions))}
	for _, s := range sessions {
		summary := WorkoutSummary{
			WorkoutName: s.WorkoutName,
			Rating:      s.UserRating,
			Duration:    s.ActualDuration,
		}
		if summary.WorkoutName == "" {
			summary.WorkoutName = k.templates.DefaultWorkoutName
		}
		if s.CompletedAt != nil {
			summary.CompletedAt = s.CompletedAt.Format(dateLayout)
		}
		history.RecentSessions = append(history.RecentSessions, summary)
	}
	if err := k.set(ctx, conv.ID, model.ContextWorkoutHistory, model.KeyRecentWorkouts, history, relevanceWorkouts); err != nil {
		return err
	}

	style := ConversationStyle{PreferredResponseLength: "medium", TechnicalLevel: "intermediate"}
	return k.set(ctx, conv.ID, model.ContextPreferences, model.KeyConversationStyle, style, relevanceStyle)
}

func (k *contextKeeper) profileFacts(ctx context.Context, userID uint) (ProfileFacts, float64, error) {
	profile, err := k.profiles.FindProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		complete := false
		return ProfileFacts{ProfileComplete: &complete}, relevanceProfileMissing, nil
	}
	if err != nil {
		return ProfileFacts{}, 0, err
	}
	facts := ProfileFacts{
		Goal:          profile.Goal,
		ActivityLevel: profile.ActivityLevel,
		Age:           profile.Age,
		CurrentWeight: profile.CurrentWeight,
		TargetWeight:  profile.TargetWeight,
	}
	if len(profile.FocusAreas) > 0 {
		facts.FocusAreas = json.RawMessage(profile.FocusAreas)
	}
	return facts, relevanceProfile, nil
}

// snapshot loads the records the prompt builder needs. Missing records
// leave the zero value.
func (k *contextKeeper) snapshot(ctx context.Context, convID uint) (ContextSnapshot, error) {
	var snap ContextSnapshot
	if _, err := k.get(ctx, convID, model.ContextUserProfile, model.KeyBasicInfo, &snap.Profile); err != nil {
		return snap, err
	}
	if _, err := k.get(ctx, convID, model.ContextWorkoutHistory, model.KeyRecentWorkouts, &snap.Workouts); err != nil {
		return snap, err
	}
	if _, err := k.get(ctx, convID, model.ContextPreferences, model.KeyTopicsOfInterest, &snap.Topics); err != nil {
		return snap, err
	}
	return snap, nil
}

// update records what the latest user message says about the user. Failures
// are logged; a message is never rejected because its context could not be
// written.
func (k *contextKeeper) update(ctx context.Context, convID uint, text string, intent model.Intent) {
	if words := len(strings.Fields(text)); words > longMessageWords {
		style := MessageStyle{PrefersDetailed: true, LastMessageLength: words}
		if err := k.set(ctx, convID, model.ContextPreferences, model.KeyMessageStyle, style, relevanceMessageStyle); err != nil {
			log.Errorw("failed to update message style", "conversation_id", convID, "error", err)
		}
	}

	if !intent.Valid() {
		return
	}
	var topics TopicsOfInterest
	if _, err := k.get(ctx, convID, model.ContextPreferences, model.KeyTopicsOfInterest, &topics); err != nil {
		log.Errorw("failed to read topics of interest", "conversation_id", convID, "error", err)
		return
	}
	topics.Topics = appendTopic(topics.Topics, intent)
	if err := k.set(ctx, convID, model.ContextPreferences, model.KeyTopicsOfInterest, topics, relevanceTopicsOfInterest); err != nil {
		log.Errorw("failed to update topics of interest", "conversation_id", convID, "error", err)
	}
}

// appendTopic adds intent if it is new and keeps the most recent maxTopics.
func appendTopic(topics []model.Intent, intent model.Intent) []model.Intent {
	for _, t := range topics {
		if t == intent {
			return topics
		}
	}
	topics = append(topics, intent)
	if len(topics) > maxTopics {
		topics = topics[len(topics)-maxTopics:]
	}
	return topics
}

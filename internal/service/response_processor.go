package service

import "strings"

// Suggested action labels.
const (
	ActionTryExercise      = "try_exercise"
	ActionRestRecovery     = "rest_recovery"
	ActionSeekProfessional = "seek_professional"
	ActionScheduleWorkout  = "schedule_workout"
	ActionTrackProgress    = "track_progress"
)

const processedConfidence = 0.8

type actionPatterns struct {
	action   string
	patterns []string
}

var replyActions = []actionPatterns{
	{ActionTryExercise, []string{"experimente", "tente fazer", "faça"}},
	{ActionRestRecovery, []string{"descanse", "pause", "recuperação"}},
	{ActionSeekProfessional, []string{"consulte", "procure um", "médico", "fisioterapeuta"}},
	{ActionScheduleWorkout, []string{"agende", "planeje", "organize"}},
	{ActionTrackProgress, []string{"anote", "registre", "acompanhe"}},
}

var commonExercises = []string{"agachamento", "flexão", "corrida", "caminhada", "prancha", "abdominais"}

// ProcessedReply is a generated reply annotated with what it suggests.
// The annotation is a substring scan and may miss or over-match.
type ProcessedReply struct {
	Content           string
	Confidence        float64
	SuggestedActions  []string
	WorkoutReferences []string
}

// ProcessReply scans text case-insensitively for action phrases and
// exercise names.
func ProcessReply(text string) ProcessedReply {
	lower := strings.ToLower(text)
	out := ProcessedReply{
		Content:           text,
		Confidence:        processedConfidence,
		SuggestedActions:  []string{},
		WorkoutReferences: []string{},
	}
	for _, group := range replyActions {
		for _, p := range group.patterns {
			if strings.Contains(lower, p) {
				out.SuggestedActions = append(out.SuggestedActions, group.action)
				break
			}
		}
	}
	for _, exercise := range commonExercises {
		if strings.Contains(lower, exercise) {
			out.WorkoutReferences = append(out.WorkoutReferences, exercise)
		}
	}
	return out
}

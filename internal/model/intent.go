package model

// Intent is the coarse category of what a user message asks for.
type Intent string

const (
	IntentWorkoutRequest    Intent = "workout_request"
	IntentTechniqueQuestion Intent = "technique_question"
	IntentNutritionAdvice   Intent = "nutrition_advice"
	IntentProgressInquiry   Intent = "progress_inquiry"
	IntentMotivationNeed    Intent = "motivation_need"
	IntentEquipmentQuestion Intent = "equipment_question"
	IntentInjuryConcern     Intent = "injury_concern"
	IntentSchedulePlanning  Intent = "schedule_planning"
	IntentGeneralQuestion   Intent = "general_question"
)

// Intents lists every intent in classification order.
var Intents = []Intent{
	IntentWorkoutRequest,
	IntentTechniqueQuestion,
	IntentNutritionAdvice,
	IntentProgressInquiry,
	IntentMotivationNeed,
	IntentEquipmentQuestion,
	IntentInjuryConcern,
	IntentSchedulePlanning,
	IntentGeneralQuestion,
}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// Ptr returns a pointer to a copy of i, for nullable columns.
func (i Intent) Ptr() *Intent {
	return &i
}

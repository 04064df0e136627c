package service

import (
	"fitcoach-go/internal/model"
	"fitcoach-go/pkg/llm"
	"fmt"
	"strings"
)

// PromptBuilder turns the conversation context into completion requests.
type PromptBuilder struct {
	templates    *Templates
	historyTurns int
}

func NewPromptBuilder(templates *Templates, historyTurns int) *PromptBuilder {
	return &PromptBuilder{templates: templates, historyTurns: historyTurns}
}

// SystemPrompt assembles the persona, the user's goal and level when known,
// the guidance for the detected intent, the recent workout count and the
// closing instruction.
func (b *PromptBuilder) SystemPrompt(analysis IntentAnalysis, snap ContextSnapshot) string {
	t := b.templates
	var sb strings.Builder
	sb.WriteString(t.Persona)

	if snap.Profile.Goal != "" {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(t.GoalLine, snap.Profile.Goal))
	}
	if snap.Profile.ActivityLevel != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(t.LevelLine, snap.Profile.ActivityLevel))
	}
	if guidance, ok := t.IntentGuidance[analysis.Intent]; ok {
		sb.WriteString("\n")
		sb.WriteString(guidance)
	}
	if n := len(snap.Workouts.RecentSessions); n > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(t.HistoryLine, n))
	}

	sb.WriteString("\n\n")
	sb.WriteString(t.ClosingLine)
	return sb.String()
}

// Messages builds the chat request: the system prompt, at most historyTurns
// prior turns in creation order, then the current user text.
func (b *PromptBuilder) Messages(system string, history []model.Message, text string) []llm.Message {
	if b.historyTurns >= 0 && len(history) > b.historyTurns {
		history = history[len(history)-b.historyTurns:]
	}
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		role := llm.RoleAssistant
		if m.MessageType == model.MessageUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})
	return msgs
}

// WelcomeMessages builds the request for a generated greeting.
func (b *PromptBuilder) WelcomeMessages(name string, convType model.ConversationType, profile ProfileFacts) []llm.Message {
	t := b.templates
	if strings.TrimSpace(name) == "" {
		name = t.WelcomeName
	}
	goal, level := profile.Goal, profile.ActivityLevel
	if goal == "" {
		goal = t.NotInformed
	}
	if level == "" {
		level = t.NotInformed
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: t.WelcomeSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(t.WelcomeUserPrompt, name, convType, goal, level)},
	}
}

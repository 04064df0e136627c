package service

import (
	"context"
	"encoding/json"
	"errors"
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/repository"
	"fitcoach-go/pkg/llm"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestStartConversationGreetsWithTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.StartConversation(ctx, 1, model.TypeWorkoutConsultation, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if res.Status != StartCreated || !res.WelcomeMessage || res.AIAvailable {
		t.Fatalf("unexpected result: %+v", res)
	}

	history := f.svc.GetHistory(ctx, res.ConversationID, 0)
	if len(history) != 1 {
		t.Fatalf("expected one welcome message, got %d", len(history))
	}
	welcome := history[0]
	want := DefaultTemplates().WelcomeMessage(model.TypeWorkoutConsultation, "Ana")
	if welcome.MessageType != model.MessageAI || welcome.Content != want {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
	if *welcome.ConfidenceScore != 0.8 || welcome.ResponseTimeMs != 100 {
		t.Fatalf("unexpected welcome metadata: %v %v", *welcome.ConfidenceScore, welcome.ResponseTimeMs)
	}

	records, err := f.contexts.ListByConversation(ctx, res.ConversationID)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 context records, got %d", len(records))
	}
	info, err := f.contexts.Get(ctx, res.ConversationID, model.ContextUserProfile, model.KeyBasicInfo)
	if err != nil {
		t.Fatalf("Get basic_info: %v", err)
	}
	if info.Relevance != 0.5 || string(info.ContextValue) != `{"profile_complete":false}` {
		t.Fatalf("unexpected basic_info: %s (%v)", info.ContextValue, info.Relevance)
	}
}

func TestStartConversationLoadsProfileAndWorkouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	age := 31
	if err := f.db.Create(&model.UserProfile{UserID: 1, Goal: "lose_weight", ActivityLevel: "moderate", Age: &age}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	done := base.Add(-48 * time.Hour)
	old := base.Add(-10 * 24 * time.Hour)
	rating := 5
	sessions := []model.WorkoutSession{
		{UserID: 1, WorkoutName: "", Completed: true, CompletedAt: &done, UserRating: &rating},
		{UserID: 1, WorkoutName: "Corrida", Completed: true, CompletedAt: &old},
	}
	if err := f.db.Create(&sessions).Error; err != nil {
		t.Fatalf("create sessions: %v", err)
	}

	res, err := f.svc.StartConversation(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if res.ConversationType != model.TypeGeneralFitness {
		t.Fatalf("expected default type, got %s", res.ConversationType)
	}

	info, err := f.contexts.Get(ctx, res.ConversationID, model.ContextUserProfile, model.KeyBasicInfo)
	if err != nil {
		t.Fatalf("Get basic_info: %v", err)
	}
	var facts ProfileFacts
	if err := json.Unmarshal(info.ContextValue, &facts); err != nil {
		t.Fatalf("decode basic_info: %v", err)
	}
	if info.Relevance != 1 || facts.Goal != "lose_weight" || facts.ActivityLevel != "moderate" || *facts.Age != 31 {
		t.Fatalf("unexpected profile facts: %+v", facts)
	}

	workouts, err := f.contexts.Get(ctx, res.ConversationID, model.ContextWorkoutHistory, model.KeyRecentWorkouts)
	if err != nil {
		t.Fatalf("Get recent_workouts: %v", err)
	}
	var history WorkoutHistory
	if err := json.Unmarshal(workouts.ContextValue, &history); err != nil {
		t.Fatalf("decode recent_workouts: %v", err)
	}
	want := []WorkoutSummary{{WorkoutName: "Treino Personalizado", CompletedAt: "08/05/2024", Rating: &rating}}
	if !reflect.DeepEqual(history.RecentSessions, want) || workouts.Relevance != 0.8 {
		t.Fatalf("unexpected workout history: %+v", history.RecentSessions)
	}
}

func TestStartConversationResumesRecentConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartConversation(ctx, 1, model.TypeMotivationChat, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}

	f.clock.Advance(90 * time.Minute)
	again, err := f.svc.StartConversation(ctx, 1, model.TypeGeneralFitness, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if again.Status != StartResumed || again.ConversationID != first.ConversationID {
		t.Fatalf("expected resume of %d, got %+v", first.ConversationID, again)
	}
	if again.ConversationType != model.TypeMotivationChat || again.Message != "Continuando conversa anterior..." {
		t.Fatalf("unexpected resume result: %+v", again)
	}

	var count int64
	f.db.Model(&model.Conversation{}).Count(&count)
	if count != 1 {
		t.Fatalf("resume created a conversation: %d rows", count)
	}

	f.clock.Advance(31 * time.Minute)
	later, err := f.svc.StartConversation(ctx, 1, model.TypeGeneralFitness, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if later.Status != StartCreated || later.ConversationID == first.ConversationID {
		t.Fatalf("expected a new conversation after the resume window, got %+v", later)
	}
}

func TestStartConversationWithInitialMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.conversation(t, 1, -time.Minute)
	res, err := f.svc.StartConversation(ctx, 1, model.TypeTechniqueGuidance, "Como fazer agachamento com a postura certa?")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if res.Status != StartCreated || res.WelcomeMessage || res.Reply == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Reply.Intent != model.IntentTechniqueQuestion {
		t.Fatalf("intent: got %s", res.Reply.Intent)
	}

	history := f.svc.GetHistory(ctx, res.ConversationID, 0)
	if len(history) != 2 || history[0].MessageType != model.MessageUser || history[1].MessageType != model.MessageAI {
		t.Fatalf("expected user then assistant message, got %+v", history)
	}
	conv, err := f.svc.GetConversation(ctx, res.ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title != "Como fazer agachamento com a postura certa?" || conv.MessageCount != 2 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}

func TestStartConversationRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartConversation(context.Background(), 1, "yoga_party", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessMessageInjuryFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, -time.Hour)

	res, err := f.svc.ProcessMessage(ctx, conv.ID, "Sinto muita dor no joelho")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Intent != model.IntentInjuryConcern || res.Urgency != UrgencyHigh {
		t.Fatalf("unexpected classification: %+v", res)
	}
	if res.Method != MethodFallback || res.Note != "IA temporariamente indisponível" || res.Confidence != 0.6 {
		t.Fatalf("unexpected method: %+v", res)
	}
	if want := DefaultTemplates().FallbackReply(model.IntentInjuryConcern, "Ana"); res.Response != want {
		t.Fatalf("response %q does not match template %q", res.Response, want)
	}
	if !strings.Contains(res.Response, "consulte um profissional") {
		t.Fatalf("response should recommend a professional: %q", res.Response)
	}

	if n := f.countMessages(t, conv.ID); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
	history := f.svc.GetHistory(ctx, conv.ID, 10)
	if *history[0].IntentDetected != model.IntentInjuryConcern {
		t.Fatalf("intent not recorded on user message: %+v", history[0])
	}
	if history[1].ID != res.MessageID || history[1].AIModelVersion != "test-model" {
		t.Fatalf("unexpected assistant message: %+v", history[1])
	}
	stored, err := f.svc.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if stored.Status != model.StatusActive || stored.MessageCount != 2 || stored.LastActivityAt == nil {
		t.Fatalf("unexpected conversation state: %+v", stored)
	}
}

func TestProcessMessageFallbackUsesPlaceholderWithoutName(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, 99, 0)

	res, err := f.svc.ProcessMessage(context.Background(), conv.ID, "Oi")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(res.Response, "amigo(a)") {
		t.Fatalf("expected placeholder name in %q", res.Response)
	}
}

func TestProcessMessageExpiredConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, 1, -25*time.Hour)
	if err := f.conversations.Update(context.Background(), conv.ID, map[string]interface{}{"status": model.StatusCompleted}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := f.svc.ProcessMessage(context.Background(), conv.ID, "ainda está aí?")
	var chatErr *ChatError
	if !errors.As(err, &chatErr) || !errors.Is(err, ErrConversationExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
	if chatErr.Suggestion == "" {
		t.Fatal("expired error should carry a suggestion")
	}
	if n := f.countMessages(t, conv.ID); n != 0 {
		t.Fatalf("expired conversation persisted %d messages", n)
	}
}

func TestProcessMessageCompletedButRecentConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, 1, -time.Hour)
	if _, err := f.svc.EndConversation(context.Background(), conv.ID, nil); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if _, err := f.svc.ProcessMessage(context.Background(), conv.ID, "mais uma dúvida"); err != nil {
		t.Fatalf("expected processing within the timeout, got %v", err)
	}
}

func TestProcessMessageUnknownConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessMessage(context.Background(), 404, "olá")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestProcessMessageWithBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Create(&model.UserProfile{UserID: 1, Goal: "gain_muscle", ActivityLevel: "beginner"}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	f.llm.available = true
	f.llm.respond = func(messages []llm.Message) (string, error) {
		if isIntentRequest(messages) {
			return `{"intent": "workout_request", "confidence": 0.92, "urgency_level": "low"}`, nil
		}
		return "Experimente fazer agachamento três vezes por semana e descanse entre os treinos.", nil
	}

	start, err := f.svc.StartConversation(ctx, 1, model.TypeWorkoutConsultation, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if !start.AIAvailable {
		t.Fatalf("expected backend to be reported available")
	}

	res, err := f.svc.ProcessMessage(ctx, start.ConversationID, "Monte um treino de pernas")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Method != MethodAI || res.Confidence != 0.8 || res.Intent != model.IntentWorkoutRequest || res.IntentConfidence != 0.92 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !reflect.DeepEqual(res.SuggestedActions, []string{ActionTryExercise, ActionRestRecovery}) {
		t.Fatalf("actions: got %v", res.SuggestedActions)
	}
	if !reflect.DeepEqual(res.WorkoutReferences, []string{"agachamento"}) {
		t.Fatalf("references: got %v", res.WorkoutReferences)
	}

	chats := f.llm.chatCalls()
	if len(chats) != 2 {
		t.Fatalf("expected welcome and reply calls, got %d", len(chats))
	}
	if p := chats[0].params; *p.MaxTokens != 150 || *p.Temperature != 0.8 {
		t.Fatalf("unexpected welcome params: %d %v", *p.MaxTokens, *p.Temperature)
	}
	reply := chats[1]
	if *reply.params.MaxTokens != 500 || *reply.params.Temperature != 0.7 {
		t.Fatalf("unexpected reply params: %d %v", *reply.params.MaxTokens, *reply.params.Temperature)
	}
	system := reply.messages[0].Content
	for _, want := range []string{"OBJETIVO DO USUÁRIO: gain_muscle", "NÍVEL ATUAL: beginner", "FOCO: Recomende exercícios seguros"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, system)
		}
	}
	// welcome turn, then the current message
	if len(reply.messages) != 3 || reply.messages[1].Role != llm.RoleAssistant || reply.messages[2].Content != "Monte um treino de pernas" {
		t.Fatalf("unexpected message list: %+v", reply.messages)
	}

	history := f.svc.GetHistory(ctx, start.ConversationID, 0)
	if *history[0].ConfidenceScore != 0.9 {
		t.Fatalf("expected generated welcome confidence 0.9, got %v", *history[0].ConfidenceScore)
	}
}

func TestProcessMessageBackendFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.llm.available = true
	f.llm.err = errors.New("connection reset")
	conv := f.conversation(t, 1, 0)

	res, err := f.svc.ProcessMessage(context.Background(), conv.ID, "Preciso de motivação")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Method != MethodFallback || res.Intent != model.IntentMotivationNeed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if n := f.countMessages(t, conv.ID); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
}

func TestProcessMessageSendsAtMostSixPriorTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, -time.Hour)
	for i := 0; i < 10; i++ {
		msgType := model.MessageUser
		if i%2 == 1 {
			msgType = model.MessageAI
		}
		msg := &model.Message{ConversationID: conv.ID, MessageType: msgType, Content: "turno", CreatedAt: base.Add(time.Duration(i-30) * time.Minute)}
		if err := f.messages.Create(ctx, msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}
	f.llm.available = true
	f.llm.respond = func(messages []llm.Message) (string, error) {
		if isIntentRequest(messages) {
			return "", errors.New("no classification")
		}
		return "Resposta", nil
	}

	if _, err := f.svc.ProcessMessage(ctx, conv.ID, "e agora?"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	chats := f.llm.chatCalls()
	if len(chats) != 1 || len(chats[0].messages) != 8 {
		t.Fatalf("expected system + 6 turns + current message, got %+v", chats)
	}
}

func TestContextTopicsOfInterest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)
	keeper := &contextKeeper{contexts: f.contexts, now: f.clock.Now, templates: DefaultTemplates()}

	topics := func() []model.Intent {
		var got TopicsOfInterest
		if _, err := keeper.get(ctx, conv.ID, model.ContextPreferences, model.KeyTopicsOfInterest, &got); err != nil {
			t.Fatalf("get topics: %v", err)
		}
		return got.Topics
	}

	keeper.update(ctx, conv.ID, "a", model.IntentWorkoutRequest)
	keeper.update(ctx, conv.ID, "b", model.IntentNutritionAdvice)
	keeper.update(ctx, conv.ID, "c", model.IntentWorkoutRequest)
	if got := topics(); !reflect.DeepEqual(got, []model.Intent{model.IntentWorkoutRequest, model.IntentNutritionAdvice}) {
		t.Fatalf("topics: got %v", got)
	}

	for _, intent := range []model.Intent{
		model.IntentProgressInquiry, model.IntentMotivationNeed, model.IntentInjuryConcern,
		model.IntentSchedulePlanning, model.IntentEquipmentQuestion,
	} {
		keeper.update(ctx, conv.ID, "x", intent)
	}
	want := []model.Intent{
		model.IntentProgressInquiry, model.IntentMotivationNeed, model.IntentInjuryConcern,
		model.IntentSchedulePlanning, model.IntentEquipmentQuestion,
	}
	if got := topics(); !reflect.DeepEqual(got, want) {
		t.Fatalf("topics: got %v, want %v", got, want)
	}

	records, err := f.contexts.ListByConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(records) != 1 || records[0].Relevance != 0.6 {
		t.Fatalf("expected one upserted record, got %+v", records)
	}
}

func TestContextMessageStyleForLongMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)
	keeper := &contextKeeper{contexts: f.contexts, now: f.clock.Now, templates: DefaultTemplates()}

	keeper.update(ctx, conv.ID, strings.Repeat("palavra ", 20), model.IntentGeneralQuestion)
	if _, err := f.contexts.Get(ctx, conv.ID, model.ContextPreferences, model.KeyMessageStyle); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("20 words should not record a message style, got %v", err)
	}

	keeper.update(ctx, conv.ID, strings.Repeat("palavra ", 21), model.IntentGeneralQuestion)
	record, err := f.contexts.Get(ctx, conv.ID, model.ContextPreferences, model.KeyMessageStyle)
	if err != nil {
		t.Fatalf("Get message_style: %v", err)
	}
	var style MessageStyle
	if err := json.Unmarshal(record.ContextValue, &style); err != nil {
		t.Fatalf("decode message_style: %v", err)
	}
	if !style.PrefersDetailed || style.LastMessageLength != 21 || record.Relevance != 0.7 {
		t.Fatalf("unexpected message style: %+v (%v)", style, record.Relevance)
	}
}

func TestEndConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)
	if _, err := f.svc.ProcessMessage(ctx, conv.ID, "oi"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	f.clock.Advance(30 * time.Minute)

	rating := 4.5
	res, err := f.svc.EndConversation(ctx, conv.ID, &rating)
	if err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if !res.ConversationEnded || !res.RatingSaved || res.TotalMessages != 2 || res.DurationMinutes != 30 {
		t.Fatalf("unexpected result: %+v", res)
	}
	stored, err := f.svc.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if stored.Status != model.StatusCompleted || stored.SatisfactionRating == nil || *stored.SatisfactionRating != 4.5 {
		t.Fatalf("unexpected conversation: %+v", stored)
	}
}

func TestEndConversationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)

	res, err := f.svc.EndConversation(ctx, conv.ID, nil)
	if err != nil || res.RatingSaved {
		t.Fatalf("expected end without rating, got %+v, %v", res, err)
	}
	bad := 7.0
	if _, err := f.svc.EndConversation(ctx, conv.ID, &bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.EndConversation(ctx, 404, nil); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.conversation(t, 1, -3*time.Hour)
	newer := f.conversation(t, 1, -time.Hour)
	f.conversation(t, 2, 0)
	if _, err := f.svc.EndConversation(ctx, older.ID, nil); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}

	all, err := f.svc.ListConversations(ctx, 1, "", 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID || all[1].ID != older.ID {
		t.Fatalf("expected newest first for user 1, got %+v", all)
	}

	completed, err := f.svc.ListConversations(ctx, 1, model.StatusCompleted, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != older.ID {
		t.Fatalf("unexpected completed conversations %+v", completed)
	}

	limited, err := f.svc.ListConversations(ctx, 1, "", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one conversation, got %+v, %v", limited, err)
	}

	if _, err := f.svc.ListConversations(ctx, 1, "archived", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetHistoryUnknownConversation(t *testing.T) {
	f := newFixture(t)
	history := f.svc.GetHistory(context.Background(), 404, 10)
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
}

func TestGetHistoryRespectsLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)
	for _, text := range []string{"um", "dois", "três"} {
		if _, err := f.svc.ProcessMessage(ctx, conv.ID, text); err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	}
	history := f.svc.GetHistory(ctx, conv.ID, 3)
	if len(history) != 3 || history[0].Content != "um" || history[2].Content != "dois" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestRecordFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, 1, 0)
	res, err := f.svc.ProcessMessage(ctx, conv.ID, "como melhorar minha corrida?")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	if err := f.svc.RecordFeedback(ctx, 1, res.MessageID, model.ReactionHelpful); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	msg, err := f.messages.FindByID(ctx, res.MessageID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if msg.UserReaction == nil || *msg.UserReaction != model.ReactionHelpful {
		t.Fatalf("reaction not stored: %+v", msg)
	}

	history := f.svc.GetHistory(ctx, conv.ID, 0)
	if err := f.svc.RecordFeedback(ctx, 1, history[0].ID, model.ReactionLike); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for user message, got %v", err)
	}
	if err := f.svc.RecordFeedback(ctx, 2, res.MessageID, model.ReactionLike); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound for another user, got %v", err)
	}
	if err := f.svc.RecordFeedback(ctx, 1, res.MessageID, "love"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown reaction, got %v", err)
	}
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.conversation(t, 1, -time.Hour)
	second := f.conversation(t, 1, 0)
	for _, step := range []struct {
		conv uint
		text string
	}{
		{first.ID, "dor no ombro"},
		{first.ID, "lesão no pé"},
		{second.ID, "quero um treino"},
	} {
		if _, err := f.svc.ProcessMessage(ctx, step.conv, step.text); err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	}
	rating := 4.0
	if _, err := f.svc.EndConversation(ctx, first.ID, &rating); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}

	got, err := f.svc.Analytics(ctx, 1)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if got.TotalConversations != 2 || got.CompletedConversations != 1 || got.TotalMessages != 6 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.AverageRating == nil || *got.AverageRating != 4 {
		t.Fatalf("unexpected average rating: %v", got.AverageRating)
	}
	if got.TopIntent != model.IntentInjuryConcern || got.IntentDistribution[model.IntentWorkoutRequest] != 1 {
		t.Fatalf("unexpected intents: %+v", got)
	}
}

func TestBackendStatus(t *testing.T) {
	f := newFixture(t)
	if got := f.svc.BackendStatus(); got.Available || got.Model != "test-model" {
		t.Fatalf("unexpected status: %+v", got)
	}
	f.llm.available = true
	if got := f.svc.BackendStatus(); !got.Available {
		t.Fatalf("unexpected status: %+v", got)
	}
}

// Package service contains the business logic of the coaching chat.
//
// ChatService drives a coaching conversation: it classifies each user
// message, keeps the conversation's working memory, asks the completion
// backend for a reply and falls back to canned texts when it cannot.
package service

import (
	"context"
	"errors"
	"fitcoach-go/internal/config"
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/repository"
	"fitcoach-go/pkg/cache"
	"fitcoach-go/pkg/llm"
	"fitcoach-go/pkg/log"
	"math"
	"strings"
	"time"
)

// Start statuses.
const (
	StartCreated = "created"
	StartResumed = "resumed"
)

// Reply methods.
const (
	MethodAI       = "ai_powered"
	MethodFallback = "rule_based_fallback"
)

const (
	fallbackConfidence        = 0.6
	aiWelcomeConfidence       = 0.9
	templateWelcomeConfidence = 0.8
	templateWelcomeTimeMs     = 100
	genericWelcomeConfidence  = 0.6
	genericWelcomeTimeMs      = 50
	titleMaxRunes             = 50
	minRating                 = 1.0
	maxRating                 = 5.0
)

// StartResult describes a started or resumed conversation.
type StartResult struct {
	ConversationID   uint                   `json:"conversationId"`
	Status           string                 `json:"status"`
	ConversationType model.ConversationType `json:"conversationType"`
	Message          string                 `json:"message,omitempty"`
	ContextLoaded    bool                   `json:"contextLoaded"`
	WelcomeMessage   bool                   `json:"welcomeMessage"`
	AIAvailable      bool                   `json:"aiAvailable"`
	// Reply is set when the conversation was started with a user message.
	Reply *MessageResult `json:"reply,omitempty"`
}

// MessageResult is the outcome of one processed user message.
type MessageResult struct {
	MessageID         uint         `json:"messageId"`
	Response          string       `json:"response"`
	Intent            model.Intent `json:"intentDetected"`
	IntentConfidence  float64      `json:"intentConfidence"`
	Urgency           string       `json:"urgency"`
	Confidence        float64      `json:"confidenceScore"`
	ResponseTimeMs    float64      `json:"responseTimeMs"`
	SuggestedActions  []string     `json:"suggestedActions"`
	WorkoutReferences []string     `json:"workoutReferences"`
	Method            string       `json:"method"`
	Note              string       `json:"note,omitempty"`
}

// EndResult summarises a finished conversation.
type EndResult struct {
	ConversationEnded bool    `json:"conversationEnded"`
	TotalMessages     int     `json:"totalMessages"`
	DurationMinutes   float64 `json:"durationMinutes"`
	RatingSaved       bool    `json:"ratingSaved"`
}

// Analytics aggregates a user's chat activity.
type Analytics struct {
	TotalConversations     int64                  `json:"totalConversations"`
	CompletedConversations int64                  `json:"completedConversations"`
	TotalMessages          int64                  `json:"totalMessages"`
	AverageRating          *float64               `json:"averageRating"`
	IntentDistribution     map[model.Intent]int64 `json:"intentDistribution"`
	TopIntent              model.Intent           `json:"topIntent,omitempty"`
}

// BackendStatus reports the completion backend state.
type BackendStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
}

// ChatService is the conversation orchestrator.
//
// Every failure is a *ChatError; match its kind with errors.Is.
type ChatService interface {
	StartConversation(ctx context.Context, userID uint, convType model.ConversationType, initialMessage string) (*StartResult, error)
	ProcessMessage(ctx context.Context, conversationID uint, text string) (*MessageResult, error)
	EndConversation(ctx context.Context, conversationID uint, rating *float64) (*EndResult, error)
	// GetHistory never fails: an unknown conversation yields an empty list.
	GetHistory(ctx context.Context, conversationID uint, limit int) []model.Message
	GetConversation(ctx context.Context, conversationID uint) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uint, status model.ConversationStatus, limit int) ([]model.Conversation, error)
	RecordFeedback(ctx context.Context, userID, messageID uint, reaction model.Reaction) error
	Analytics(ctx context.Context, userID uint) (*Analytics, error)
	BackendStatus() BackendStatus
}

// Dependencies are the collaborators of the chat service. Cache, Templates
// and Now are optional.
type Dependencies struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Contexts      repository.ChatContextRepository
	Profiles      repository.ProfileRepository
	LLM           llm.Client
	Cache         cache.Cache
	Config        config.ChatConfig
	Templates     *Templates
	Now           func() time.Time
}

type chatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	profiles      repository.ProfileRepository
	llmClient     llm.Client
	cfg           config.ChatConfig
	templates     *Templates
	now           func() time.Time

	classifier *IntentClassifier
	prompts    *PromptBuilder
	keeper     *contextKeeper
}

// NewChatService wires a ChatService from deps.
func NewChatService(deps Dependencies) ChatService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Templates == nil {
		deps.Templates = DefaultTemplates()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache(deps.Now)
	}
	return &chatService{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		profiles:      deps.Profiles,
		llmClient:     deps.LLM,
		cfg:           deps.Config,
		templates:     deps.Templates,
		now:           deps.Now,
		classifier:    NewIntentClassifier(deps.LLM, deps.Cache, deps.Templates, deps.Config),
		prompts:       NewPromptBuilder(deps.Templates, deps.Config.HistoryTurns),
		keeper: &contextKeeper{
			contexts:  deps.Contexts,
			profiles:  deps.Profiles,
			templates: deps.Templates,
			now:       deps.Now,
		},
	}
}

// StartConversation resumes the user's recent active conversation when no
// initial message is given, otherwise opens a new one and either greets the
// user or answers the initial message.
func (s *chatService) StartConversation(ctx context.Context, userID uint, convType model.ConversationType, initialMessage string) (*StartResult, error) {
	if convType == "" {
		convType = model.TypeGeneralFitness
	}
	if !convType.Valid() {
		return nil, errInvalid("Tipo de conversa inválido")
	}
	initialMessage = strings.TrimSpace(initialMessage)

	if initialMessage == "" {
		recent, err := s.conversations.FindActiveSince(ctx, userID, s.now().Add(-s.cfg.ResumeWindow))
		switch {
		case err == nil:
			return &StartResult{
				ConversationID:   recent.ID,
				Status:           StartResumed,
				ConversationType: recent.ConversationType,
				Message:          s.templates.ResumedNotice,
				ContextLoaded:    true,
				AIAvailable:      s.llmClient.Available(),
			}, nil
		case !errors.Is(err, repository.ErrNotFound):
			log.Errorw("failed to look up recent conversation", "user_id", userID, "error", err)
			return nil, errStartFailed()
		}
	}

	name, err := s.firstName(ctx, userID)
	if err != nil {
		log.Errorw("failed to load user", "user_id", userID, "error", err)
		return nil, errStartFailed()
	}

	conv := &model.Conversation{
		UserID:           userID,
		Title:            titleFrom(initialMessage),
		ConversationType: convType,
		Status:           model.StatusActive,
		AIModelUsed:      s.llmClient.Model(),
		CreatedAt:        s.now(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		log.Errorw("failed to create conversation", "user_id", userID, "error", err)
		return nil, errStartFailed()
	}
	log.Infow("conversation started", "conversation_id", conv.ID, "user_id", userID, "type", convType)

	if err := s.keeper.initialise(ctx, conv); err != nil {
		log.Errorw("failed to initialise conversation context", "conversation_id", conv.ID, "error", err)
	}

	result := &StartResult{
		ConversationID:   conv.ID,
		Status:           StartCreated,
		ConversationType: convType,
		ContextLoaded:    true,
		AIAvailable:      s.llmClient.Available(),
	}

	if initialMessage != "" {
		reply, err := s.ProcessMessage(ctx, conv.ID, initialMessage)
		if err != nil {
			log.Errorw("failed to process initial message", "conversation_id", conv.ID, "error", err)
			return nil, errStartFailed()
		}
		result.Reply = reply
		return result, nil
	}

	content, confidence, responseMs := s.welcome(ctx, conv, name)
	welcome := s.newAIMessage(conv.ID, content, confidence, responseMs, nil)
	if err := s.messages.Create(ctx, welcome); err != nil {
		log.Errorw("failed to save welcome message", "conversation_id", conv.ID, "error", err)
		return nil, errStartFailed()
	}
	result.WelcomeMessage = true
	return result, nil
}

// welcome generates a greeting with the backend when it can, otherwise uses
// the template for the conversation type.
func (s *chatService) welcome(ctx context.Context, conv *model.Conversation, name string) (string, float64, float64) {
	if s.llmClient.Available() {
		var facts ProfileFacts
		if _, err := s.keeper.get(ctx, conv.ID, model.ContextUserProfile, model.KeyBasicInfo, &facts); err != nil {
			log.Warnw("failed to load profile context for welcome", "conversation_id", conv.ID, "error", err)
		}
		started := s.now()
		reply, err := s.llmClient.Complete(ctx, s.prompts.WelcomeMessages(name, conv.ConversationType, facts), llm.Params(150, 0.8))
		if err == nil {
			return reply, aiWelcomeConfidence, math.Round(elapsedMs(started, s.now()))
		}
		log.Warnw("AI welcome failed, using template", "conversation_id", conv.ID, "error", err)
	}

	if text := s.templates.WelcomeMessage(conv.ConversationType, name); text != "" {
		return text, templateWelcomeConfidence, templateWelcomeTimeMs
	}
	return s.templates.WelcomeGeneric, genericWelcomeConfidence, genericWelcomeTimeMs
}

// ProcessMessage stores the user's message, answers it and stores exactly
// one assistant message.
func (s *chatService) ProcessMessage(ctx context.Context, conversationID uint, text string) (*MessageResult, error) {
	started := s.now()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errInvalid("Mensagem vazia")
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound()
	}
	if err != nil {
		log.Errorw("failed to load conversation", "conversation_id", conversationID, "error", err)
		return nil, errProcessFailed()
	}
	if conv.ExpiredAt(started, s.cfg.ConversationTimeout) {
		return nil, errExpired()
	}

	name, err := s.firstName(ctx, conv.UserID)
	if err != nil {
		log.Errorw("failed to load user", "conversation_id", conv.ID, "user_id", conv.UserID, "error", err)
		return nil, errProcessFailed()
	}

	userMsg := &model.Message{
		ConversationID: conv.ID,
		MessageType:    model.MessageUser,
		Content:        text,
		Status:         model.MessageDelivered,
		TokensEstimate: estimateTokens(text),
		CreatedAt:      s.now(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		log.Errorw("failed to save user message", "conversation_id", conv.ID, "error", err)
		return nil, errProcessFailed()
	}
	if conv.Title == "" {
		if err := s.conversations.Update(ctx, conv.ID, map[string]interface{}{"title": titleFrom(text)}); err != nil {
			log.Warnw("failed to set conversation title", "conversation_id", conv.ID, "error", err)
		}
	}

	analysis := s.classifier.Classify(ctx, text)
	if err := s.messages.UpdateIntent(ctx, userMsg.ID, analysis.Intent); err != nil {
		log.Errorw("failed to record detected intent", "message_id", userMsg.ID, "error", err)
	}
	s.keeper.update(ctx, conv.ID, text, analysis.Intent)

	result := &MessageResult{
		Intent:           analysis.Intent,
		IntentConfidence: analysis.Confidence,
		Urgency:          analysis.Urgency,
	}
	if reply, ok := s.generateReply(ctx, conv, userMsg, analysis); ok {
		result.Response = reply.Content
		result.Confidence = reply.Confidence
		result.SuggestedActions = reply.SuggestedActions
		result.WorkoutReferences = reply.WorkoutReferences
		result.Method = MethodAI
	} else {
		result.Response = s.templates.FallbackReply(analysis.Intent, name)
		result.Confidence = fallbackConfidence
		result.SuggestedActions = []string{}
		result.WorkoutReferences = []string{}
		result.Method = MethodFallback
		result.Note = s.templates.FallbackNote
	}
	result.ResponseTimeMs = round2(elapsedMs(started, s.now()))

	aiMsg := s.newAIMessage(conv.ID, result.Response, result.Confidence, result.ResponseTimeMs, analysis.Intent.Ptr())
	if err := s.messages.Create(ctx, aiMsg); err != nil {
		log.Errorw("failed to save assistant message", "conversation_id", conv.ID, "error", err)
		return nil, errProcessFailed()
	}
	result.MessageID = aiMsg.ID

	log.Infow("message processed",
		"conversation_id", conv.ID,
		"intent", analysis.Intent,
		"intent_source", analysis.Source,
		"method", result.Method,
		"response_time_ms", result.ResponseTimeMs)
	return result, nil
}

// generateReply asks the backend for an answer. It reports false when the
// backend is unavailable or anything on the way fails.
func (s *chatService) generateReply(ctx context.Context, conv *model.Conversation, userMsg *model.Message, analysis IntentAnalysis) (ProcessedReply, bool) {
	if !s.llmClient.Available() {
		return ProcessedReply{}, false
	}
	snap, err := s.keeper.snapshot(ctx, conv.ID)
	if err != nil {
		log.Warnw("failed to load conversation context", "conversation_id", conv.ID, "error", err)
		return ProcessedReply{}, false
	}
	history, err := s.messages.RecentBefore(ctx, conv.ID, userMsg.ID, s.cfg.HistoryTurns)
	if err != nil {
		log.Warnw("failed to load recent messages", "conversation_id", conv.ID, "error", err)
		return ProcessedReply{}, false
	}

	msgs := s.prompts.Messages(s.prompts.SystemPrompt(analysis, snap), history, userMsg.Content)
	reply, err := s.llmClient.Complete(ctx, msgs, llm.Params(500, 0.7))
	if err != nil {
		log.Warnw("AI reply failed, using fallback", "conversation_id", conv.ID, "error", err)
		return ProcessedReply{}, false
	}
	return ProcessReply(reply), true
}

// EndConversation completes the conversation and stores the rating if one
// is given.
func (s *chatService) EndConversation(ctx context.Context, conversationID uint, rating *float64) (*EndResult, error) {
	if rating != nil && (*rating < minRating || *rating > maxRating) {
		return nil, errInvalid("A avaliação deve estar entre 1 e 5")
	}
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound()
	}
	if err != nil {
		log.Errorw("failed to load conversation", "conversation_id", conversationID, "error", err)
		return nil, errEndFailed()
	}

	fields := map[string]interface{}{"status": model.StatusCompleted}
	if rating != nil {
		fields["satisfaction_rating"] = *rating
	}
	if err := s.conversations.Update(ctx, conv.ID, fields); err != nil {
		log.Errorw("failed to end conversation", "conversation_id", conv.ID, "error", err)
		return nil, errEndFailed()
	}
	log.Infow("conversation ended", "conversation_id", conv.ID, "messages", conv.MessageCount, "rated", rating != nil)

	return &EndResult{
		ConversationEnded: true,
		TotalMessages:     conv.MessageCount,
		DurationMinutes:   s.now().Sub(conv.CreatedAt).Minutes(),
		RatingSaved:       rating != nil,
	}, nil
}

func (s *chatService) GetHistory(ctx context.Context, conversationID uint, limit int) []model.Message {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if _, err := s.conversations.FindByID(ctx, conversationID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Errorw("failed to load conversation", "conversation_id", conversationID, "error", err)
		}
		return []model.Message{}
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		log.Errorw("failed to load conversation history", "conversation_id", conversationID, "error", err)
		return []model.Message{}
	}
	return msgs
}

func (s *chatService) GetConversation(ctx context.Context, conversationID uint) (*model.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound()
	}
	if err != nil {
		log.Errorw("failed to load conversation", "conversation_id", conversationID, "error", err)
		return nil, errQueryFailed()
	}
	return conv, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uint, status model.ConversationStatus, limit int) ([]model.Conversation, error) {
	switch status {
	case "", model.StatusActive, model.StatusCompleted:
	default:
		return nil, errInvalid("Status de conversa inválido")
	}
	convs, err := s.conversations.ListByUser(ctx, userID, status, limit)
	if err != nil {
		log.Errorw("failed to list conversations", "user_id", userID, "error", err)
		return nil, errQueryFailed()
	}
	return convs, nil
}

// RecordFeedback stores the user's reaction to one of the assistant's
// messages. Messages of other users' conversations are reported as missing.
func (s *chatService) RecordFeedback(ctx context.Context, userID, messageID uint, reaction model.Reaction) error {
	if !reaction.Valid() {
		return errInvalid("Reação inválida")
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return errMessageNotFound()
	}
	if err != nil {
		log.Errorw("failed to load message", "message_id", messageID, "error", err)
		return errQueryFailed()
	}
	conv, err := s.conversations.FindByID(ctx, msg.ConversationID)
	if err != nil || conv.UserID != userID {
		return errMessageNotFound()
	}
	if msg.MessageType != model.MessageAI {
		return errInvalid("Apenas respostas do assistente podem ser avaliadas")
	}
	if err := s.messages.UpdateReaction(ctx, msg.ID, reaction); err != nil {
		log.Errorw("failed to record reaction", "message_id", msg.ID, "error", err)
		return errQueryFailed()
	}
	return nil
}

func (s *chatService) Analytics(ctx context.Context, userID uint) (*Analytics, error) {
	stats, err := s.conversations.StatsByUser(ctx, userID)
	if err != nil {
		log.Errorw("failed to aggregate conversations", "user_id", userID, "error", err)
		return nil, errQueryFailed()
	}
	total, err := s.messages.CountByUser(ctx, userID)
	if err != nil {
		log.Errorw("failed to count messages", "user_id", userID, "error", err)
		return nil, errQueryFailed()
	}
	intents, err := s.messages.IntentCountsByUser(ctx, userID)
	if err != nil {
		log.Errorw("failed to count intents", "user_id", userID, "error", err)
		return nil, errQueryFailed()
	}

	out := &Analytics{
		TotalConversations:     stats.Total,
		CompletedConversations: stats.Completed,
		TotalMessages:          total,
		AverageRating:          stats.AverageRating,
		IntentDistribution:     intents,
	}
	var best int64
	for _, intent := range model.Intents {
		if n := intents[intent]; n > best {
			out.TopIntent, best = intent, n
		}
	}
	return out, nil
}

func (s *chatService) BackendStatus() BackendStatus {
	return BackendStatus{Available: s.llmClient.Available(), Model: s.llmClient.Model()}
}

// firstName returns the user's first name, or "" when the user is unknown.
func (s *chatService) firstName(ctx context.Context, userID uint) (string, error) {
	user, err := s.profiles.FindUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.FirstName, nil
}

func (s *chatService) newAIMessage(convID uint, content string, confidence, responseMs float64, intent *model.Intent) *model.Message {
	return &model.Message{
		ConversationID:  convID,
		MessageType:     model.MessageAI,
		Content:         content,
		Status:          model.MessageDelivered,
		ConfidenceScore: &confidence,
		ResponseTimeMs:  responseMs,
		TokensEstimate:  estimateTokens(content),
		IntentDetected:  intent,
		AIModelVersion:  s.llmClient.Model(),
		CreatedAt:       s.now(),
	}
}

// estimateTokens approximates the token count as words x 1.3.
func estimateTokens(text string) float64 {
	return float64(len(strings.Fields(text))) * 1.3
}

func titleFrom(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes)
}

func elapsedMs(from, to time.Time) float64 {
	return float64(to.Sub(from).Microseconds()) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

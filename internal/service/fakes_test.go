package service

import (
	"context"
	"fitcoach-go/internal/config"
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/repository"
	"fitcoach-go/internal/repository/testutil"
	"fitcoach-go/pkg/cache"
	"fitcoach-go/pkg/llm"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type llmCall struct {
	messages []llm.Message
	params   *llm.GenerationParams
}

// fakeLLM answers with respond, or with reply/err when respond is nil.
type fakeLLM struct {
	available bool
	reply     string
	err       error
	respond   func(messages []llm.Message) (string, error)
	calls     []llmCall
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) Model() string { return "test-model" }

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.calls = append(f.calls, llmCall{messages: messages, params: gen})
	if f.respond != nil {
		return f.respond(messages)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// isIntentRequest reports whether messages is a classification request.
func isIntentRequest(messages []llm.Message) bool {
	return len(messages) > 0 && messages[0].Content == DefaultTemplates().IntentSystemPrompt
}

// chatCalls returns the calls that were not classification requests.
func (f *fakeLLM) chatCalls() []llmCall {
	var out []llmCall
	for _, c := range f.calls {
		if !isIntentRequest(c.messages) {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	db            *gorm.DB
	svc           ChatService
	llm           *fakeLLM
	clock         *fakeClock
	cache         *cache.MemoryCache
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	contexts      repository.ChatContextRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	clock := &fakeClock{t: base}
	fake := &fakeLLM{}
	memCache := cache.NewMemoryCache(clock.Now)

	f := &fixture{
		db:            db,
		llm:           fake,
		clock:         clock,
		cache:         memCache,
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		contexts:      repository.NewChatContextRepository(db),
	}
	f.svc = NewChatService(Dependencies{
		Conversations: f.conversations,
		Messages:      f.messages,
		Contexts:      f.contexts,
		Profiles:      repository.NewProfileRepository(db),
		LLM:           fake,
		Cache:         memCache,
		Config:        config.DefaultChatConfig(),
		Templates:     DefaultTemplates(),
		Now:           clock.Now,
	})

	if err := db.Create(&model.User{ID: 1, Username: "ana", FirstName: "Ana"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Create(&model.User{ID: 2, Username: "bruno", FirstName: "Bruno"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return f
}

// conversation stores an active conversation of userID created at the
// current fake time plus offset.
func (f *fixture) conversation(t *testing.T, userID uint, offset time.Duration) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		UserID:           userID,
		ConversationType: model.TypeGeneralFitness,
		Status:           model.StatusActive,
		CreatedAt:        f.clock.Now().Add(offset),
	}
	if err := f.conversations.Create(context.Background(), conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv
}

func (f *fixture) countMessages(t *testing.T, convID uint) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Message{}).Where("conversation_id = ?", convID).Count(&n).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	return n
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fitcoach-go/internal/config"
	"fitcoach-go/internal/model"
	"fitcoach-go/pkg/cache"
	"fitcoach-go/pkg/llm"
	"fitcoach-go/pkg/log"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Urgency levels reported by the classifier.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Sources of an IntentAnalysis.
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

const (
	intentCachePrefix       = "intent_analysis:"
	defaultRuleConfidence   = 0.5
	secondaryIntentMinScore = 0.2
)

// IntentAnalysis is the classifier verdict for one message.
type IntentAnalysis struct {
	Intent                  model.Intent   `json:"intent"`
	Confidence              float64        `json:"confidence"`
	SecondaryIntents        []model.Intent `json:"secondary_intents"`
	Keywords                []string       `json:"keywords"`
	Urgency                 string         `json:"urgency_level"`
	RequiresPersonalization bool           `json:"requires_personalization"`
	Source                  string         `json:"source"`
}

type intentKeywords struct {
	intent   model.Intent
	keywords []string
}

// ruleKeywords is scored in order; the first intent wins a tie.
var ruleKeywords = []intentKeywords{
	{model.IntentWorkoutRequest, []string{"treino", "exercício", "workout", "série", "repetição", "treinar"}},
	{model.IntentTechniqueQuestion, []string{"como", "técnica", "forma", "postura", "execução", "executar"}},
	{model.IntentNutritionAdvice, []string{"alimentação", "dieta", "nutrição", "proteína", "comer", "comida"}},
	{model.IntentProgressInquiry, []string{"progresso", "resultado", "evolução", "melhora", "crescimento"}},
	{model.IntentMotivationNeed, []string{"motivação", "desânimo", "preguiça", "força", "conseguir"}},
	{model.IntentEquipmentQuestion, []string{"equipamento", "aparelho", "peso", "halteres", "academia"}},
	{model.IntentInjuryConcern, []string{"dor", "lesão", "machuca", "problema", "desconforto"}},
	{model.IntentSchedulePlanning, []string{"rotina", "horário", "frequência", "quando", "quantas vezes"}},
}

var urgencyKeywords = []string{"dor", "lesão", "urgente"}

// IntentClassifier labels user messages with one of the known intents.
type IntentClassifier struct {
	llm       llm.Client
	cache     cache.Cache
	templates *Templates
	aiTTL     time.Duration
	ruleTTL   time.Duration
}

// NewIntentClassifier creates a classifier. Results are cached for
// cfg.IntentCacheAITTL when they come from the backend and for
// cfg.IntentCacheRuleTTL when they come from keyword scoring.
func NewIntentClassifier(client llm.Client, c cache.Cache, templates *Templates, cfg config.ChatConfig) *IntentClassifier {
	return &IntentClassifier{
		llm:       client,
		cache:     c,
		templates: templates,
		aiTTL:     cfg.IntentCacheAITTL,
		ruleTTL:   cfg.IntentCacheRuleTTL,
	}
}

// intentCacheKey hashes the lower-cased text. Distinct texts with the same
// hash share an entry.
func intentCacheKey(text string) string {
	return intentCachePrefix + strconv.FormatUint(xxhash.Sum64String(strings.ToLower(text)), 16)
}

// Classify returns the cached analysis of text if there is one, otherwise
// asks the backend and falls back to keyword scoring. It always returns a
// usable analysis; cache errors are logged and ignored.
func (c *IntentClassifier) Classify(ctx context.Context, text string) IntentAnalysis {
	key := intentCacheKey(text)

	var cached IntentAnalysis
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warnw("intent cache read failed", "key", key, "error", err)
	}
	if hit && cached.Intent.Valid() {
		return cached
	}

	if c.llm.Available() {
		analysis, err := c.classifyWithAI(ctx, text)
		if err == nil {
			c.store(ctx, key, analysis, c.aiTTL)
			return analysis
		}
		log.Warnw("AI intent analysis failed, using keyword rules", "error", err)
	}

	analysis := ClassifyByRules(text)
	c.store(ctx, key, analysis, c.ruleTTL)
	return analysis
}

func (c *IntentClassifier) store(ctx context.Context, key string, analysis IntentAnalysis, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, analysis, ttl); err != nil {
		log.Warnw("intent cache write failed", "key", key, "error", err)
	}
}

func (c *IntentClassifier) classifyWithAI(ctx context.Context, text string) (IntentAnalysis, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: c.templates.IntentSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(c.templates.IntentUserPrompt, text)},
	}
	reply, err := c.llm.Complete(ctx, messages, llm.Params(200, 0.3))
	if err != nil {
		return IntentAnalysis{}, err
	}
	return parseAIAnalysis(reply)
}

var errMalformedAnalysis = errors.New("malformed intent analysis")

// parseAIAnalysis decodes the JSON object embedded in reply and normalises
// it: unknown secondary intents are dropped, confidence is clamped to [0,1]
// and a missing urgency becomes medium.
func parseAIAnalysis(reply string) (IntentAnalysis, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return IntentAnalysis{}, fmt.Errorf("%w: no JSON object in reply", errMalformedAnalysis)
	}

	var raw IntentAnalysis
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return IntentAnalysis{}, fmt.Errorf("%w: %v", errMalformedAnalysis, err)
	}
	if !raw.Intent.Valid() {
		return IntentAnalysis{}, fmt.Errorf("%w: unknown intent %q", errMalformedAnalysis, raw.Intent)
	}

	secondary := make([]model.Intent, 0, len(raw.SecondaryIntents))
	for _, intent := range raw.SecondaryIntents {
		if intent.Valid() && intent != raw.Intent {
			secondary = append(secondary, intent)
		}
	}
	raw.SecondaryIntents = secondary
	raw.Confidence = clamp01(raw.Confidence)
	switch raw.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	default:
		raw.Urgency = UrgencyMedium
	}
	if raw.Keywords == nil {
		raw.Keywords = []string{}
	}
	raw.Source = SourceAI
	return raw, nil
}

// ClassifyByRules scores text against the keyword table. The score of an
// intent is the fraction of its keywords found in the text.
func ClassifyByRules(text string) IntentAnalysis {
	lower := strings.ToLower(text)

	scores := make(map[model.Intent]float64, len(ruleKeywords))
	best := model.IntentGeneralQuestion
	bestScore := 0.0
	for _, group := range ruleKeywords {
		matched := 0
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(group.keywords))
		scores[group.intent] = score
		if score > bestScore {
			best, bestScore = group.intent, score
		}
	}

	confidence := bestScore
	if len(scores) == 0 {
		confidence = defaultRuleConfidence
	}

	secondary := []model.Intent{}
	for _, group := range ruleKeywords {
		if score, ok := scores[group.intent]; ok && group.intent != best && score > secondaryIntentMinScore {
			secondary = append(secondary, group.intent)
		}
	}

	urgency := UrgencyMedium
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			urgency = UrgencyHigh
			break
		}
	}

	return IntentAnalysis{
		Intent:                  best,
		Confidence:              confidence,
		SecondaryIntents:        secondary,
		Keywords:                matchedKeywords(lower),
		Urgency:                 urgency,
		RequiresPersonalization: true,
		Source:                  SourceRules,
	}
}

// matchedKeywords returns the words of lower that are themselves keywords.
func matchedKeywords(lower string) []string {
	found := []string{}
	for _, word := range strings.Fields(lower) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if word == "" {
			continue
		}
		if isKeyword(word) {
			found = append(found, word)
		}
	}
	return found
}

func isKeyword(word string) bool {
	for _, group := range ruleKeywords {
		for _, kw := range group.keywords {
			if word == kw {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

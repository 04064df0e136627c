package service

import (
	"fitcoach-go/internal/model"
	"strings"
)

// namePlaceholder is replaced by the user's first name in reply templates.
const namePlaceholder = "{name}"

// Templates holds every fixed text the assistant speaks or sends to the
// completion backend. Swap it to localise the assistant.
type Templates struct {
	// Fallback replies per intent, used when the backend cannot answer.
	Fallback        map[model.Intent]string
	FallbackDefault string
	FallbackName    string
	FallbackNote    string

	// Welcome messages per conversation type.
	Welcome        map[model.ConversationType]string
	WelcomeDefault string
	WelcomeGeneric string
	WelcomeName    string
	ResumedNotice  string

	// System prompt pieces.
	Persona        string
	GoalLine       string
	LevelLine      string
	IntentGuidance map[model.Intent]string
	HistoryLine    string
	ClosingLine    string

	// Structured requests to the backend.
	IntentSystemPrompt  string
	IntentUserPrompt    string
	WelcomeSystemPrompt string
	WelcomeUserPrompt   string
	NotInformed         string

	DefaultWorkoutName string
}

// render substitutes the user's name, or fallbackName when it is empty.
func render(template, name, fallbackName string) string {
	if strings.TrimSpace(name) == "" {
		name = fallbackName
	}
	return strings.ReplaceAll(template, namePlaceholder, name)
}

// FallbackReply returns the canned reply for intent addressed to name.
func (t *Templates) FallbackReply(intent model.Intent, name string) string {
	text, ok := t.Fallback[intent]
	if !ok {
		text = t.FallbackDefault
	}
	return render(text, name, t.FallbackName)
}

// WelcomeMessage returns the canned greeting for a conversation type.
func (t *Templates) WelcomeMessage(convType model.ConversationType, name string) string {
	text, ok := t.Welcome[convType]
	if !ok {
		text = t.WelcomeDefault
	}
	return render(text, name, t.WelcomeName)
}

// DefaultTemplates returns the Brazilian Portuguese texts.
func DefaultTemplates() *Templates {
	return &Templates{
		Fallback: map[model.Intent]string{
			model.IntentWorkoutRequest: "Olá, {name}! Para recomendações de treino personalizadas, que tal começarmos com alguns exercícios básicos? " +
				"Posso sugerir um treino de corpo inteiro com agachamentos, flexões e prancha. Você tem alguma preferência específica ou restrição?",
			model.IntentTechniqueQuestion: "Ótima pergunta sobre técnica, {name}! A execução correta é fundamental para evitar lesões e maximizar resultados. " +
				"Para exercícios específicos, sempre foque em: postura correta, movimento controlado, respiração adequada e progressão gradual. " +
				"Sobre qual exercício você gostaria de saber mais?",
			model.IntentNutritionAdvice: "Nutrição é super importante, {name}! Algumas dicas básicas: mantenha-se hidratado, inclua proteínas em cada refeição, " +
				"e consuma vegetais variados. Para um plano nutricional específico, recomendo consultar um nutricionista qualificado. " +
				"Posso ajudar com mais alguma coisa sobre fitness?",
			model.IntentProgressInquiry: "Que bom que você está acompanhando seu progresso, {name}! O importante é a consistência. " +
				"Celebre cada pequena vitória e lembre-se que resultados levam tempo. Continue firme na sua rotina! " +
				"Como você tem se sentido nos treinos recentes?",
			model.IntentMotivationNeed: "Entendo, {name}. Todos passamos por momentos assim! Lembre-se: cada treino é um investimento na sua saúde e bem-estar. " +
				"Comece pequeno se necessário - até 10 minutos já fazem diferença. Você é mais forte do que imagina! " +
				"O que te motivou a começar essa jornada?",
			model.IntentEquipmentQuestion: "Boa pergunta sobre equipamentos, {name}! Dá para treinar bem com o peso do corpo, e halteres ou elásticos ajudam a progredir. " +
				"Na academia, peça orientação para ajustar cada aparelho à sua altura. Quais equipamentos você tem disponíveis?",
			model.IntentInjuryConcern: "Sua segurança é prioridade, {name}. Se você está sentindo dor, é importante parar e avaliar. " +
				"Para dores persistentes, sempre consulte um profissional de saúde. No treino, escute sempre seu corpo. " +
				"Posso ajudar com exercícios de baixo impacto enquanto se recupera?",
			model.IntentSchedulePlanning: "Vamos organizar sua rotina, {name}! Para a maioria das pessoas, 3 a 4 treinos por semana com dias de descanso entre eles funcionam bem. " +
				"O mais importante é escolher horários que você consiga manter. Quantos dias por semana você tem disponíveis?",
			model.IntentGeneralQuestion: "Oi, {name}! Estou aqui para ajudar com suas dúvidas sobre fitness. " +
				"Posso orientar sobre exercícios, técnicas, motivação e planejamento de treinos. No que posso te auxiliar hoje?",
		},
		FallbackDefault: "Oi, {name}! Estou aqui para ajudar com suas dúvidas sobre fitness. " +
			"Posso orientar sobre exercícios, técnicas, motivação e planejamento de treinos. No que posso te auxiliar hoje?",
		FallbackName: "amigo(a)",
		FallbackNote: "IA temporariamente indisponível",

		Welcome: map[model.ConversationType]string{
			model.TypeWorkoutConsultation: "Olá, {name}! 💪 Sou Alex, seu personal trainer virtual. Estou aqui para ajudar você a criar treinos personalizados " +
				"e alcançar seus objetivos. Como posso te ajudar hoje?",
			model.TypeProgressAnalysis: "Oi, {name}! 📈 Que bom te ver aqui! Vamos analisar seu progresso e ver como você está evoluindo. " +
				"Tenho algumas perguntas para entender melhor sua jornada. Pronto para começar?",
			model.TypeMotivationChat: "Hey, {name}! 🌟 Às vezes todos precisamos de um empurrãozinho, né? Estou aqui para te motivar e lembrar do incrível que você é. " +
				"Vamos conversar sobre o que está te preocupando?",
			model.TypeTechniqueGuidance: "Salve, {name}! 🎯 Técnica correta é tudo no fitness! Estou aqui para te ajudar com dúvidas sobre execução de exercícios e boa forma. " +
				"Qual movimento você gostaria de aperfeiçoar?",
			model.TypeGeneralFitness: "Olá, {name}! 🏃‍♂️ Bem-vindo(a) ao seu chat fitness personalizado! Sou Alex e estou aqui para tirar dúvidas, " +
				"sugerir treinos e te apoiar nessa jornada. O que você gostaria de saber?",
		},
		WelcomeDefault: "Olá, {name}! 🏃‍♂️ Bem-vindo(a) ao seu chat fitness personalizado! Sou Alex e estou aqui para tirar dúvidas, " +
			"sugerir treinos e te apoiar nessa jornada. O que você gostaria de saber?",
		WelcomeGeneric: "Olá! Sou Alex, seu assistente de fitness. Como posso ajudar você hoje?",
		WelcomeName:    "atleta",
		ResumedNotice:  "Continuando conversa anterior...",

		Persona: `Você é Alex, um personal trainer virtual especialista em fitness com 10 anos de experiência.

PERSONALIDADE:
- Amigável, motivador e profissional
- Usa linguagem clara e acessível
- Encoraja sem ser excessivo
- Foca na segurança e na progressão gradual
- Baseado em evidência científica

DIRETRIZES DE RESPOSTA:
- Máximo 200 palavras por resposta
- Use emojis ocasionalmente para engajamento
- Seja específico e prático
- Sempre priorize a segurança
- Adapte ao nível do usuário`,
		GoalLine:  "OBJETIVO DO USUÁRIO: %s",
		LevelLine: "NÍVEL ATUAL: %s",
		IntentGuidance: map[model.Intent]string{
			model.IntentWorkoutRequest:    "FOCO: Recomende exercícios seguros e progressivos. Sempre inclua aquecimento e alongamento.",
			model.IntentTechniqueQuestion: "FOCO: Explique técnica com clareza, enfatize segurança e sugira progressões.",
			model.IntentNutritionAdvice:   "FOCO: Dê orientações gerais, sempre recomende consulta com nutricionista para planos específicos.",
			model.IntentProgressInquiry:   "FOCO: Analise dados disponíveis, celebre conquistas e sugira próximos passos.",
			model.IntentMotivationNeed:    "FOCO: Seja encorajador, lembre dos benefícios e sugira estratégias práticas.",
			model.IntentInjuryConcern:     "FOCO: Priorize segurança, recomende descanso se necessário e consulta profissional.",
		},
		HistoryLine: "HISTÓRICO RECENTE: %d treinos realizados recentemente.",
		ClosingLine: "Sempre termine perguntando se precisa de mais alguma coisa ou esclarecimento adicional.",

		IntentSystemPrompt: "Você é um especialista em análise de intenções para conversas sobre fitness.\n" +
			"Analise a mensagem e identifique a intenção principal, respondendo APENAS em formato JSON.",
		IntentUserPrompt: `Analise esta mensagem: "%s"

INTENÇÕES POSSÍVEIS:
- workout_request: Pedir treino/exercícios
- technique_question: Dúvidas sobre técnica
- nutrition_advice: Orientação nutricional
- progress_inquiry: Perguntas sobre progresso
- motivation_need: Busca motivação/encorajamento
- equipment_question: Dúvidas sobre equipamentos
- injury_concern: Preocupações com lesões
- schedule_planning: Planejamento de rotina
- general_question: Pergunta geral sobre fitness

Responda em JSON:
{
    "intent": "categoria_principal",
    "confidence": 0.0-1.0,
    "secondary_intents": ["intent1", "intent2"],
    "keywords": ["palavra1", "palavra2"],
    "urgency_level": "low|medium|high",
    "requires_personalization": true/false
}`,
		WelcomeSystemPrompt: "Você é Alex, um personal trainer virtual amigável. " +
			"Crie uma mensagem de boas-vindas personalizada e motivadora para iniciar uma conversa sobre fitness.",
		WelcomeUserPrompt: `Crie mensagem de boas-vindas para %s.

TIPO DE CONVERSA: %s
PERFIL: %s
NÍVEL: %s

REQUISITOS:
- Máximo 100 palavras
- Tom amigável e profissional
- Mencione o nome da pessoa
- Relacione com o tipo de conversa
- Termine com pergunta envolvente
- Use 1-2 emojis apropriados`,
		NotInformed: "não informado",

		DefaultWorkoutName: "Treino Personalizado",
	}
}

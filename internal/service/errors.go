package service

import "errors"

// Error kinds a caller can match with errors.Is.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExpired  = errors.New("conversation expired")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
)

// ChatError is the user-facing failure of a chat operation. Kind is one of
// the sentinels above; Message and Suggestion are meant for the end user.
// Internal causes are logged where they happen and never carried here.
type ChatError struct {
	Kind       error
	Message    string
	Suggestion string
}

func (e *ChatError) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *ChatError) Unwrap() error {
	return e.Kind
}

func errNotFound() *ChatError {
	return &ChatError{Kind: ErrConversationNotFound, Message: "Conversa não encontrada", Suggestion: "Verifique o ID da conversa ou inicie uma nova"}
}

func errExpired() *ChatError {
	return &ChatError{Kind: ErrConversationExpired, Message: "Conversa expirada", Suggestion: "Inicie uma nova conversa para continuar"}
}

func errMessageNotFound() *ChatError {
	return &ChatError{Kind: ErrMessageNotFound, Message: "Mensagem não encontrada", Suggestion: "Verifique o ID da mensagem"}
}

func errInvalid(msg string) *ChatError {
	return &ChatError{Kind: ErrInvalidInput, Message: msg, Suggestion: "Revise os dados enviados"}
}

func errStartFailed() *ChatError {
	return &ChatError{Kind: ErrInternal, Message: "Não foi possível iniciar conversa", Suggestion: "Tente novamente em alguns instantes"}
}

func errProcessFailed() *ChatError {
	return &ChatError{Kind: ErrInternal, Message: "Erro ao processar mensagem", Suggestion: "Tente novamente ou reformule sua pergunta"}
}

func errEndFailed() *ChatError {
	return &ChatError{Kind: ErrInternal, Message: "Erro ao finalizar conversa", Suggestion: "Tente novamente em alguns instantes"}
}

func errQueryFailed() *ChatError {
	return &ChatError{Kind: ErrInternal, Message: "Erro ao consultar conversas", Suggestion: "Tente novamente em alguns instantes"}
}

// ConversationNotFound is the error reported for unknown conversations and
// for conversations owned by another user.
func ConversationNotFound() *ChatError {
	return errNotFound()
}

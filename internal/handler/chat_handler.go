// Package handler contains the gin handlers of the chat API.
package handler

import (
	"errors"
	"fitcoach-go/internal/middleware"
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/service"
	"fitcoach-go/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the chat service over HTTP.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// RegisterRoutes mounts the authenticated chat routes on rg.
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.Status)
	rg.POST("/conversations/start", h.StartConversation)
	rg.GET("/conversations", h.ListConversations)
	rg.POST("/conversations/:id/message", h.SendMessage)
	rg.GET("/conversations/:id/history", h.History)
	rg.POST("/conversations/:id/end", h.EndConversation)
	rg.POST("/messages/:id/feedback", h.Feedback)
	rg.GET("/analytics", h.Analytics)
}

// StartConversationRequest is the body of POST /conversations/start.
type StartConversationRequest struct {
	ConversationType model.ConversationType `json:"conversationType"`
	InitialMessage   string                 `json:"initialMessage"`
}

// SendMessageRequest is the body of POST /conversations/:id/message.
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// EndConversationRequest is the optional body of POST /conversations/:id/end.
type EndConversationRequest struct {
	Rating *float64 `json:"rating"`
}

// FeedbackRequest is the body of POST /messages/:id/feedback.
type FeedbackRequest struct {
	Reaction model.Reaction `json:"reaction" binding:"required"`
}

func (h *ChatHandler) Status(c *gin.Context) {
	respondOK(c, h.chatService.BackendStatus())
}

func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Corpo da requisição inválido")
			return
		}
	}
	result, err := h.chatService.StartConversation(c.Request.Context(), middleware.UserID(c), req.ConversationType, req.InitialMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondBadRequest(c, "Parâmetro limit inválido")
		return
	}
	convs, err := h.chatService.ListConversations(c.Request.Context(), middleware.UserID(c), model.ConversationStatus(c.Query("status")), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, convs)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	convID, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "A mensagem é obrigatória")
		return
	}
	result, err := h.chatService.ProcessMessage(c.Request.Context(), convID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	convID, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		respondBadRequest(c, "Parâmetro limit inválido")
		return
	}
	respondOK(c, h.chatService.GetHistory(c.Request.Context(), convID, limit))
}

func (h *ChatHandler) EndConversation(c *gin.Context) {
	convID, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	var req EndConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Corpo da requisição inválido")
			return
		}
	}
	result, err := h.chatService.EndConversation(c.Request.Context(), convID, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *ChatHandler) Feedback(c *gin.Context) {
	messageID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "ID de mensagem inválido")
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "A reação é obrigatória")
		return
	}
	if err := h.chatService.RecordFeedback(c.Request.Context(), middleware.UserID(c), messageID, req.Reaction); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"reaction": req.Reaction})
}

func (h *ChatHandler) Analytics(c *gin.Context) {
	result, err := h.chatService.Analytics(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// ownedConversation parses the :id parameter and checks that the
// conversation belongs to the caller. It writes the error response itself.
func (h *ChatHandler) ownedConversation(c *gin.Context) (uint, bool) {
	convID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "ID de conversa inválido")
		return 0, false
	}
	conv, err := h.chatService.GetConversation(c.Request.Context(), convID)
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	if conv.UserID != middleware.UserID(c) {
		respondError(c, service.ConversationNotFound())
		return 0, false
	}
	return convID, true
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid integer")
	}
	return v, nil
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": message, "data": nil})
}

// statusOf maps a service error kind to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrConversationNotFound), errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConversationExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	var chatErr *service.ChatError
	if !errors.As(err, &chatErr) {
		log.Errorw("unexpected error from chat service", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"code": status, "message": "Erro interno", "data": nil})
		return
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": chatErr.Message,
		"data":    gin.H{"suggestion": chatErr.Suggestion},
	})
}

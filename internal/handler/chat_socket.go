package handler

import (
	"encoding/json"
	"errors"
	"fitcoach-go/internal/service"
	"fitcoach-go/pkg/log"
	"fitcoach-go/pkg/token"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Socket frame types sent to the client.
const (
	frameReply = "reply"
	frameError = "error"
)

// SocketRequest is a client frame: one message for one conversation.
type SocketRequest struct {
	ConversationID uint   `json:"conversationId"`
	Message        string `json:"message"`
}

// SocketResponse is a server frame. Data holds the MessageResult of a reply.
type SocketResponse struct {
	Type           string                 `json:"type"`
	ConversationID uint                   `json:"conversationId,omitempty"`
	Data           *service.MessageResult `json:"data,omitempty"`
	Message        string                 `json:"message,omitempty"`
	Suggestion     string                 `json:"suggestion,omitempty"`
}

// ChatSocketHandler serves the chat over a websocket. Browsers cannot set
// headers on websocket requests, so the JWT travels in the path.
type ChatSocketHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

func NewChatSocketHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatSocketHandler {
	return &ChatSocketHandler{chatService: chatService, jwtManager: jwtManager}
}

// Handle upgrades the connection and answers frames one at a time until the
// client goes away.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Token inválido ou expirado", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()
	log.Infow("WebSocket connected", "user_id", claims.UserID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnw("WebSocket read failed", "user_id", claims.UserID, "error", err)
			}
			return
		}

		resp := h.answer(c, claims.UserID, raw)
		if err := conn.WriteJSON(resp); err != nil {
			log.Warnw("WebSocket write failed", "user_id", claims.UserID, "error", err)
			return
		}
	}
}

func (h *ChatSocketHandler) answer(c *gin.Context, userID uint, raw []byte) SocketResponse {
	var req SocketRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.ConversationID == 0 || req.Message == "" {
		return SocketResponse{Type: frameError, Message: "Frame inválido", Suggestion: `Envie {"conversationId": <id>, "message": "<texto>"}`}
	}

	ctx := c.Request.Context()
	conv, err := h.chatService.GetConversation(ctx, req.ConversationID)
	if err == nil && conv.UserID != userID {
		err = service.ConversationNotFound()
	}
	if err != nil {
		return errorFrame(req.ConversationID, err)
	}

	result, err := h.chatService.ProcessMessage(ctx, req.ConversationID, req.Message)
	if err != nil {
		return errorFrame(req.ConversationID, err)
	}
	return SocketResponse{Type: frameReply, ConversationID: req.ConversationID, Data: result}
}

func errorFrame(convID uint, err error) SocketResponse {
	resp := SocketResponse{Type: frameError, ConversationID: convID, Message: "Erro interno"}
	var chatErr *service.ChatError
	if errors.As(err, &chatErr) {
		resp.Message = chatErr.Message
		resp.Suggestion = chatErr.Suggestion
	}
	return resp
}

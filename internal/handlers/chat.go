package handlers

import (
	"errors"
	"net/http"

	"cardiopredict/internal/chat"
	"cardiopredict/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SendMessageRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	Message     string `json:"message" binding:"required,max=4000"`
	MessageType string `json:"messageType" binding:"omitempty,oneof=text quick_response"`
}

func StartChat(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, firstName := currentUser(c)

		session, err := svc.Start(c.Request.Context(), userID, firstName)
		if err != nil {
			log.Error("failed to start chat session", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to start chat session")
			return
		}

		response.JSON(c, http.StatusCreated, gin.H{
			"message":        "Chat session started",
			"sessionId":      session.SessionID,
			"initialMessage": session.Messages[0],
		})
	}
}

func SendMessage(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, firstName := currentUser(c)

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid message", err.Error())
			return
		}

		msgs, err := svc.Send(c.Request.Context(), userID, req.SessionID, req.Message, req.MessageType, firstName)
		if err != nil {
			writeChatError(c, err, log, "Failed to send message")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"messages":  msgs,
			"sessionId": req.SessionID,
		})
	}
}

func GetChatSession(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		session, err := svc.Get(c.Request.Context(), userID, c.Param("sessionId"))
		if err != nil {
			writeChatError(c, err, log, "Failed to get chat history")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{"session": session})
	}
}

func ListChatSessions(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		page, ok := parsePage(c)
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid pagination parameters")
			return
		}

		sessions, total, err := svc.List(c.Request.Context(), userID, page)
		if err != nil {
			writeChatError(c, err, log, "Failed to get chat sessions")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"sessions":   sessions,
			"pagination": pagination(total, page),
		})
	}
}

func EndChatSession(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)
		sessionID := c.Param("sessionId")

		if err := svc.End(c.Request.Context(), userID, sessionID); err != nil {
			if errors.Is(err, chat.ErrSessionNotFound) {
				response.Error(c, http.StatusNotFound, "Active chat session not found")
				return
			}
			writeChatError(c, err, log, "Failed to end chat session")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"message":   "Chat session ended",
			"sessionId": sessionID,
		})
	}
}

func DeleteChatSession(svc *chat.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		if err := svc.Delete(c.Request.Context(), userID, c.Param("sessionId")); err != nil {
			writeChatError(c, err, log, "Failed to delete chat session")
			return
		}

		response.Message(c, http.StatusOK, "Chat session deleted successfully")
	}
}

func writeChatError(c *gin.Context, err error, log *zap.Logger, fallback string) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "Chat session not found")
	case errors.Is(err, chat.ErrConcurrentUpdate):
		response.Error(c, http.StatusConflict, "Chat session was updated concurrently, please retry")
	case errors.Is(err, chat.ErrEmptyMessage):
		response.Error(c, http.StatusBadRequest, "Message text is required")
	default:
		log.Error(fallback, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, fallback)
	}
}

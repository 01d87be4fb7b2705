package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// History returns chat messages newest first
// GET /api/projects/:id/chat?before=<RFC3339>&limit=<n>
func (h *ChatHandler) History(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.HistoryRequest
	if before := c.Query("before"); before != "" {
		t, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			response.Error(c, badRequest("before must be an RFC3339 timestamp"))
			return
		}
		req.Before = &t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			response.Error(c, badRequest("limit must be a non-negative integer"))
			return
		}
		req.Limit = n
	}

	messages, err := h.chatService.History(c.Request.Context(), middleware.GetUserID(c), projectID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messages)
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type LikeHandler struct {
	likeService *services.LikeService
}

func NewLikeHandler(likeService *services.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// Toggle likes or unlikes a card and returns the new summary
// POST /api/cards/:id/like
func (h *LikeHandler) Toggle(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	if _, err := h.likeService.Toggle(c.Request.Context(), userID, cardID); err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.likeService.Summary(c.Request.Context(), userID, cardID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}

// Summary returns the like count and whether the caller liked the card
// GET /api/cards/:id/likes
func (h *LikeHandler) Summary(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	summary, err := h.likeService.Summary(c.Request.Context(), middleware.GetUserID(c), cardID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}

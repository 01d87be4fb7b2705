package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Content string `json:"content"`
}

// GET /api/cards/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	comments, err := h.commentService.List(c.Request.Context(), middleware.GetUserID(c), cardID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, comments)
}

// POST /api/cards/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), middleware.GetUserID(c), cardID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// PATCH /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := pathID(c, "id", "comment")
	if !ok {
		return
	}

	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), middleware.GetUserID(c), commentID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, comment)
}

// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := pathID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), middleware.GetUserID(c), commentID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "comment deleted successfully"})
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// multipartOverhead is the slack allowed on top of the image for form framing.
const multipartOverhead = 1 << 20

type CardHandler struct {
	cardService   *services.CardService
	maxImageBytes int64
}

func NewCardHandler(cardService *services.CardService, maxImageBytes int64) *CardHandler {
	return &CardHandler{cardService: cardService, maxImageBytes: maxImageBytes}
}

// List returns the cards of a project
// GET /api/projects/:id/cards
func (h *CardHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	cards, err := h.cardService.List(c.Request.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, cards)
}

// Create adds a card to a project
// POST /api/projects/:id/cards
func (h *CardHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardService.Create(c.Request.Context(), middleware.GetUserID(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, card)
}

// Update edits a card (author or project owner)
// PATCH /api/cards/:id
func (h *CardHandler) Update(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	var req services.UpdateCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardService.Update(c.Request.Context(), middleware.GetUserID(c), cardID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, card)
}

// Delete removes a card with its comments and likes (author or project owner)
// DELETE /api/cards/:id
func (h *CardHandler) Delete(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	if err := h.cardService.Delete(c.Request.Context(), middleware.GetUserID(c), cardID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "card deleted successfully"})
}

// UploadImage attaches the multipart field "image" to a card
// POST /api/cards/:id/image
func (h *CardHandler) UploadImage(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	if h.maxImageBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+multipartOverhead)
	}

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, badRequest(fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes)))
			return
		}
		response.Error(c, badRequest("multipart field \"image\" is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	card, err := h.cardService.AttachImage(c.Request.Context(), middleware.GetUserID(c), cardID, &services.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, card)
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// MemberHandler lets a project owner review and remove members.
type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// List returns the members of a project, oldest first
// GET /api/projects/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus approves a member or moves it back to pending
// PATCH /api/projects/:id/members/:userId
func (h *MemberHandler) SetStatus(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId", "user")
	if !ok {
		return
	}

	var req setStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	membership, err := h.memberService.SetStatus(c.Request.Context(), middleware.GetUserID(c), projectID, targetID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, membership)
}

// Remove deletes a member row
// DELETE /api/projects/:id/members/:userId
func (h *MemberHandler) Remove(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), middleware.GetUserID(c), projectID, targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "member removed"})
}

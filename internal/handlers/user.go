package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// PATCH /api/me
func (h *UserHandler) Update(c *gin.Context) {
	var req services.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// PATCH /api/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "password updated"})
}

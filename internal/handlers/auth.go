package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an account and logs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resp)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	response.Success(c, middleware.GetUser(c))
}

// Logout revokes the presented token until it would have expired
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetIdentity(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "logged out successfully"})
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextUser     = "user"
	ContextIdentity = "identity"
)

// AuthRequired verifies the bearer token and loads the caller. Failures are
// answered with 401 and a reason telling an expired credential apart from an
// invalid one.
func AuthRequired(verifier *services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortWithError(c, response.NewUnauthorized("authorization header required").
				WithReason(services.ReasonInvalidCredential))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			response.AbortWithError(c, response.NewUnauthorized("invalid authorization header format").
				WithReason(services.ReasonInvalidCredential))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(ContextUserID, identity.User.ID)
		c.Set(ContextUser, identity.User)
		c.Set(ContextIdentity, identity)

		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUser gets the current user from context
func GetUser(c *gin.Context) *models.User {
	if u, exists := c.Get(ContextUser); exists {
		return u.(*models.User)
	}
	return nil
}

// GetIdentity gets the verified identity from context
func GetIdentity(c *gin.Context) *services.Identity {
	if id, exists := c.Get(ContextIdentity); exists {
		return id.(*services.Identity)
	}
	return nil
}

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowedOrigins))
	r.Use(middleware.AuditLog())

	// Credential endpoints are the brute-force target
	authLimiter := middleware.NewRateLimiter(5, 10)

	r.GET("/health", svc.healthHandler.CheckHealth)

	// Realtime chat (handshake authenticates itself)
	r.GET("/ws", svc.gateway.ServeWS)

	// Uploaded card images, local driver only
	if local, ok := svc.store.(*storage.LocalStore); ok {
		r.Static(local.PublicPrefix(), local.Dir())
	}

	api := r.Group("/api")
	{
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.verifier))
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Profile
			protected.GET("/me", svc.userHandler.Get)
			protected.PATCH("/me", svc.userHandler.Update)
			protected.PATCH("/me/password", svc.userHandler.ChangePassword)

			// Projects
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/mine", svc.projectHandler.ListMine)
			protected.GET("/projects/joined", svc.projectHandler.ListJoined)
			protected.GET("/projects/pending", svc.projectHandler.ListPending)
			protected.POST("/projects/join", svc.projectHandler.Join)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PATCH("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)

			// Members
			protected.GET("/projects/:id/members", svc.memberHandler.List)
			protected.PATCH("/projects/:id/members/:userId", svc.memberHandler.SetStatus)
			protected.DELETE("/projects/:id/members/:userId", svc.memberHandler.Remove)

			// Cards
			protected.GET("/projects/:id/cards", svc.cardHandler.List)
			protected.POST("/projects/:id/cards", svc.cardHandler.Create)
			protected.PATCH("/cards/:id", svc.cardHandler.Update)
			protected.DELETE("/cards/:id", svc.cardHandler.Delete)
			protected.POST("/cards/:id/image", svc.cardHandler.UploadImage)

			// Comments
			protected.GET("/cards/:id/comments", svc.commentHandler.List)
			protected.POST("/cards/:id/comments", svc.commentHandler.Create)
			protected.PATCH("/comments/:id", svc.commentHandler.Update)
			protected.DELETE("/comments/:id", svc.commentHandler.Delete)

			// Likes
			protected.POST("/cards/:id/like", svc.likeHandler.Toggle)
			protected.GET("/cards/:id/likes", svc.likeHandler.Summary)

			// Chat history
			protected.GET("/projects/:id/chat", svc.chatHandler.History)
		}
	}
}

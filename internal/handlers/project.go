package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create creates a new project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// ListMine returns projects the caller owns
// GET /api/projects/mine
func (h *ProjectHandler) ListMine(c *gin.Context) {
	projects, err := h.projectService.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// ListJoined returns projects the caller is an approved member of
// GET /api/projects/joined
func (h *ProjectHandler) ListJoined(c *gin.Context) {
	projects, err := h.projectService.ListJoined(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// ListPending returns projects where the caller awaits approval
// GET /api/projects/pending
func (h *ProjectHandler) ListPending(c *gin.Context) {
	projects, err := h.projectService.ListPending(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

type joinRequest struct {
	JoinLink string `json:"joinLink"`
}

// Join redeems an invite link or token
// POST /api/projects/join
func (h *ProjectHandler) Join(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.projectService.Join(c.Request.Context(), middleware.GetUserID(c), req.JoinLink)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Joined {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// GetByID returns a project the caller can view
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Update edits project fields (owner only)
// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete deletes a project and everything in it (owner only)
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messageResponse{Message: "project deleted successfully"})
}

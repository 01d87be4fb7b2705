package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

func badRequest(msg string) *response.AppError {
	return response.NewBadRequest(msg).WithReason(string(access.ReasonInvalidInput))
}

// pathID parses a positive numeric path parameter. It writes a 400 and
// returns false when the value is malformed.
func pathID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.Error(c, badRequest("invalid "+label+" id"))
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body into v. It writes a 400 and returns false
// on malformed JSON.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.Error(c, badRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

type messageResponse struct {
	Message string `json:"message"`
}

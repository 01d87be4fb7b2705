package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error kinds shared by the HTTP layer and the realtime gateway.
const (
	KindNotFound     = "NotFound"
	KindUnauthorized = "Unauthorized"
	KindForbidden    = "Forbidden"
	KindInvalidInput = "InvalidInput"
	KindConflict     = "Conflict"
	KindInternal     = "Internal"
)

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       int    // Application-level error code
	Kind       string // One of the Kind* constants
	Reason     string // Finer grained denial reason, e.g. "OwnerOnly"
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// WithReason returns a copy of e carrying the given reason.
func (e *AppError) WithReason(reason string) *AppError {
	cp := *e
	cp.Reason = reason
	return &cp
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Kind: KindInvalidInput, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401, Kind: KindUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Code: 403, Kind: KindForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Kind: KindNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Code: 409, Kind: KindConflict, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: 500, Kind: KindInternal, Message: msg}
}

// AsAppError unwraps err into an *AppError. Errors that carry no kind are
// reported as Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewServerError("internal server error")
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its code and status
// are used; otherwise a generic 500 internal server error is returned.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Kind:    appErr.Kind,
			Reason:  appErr.Reason,
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Kind:    KindInternal,
		Message: "internal server error",
	})
}

// AbortWithError writes err like Error and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Kind: KindInvalidInput, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Kind: KindUnauthorized, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Kind: KindForbidden, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Kind: KindNotFound, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Kind: KindInternal, Message: msg})
}

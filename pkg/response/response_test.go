package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"name": "test"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if resp.Message != "ok" {
		t.Errorf("expected message 'ok', got %q", resp.Message)
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestBadRequest(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		BadRequest(c, "invalid input")
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 400 {
		t.Errorf("expected code 400, got %d", resp.Code)
	}
	if resp.Message != "invalid input" {
		t.Errorf("expected message 'invalid input', got %q", resp.Message)
	}
}

func TestUnauthorized(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Unauthorized(c, "token expired")
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 401 {
		t.Errorf("expected code 401, got %d", resp.Code)
	}
}

func TestForbidden(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Forbidden(c, "owner only")
	})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 403 {
		t.Errorf("expected code 403, got %d", resp.Code)
	}
}

func TestNotFound(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		NotFound(c, "card not found")
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 404 {
		t.Errorf("expected code 404, got %d", resp.Code)
	}
}

func TestServerError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		ServerError(c, "internal error")
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 500 {
		t.Errorf("expected code 500, got %d", resp.Code)
	}
}

func TestError_WithAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		err := NewBadRequest("validation failed")
		Error(c, err)
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 400 {
		t.Errorf("expected code 400, got %d", resp.Code)
	}
	if resp.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %q", resp.Message)
	}
}

func TestError_WithGenericError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("something went wrong"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 500 {
		t.Errorf("expected code 500, got %d", resp.Code)
	}
	if resp.Kind != KindInternal {
		t.Errorf("expected kind %q, got %q", KindInternal, resp.Kind)
	}
	if resp.Message == "something went wrong" {
		t.Error("raw storage errors should not leak to clients")
	}
}

func TestError_CarriesKindAndReason(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, NewUnauthorized("token expired").WithReason("Expired"))
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Kind != KindUnauthorized {
		t.Errorf("expected kind %q, got %q", KindUnauthorized, resp.Kind)
	}
	if resp.Reason != "Expired" {
		t.Errorf("expected reason 'Expired', got %q", resp.Reason)
	}
}

func TestWithReason_DoesNotMutateOriginal(t *testing.T) {
	base := NewForbidden("forbidden")
	derived := base.WithReason("OwnerOnly")

	if base.Reason != "" {
		t.Errorf("base reason should stay empty, got %q", base.Reason)
	}
	if derived.Reason != "OwnerOnly" {
		t.Errorf("derived reason = %q, expected OwnerOnly", derived.Reason)
	}
	if derived.HTTPStatus != http.StatusForbidden {
		t.Errorf("derived status = %d, expected %d", derived.HTTPStatus, http.StatusForbidden)
	}
}

func TestConstructorKinds(t *testing.T) {
	tests := []struct {
		err    *AppError
		kind   string
		status int
	}{
		{NewBadRequest("x"), KindInvalidInput, http.StatusBadRequest},
		{NewUnauthorized("x"), KindUnauthorized, http.StatusUnauthorized},
		{NewForbidden("x"), KindForbidden, http.StatusForbidden},
		{NewNotFound("x"), KindNotFound, http.StatusNotFound},
		{NewConflict("x"), KindConflict, http.StatusConflict},
		{NewServerError("x"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("kind = %q, expected %q", tt.err.Kind, tt.kind)
		}
		if tt.err.HTTPStatus != tt.status {
			t.Errorf("%s: status = %d, expected %d", tt.kind, tt.err.HTTPStatus, tt.status)
		}
	}
}

func TestAsAppError(t *testing.T) {
	notFound := NewNotFound("card not found")
	wrapped := fmt.Errorf("load card: %w", notFound)
	if got := AsAppError(wrapped); got != notFound {
		t.Errorf("AsAppError should unwrap to the original error, got %+v", got)
	}

	if got := AsAppError(errors.New("db down")); got.Kind != KindInternal {
		t.Errorf("untyped errors should map to %q, got %q", KindInternal, got.Kind)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("user not found")
	if err.Error() != "user not found" {
		t.Errorf("expected 'user not found', got %q", err.Error())
	}
}

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

const maxAuditBody = 2000

// AuditLog writes one structured log line per mutating request (POST, PUT,
// PATCH, DELETE) with the caller, route and outcome. Secrets in JSON bodies
// are masked; multipart uploads are not captured.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut &&
			method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		resource, action := parseRouteInfo(c.FullPath(), method)

		event := logger.Info()
		if status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.Str("audit", resource).
			Str("action", action).
			Uint("user_id", GetUserID(c)).
			Str("method", method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("ip", c.ClientIP()).
			Str("body", bodySnippet).
			Msg(outcome(status))
	}
}

// parseRouteInfo extracts resource and action from a gin route pattern,
// e.g. "/api/projects/:id/members/:userId" + "PATCH" gives ("projects.members", "update").
func parseRouteInfo(fullPath, method string) (resource, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	var names []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") {
			continue
		}
		names = append(names, seg)
	}
	resource = strings.Join(names, ".")
	if resource == "" {
		resource = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return resource, action
}

func outcome(status int) string {
	if status >= 200 && status < 300 {
		return "Audit OK"
	}
	return "Audit failed"
}

var sensitiveKeys = []string{"password", "oldPassword", "newPassword", "token", "joinLink", "secret"}

// maskSensitiveFields replaces sensitive values in a JSON body
func maskSensitiveFields(body string) string {
	for _, key := range sensitiveKeys {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue masks every quoted string value of key, best effort.
func maskJSONValue(body, key string) string {
	needle := "\"" + strings.ToLower(key) + "\""
	from := 0
	for {
		lower := strings.ToLower(body)
		rel := strings.Index(lower[from:], needle)
		if rel == -1 {
			return body
		}
		idx := from + rel + len(needle)

		colon := strings.Index(body[idx:], ":")
		if colon == -1 {
			return body
		}
		valueStart := idx + colon + 1
		for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
			valueStart++
		}
		if valueStart >= len(body) || body[valueStart] != '"' {
			from = idx
			continue
		}

		endQuote := strings.Index(body[valueStart+1:], "\"")
		if endQuote == -1 {
			return body
		}
		body = body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
		from = valueStart + 4
	}
}

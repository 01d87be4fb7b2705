package realtime

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"golang.org/x/time/rate"
)

// Gateway admits websocket connections to project chat rooms.
type Gateway struct {
	verifier *services.IdentityVerifier
	guard    *services.AccessGuard
	chat     *services.ChatService
	hub      *Hub
	cfg      config.ChatConfig
	upgrader websocket.Upgrader
}

func NewGateway(verifier *services.IdentityVerifier, guard *services.AccessGuard, chat *services.ChatService,
	hub *Hub, cfg config.ChatConfig, allowedOrigins []string) *Gateway {
	return &Gateway{
		verifier: verifier,
		guard:    guard,
		chat:     chat,
		hub:      hub,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS handles GET /ws?projectId=<id>&token=<jwt>. The project id, the
// credential and chat access are checked in that order, and any failure is
// answered with a JSON error before the protocol upgrade.
func (g *Gateway) ServeWS(c *gin.Context) {
	ctx := c.Request.Context()

	projectID, err := strconv.ParseUint(strings.TrimSpace(c.Query("projectId")), 10, 64)
	if err != nil || projectID == 0 {
		g.reject(c, 0, 0, response.NewBadRequest("invalid project id").WithReason(string(access.ReasonInvalidInput)))
		return
	}

	identity, err := g.verifier.Verify(ctx, credential(c))
	if err != nil {
		g.reject(c, uint(projectID), 0, err)
		return
	}
	userID := identity.User.ID

	if _, err := g.guard.Project(ctx, userID, uint(projectID), access.ActionChat); err != nil {
		g.reject(c, uint(projectID), userID, err)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		logger.Warn().Err(err).Uint("project_id", uint(projectID)).Uint("user_id", userID).Msg("Websocket upgrade failed")
		return
	}

	client := &Client{
		id:            uuid.NewString(),
		userID:        userID,
		projectID:     uint(projectID),
		user:          identity.User,
		gw:            g,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
		sendLimiter:   newLimiter(g.cfg.SendPerSecond, g.cfg.SendBurst),
		typingLimiter: newLimiter(g.cfg.TypingPerSecond, 2),
	}
	g.hub.Join(client)

	logger.Info().Str("conn_id", client.id).Uint("project_id", client.projectID).Uint("user_id", userID).
		Int("room_size", g.hub.RoomSize(client.projectID)).Msg("Realtime connection admitted")

	go client.writePump(ctx)
	client.readPump(ctx)

	logger.Info().Str("conn_id", client.id).Uint("project_id", client.projectID).Uint("user_id", userID).
		Msg("Realtime connection closed")
}

func (g *Gateway) reject(c *gin.Context, projectID, userID uint, err error) {
	appErr := response.AsAppError(err)
	event := logger.Info()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		event = logger.Error().Err(err)
	}
	event.Uint("project_id", projectID).Uint("user_id", userID).Int("status", appErr.HTTPStatus).
		Str("reason", appErr.Reason).Msg("Realtime connection rejected")
	response.Error(c, appErr)
}

// credential reads the token query parameter, falling back to a bearer header.
func credential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// originChecker allows requests without an Origin header (non-browser
// clients) and origins in allowed. "*" allows all.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

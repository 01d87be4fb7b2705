package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 16 << 10
	sendBufferSize = 64
)

// Client is one admitted websocket connection, bound to a user and a project
// for its whole lifetime.
type Client struct {
	id        string
	userID    uint
	projectID uint
	user      *models.User

	gw   *Gateway
	conn *websocket.Conn
	room *room

	send chan []byte
	done chan struct{}
	once sync.Once

	sendLimiter   *rate.Limiter
	typingLimiter *rate.Limiter
}

// enqueue hands data to the write pump without blocking. It reports false
// when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) reply(frame *Frame) {
	data, err := frame.Encode()
	if err != nil {
		logger.Error().Err(err).Str("conn_id", c.id).Msg("Failed to encode reply")
		return
	}
	if !c.enqueue(data) {
		c.gw.hub.Leave(c)
		c.Close()
	}
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close stops both pumps. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// readPump decodes inbound frames until the peer goes away.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.gw.hub.Leave(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Debug().Err(err).Str("conn_id", c.id).Msg("Realtime read error")
			}
			return
		}

		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			c.reply(&Frame{Event: EventError, Data: errorData(response.NewBadRequest("malformed frame").
				WithReason(string(access.ReasonInvalidInput)))})
			continue
		}

		switch in.Event {
		case EventSend:
			c.handleSend(ctx, in)
		case EventTyping:
			c.handleTyping(in)
		default:
			err := response.NewBadRequest("unknown event " + in.Event).WithReason(string(access.ReasonInvalidInput))
			if in.ID != nil {
				c.reply(ackError(in.ID, err))
			} else {
				c.reply(&Frame{Event: EventError, Data: errorData(err)})
			}
		}
	}
}

func (c *Client) handleSend(ctx context.Context, in inboundFrame) {
	if c.closed() {
		c.reply(ackError(in.ID, errNotAdmitted))
		return
	}
	if !c.sendLimiter.Allow() {
		c.reply(ackError(in.ID, response.NewBadRequest("sending too fast").WithReason(services.ReasonRateLimited)))
		return
	}

	var payload sendPayload
	if len(in.Data) == 0 || json.Unmarshal(in.Data, &payload) != nil {
		c.reply(ackError(in.ID, response.NewBadRequest("content is required").WithReason(string(access.ReasonInvalidInput))))
		return
	}

	// Reject before taking the room lock; Append validates again.
	if _, err := c.gw.chat.ValidateContent(payload.Content); err != nil {
		c.reply(ackError(in.ID, err))
		return
	}

	var stored *services.ChatMessageView
	err := c.gw.hub.Publish(c, func() (*Frame, error) {
		msg, err := c.gw.chat.Append(ctx, c.user, c.projectID, payload.Content)
		if err != nil {
			return nil, err
		}
		stored = msg
		return &Frame{Event: EventNew, Data: msg}, nil
	})
	if err != nil {
		var appErr *response.AppError
		if !errors.As(err, &appErr) {
			logger.Error().Err(err).Str("conn_id", c.id).Uint("project_id", c.projectID).Msg("Failed to store chat message")
		}
		c.reply(ackError(in.ID, err))
		return
	}
	c.reply(ackOK(in.ID, stored))
}

func (c *Client) handleTyping(in inboundFrame) {
	isTyping, err := decodeTyping(in.Data)
	if err != nil {
		if in.ID != nil {
			c.reply(ackError(in.ID, response.NewBadRequest(err.Error()).WithReason(string(access.ReasonInvalidInput))))
		}
		return
	}
	// Typing indicators are best-effort; excess ones are dropped silently.
	if !c.typingLimiter.Allow() {
		return
	}
	c.gw.hub.BroadcastOthers(c, &Frame{Event: EventTyping, Data: TypingData{UserID: c.userID, IsTyping: isTyping}})
}

// writePump is the only writer on conn. It also re-checks chat access every
// revalidate interval.
func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var recheck <-chan time.Time
	if interval := c.gw.cfg.RevalidateInterval; interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		recheck = t.C
	}

	defer c.conn.Close()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-recheck:
			if reason, revoked := c.revalidate(ctx); revoked {
				c.revoke(reason)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// revalidate reports whether the connection lost chat access. Storage errors
// keep the connection open.
func (c *Client) revalidate(ctx context.Context) (string, bool) {
	_, err := c.gw.guard.Project(ctx, c.userID, c.projectID, access.ActionChat)
	if err == nil {
		return "", false
	}
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		logger.Warn().Err(err).Str("conn_id", c.id).Msg("Realtime revalidation failed")
		return "", false
	}
	return appErr.Reason, true
}

func (c *Client) revoke(reason string) {
	logger.Info().Str("conn_id", c.id).Uint("project_id", c.projectID).Uint("user_id", c.userID).
		Str("reason", reason).Msg("Realtime access revoked")

	c.gw.hub.Leave(c)
	c.Close()

	if data, err := (&Frame{Event: EventRevoked, Data: RevokedData{Reason: reason}}).Encode(); err == nil {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.TextMessage, data)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}

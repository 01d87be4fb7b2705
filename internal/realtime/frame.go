package realtime

import (
	"encoding/json"
	"errors"

	"github.com/huangang/ideaforge/backend/pkg/response"
)

// Event names carried in Frame.Event.
const (
	EventSend    = "chat:send"
	EventTyping  = "chat:typing"
	EventNew     = "chat:new"
	EventRevoked = "chat:revoked"
	EventAck     = "ack"
	EventError   = "error"
)

// Frame is the JSON envelope exchanged over the socket. ID is set by the
// client on requests that expect an ack and echoed back on the ack.
type Frame struct {
	Event string      `json:"event"`
	ID    *int64      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Encode marshals the frame for the wire.
func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// inboundFrame keeps Data raw so each event decodes its own payload.
type inboundFrame struct {
	Event string          `json:"event"`
	ID    *int64          `json:"id"`
	Data  json.RawMessage `json:"data"`
}

// AckData is the payload of an ack frame.
type AckData struct {
	OK      bool        `json:"ok"`
	Message interface{} `json:"message,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData describes a failed request.
type ErrorData struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// TypingData is broadcast to the other connections of a room.
type TypingData struct {
	UserID   uint `json:"userId"`
	IsTyping bool `json:"isTyping"`
}

// RevokedData tells a connection why it is being closed.
type RevokedData struct {
	Reason string `json:"reason"`
}

type sendPayload struct {
	Content string `json:"content"`
}

func errorData(err error) *ErrorData {
	appErr := response.AsAppError(err)
	return &ErrorData{Kind: appErr.Kind, Reason: appErr.Reason, Message: appErr.Message}
}

func ackOK(id *int64, message interface{}) *Frame {
	return &Frame{Event: EventAck, ID: id, Data: AckData{OK: true, Message: message}}
}

func ackError(id *int64, err error) *Frame {
	return &Frame{Event: EventAck, ID: id, Data: AckData{OK: false, Error: errorData(err)}}
}

var errTypingPayload = errors.New("typing payload must be a boolean or {isTyping}")

// decodeTyping accepts either a bare boolean or {"isTyping": bool}.
func decodeTyping(raw json.RawMessage) (bool, error) {
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}
	var obj struct {
		IsTyping *bool `json:"isTyping"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.IsTyping == nil {
		return false, errTypingPayload
	}
	return *obj.IsTyping, nil
}

package model

import (
	"encoding/json"
	"time"
)

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StatusMessage is a transient notification shown next to an admin form.
type StatusMessage struct {
	Scope     string    `json:"scope"`
	Message   string    `json:"message"`
	IsError   bool      `json:"is_error"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WebSocketMessage represents a message sent over a WebSocket connection.
// Payload carries the type-specific body.
type WebSocketMessage struct {
	Type      string          `json:"type"`
	Slideshow string          `json:"slideshow,omitempty"`
	Index     int             `json:"index,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WebSocket message types.
const (
	// Server to client.
	WSMessageTypeSlideshowState = "slideshow_state"
	WSMessageTypeFormReset      = "form_reset"
	WSMessageTypeStatus         = "status"
	WSMessageTypeError          = "error"

	// Client to server.
	WSMessageTypePrev         = "prev"
	WSMessageTypeNext         = "next"
	WSMessageTypeGoTo         = "goto"
	WSMessageTypePointerEnter = "pointer_enter"
	WSMessageTypePointerLeave = "pointer_leave"
)

// NewWebSocketMessage creates a server message with a JSON-encoded payload.
func NewWebSocketMessage(msgType, slideshow string, payload any) (WebSocketMessage, error) {
	msg := WebSocketMessage{
		Type:      msgType,
		Slideshow: slideshow,
		Timestamp: time.Now().UTC(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return WebSocketMessage{}, err
		}
		msg.Payload = raw
	}

	return msg, nil
}

// Package handler provides the HTTP and WebSocket handlers of the site server.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// SessionManager signs admins in and out.
type SessionManager interface {
	Login(r *http.Request) (session.Session, error)
	Logout(r *http.Request) error
}

// badRequestErrors are client mistakes reported as 400.
var badRequestErrors = []error{
	slideshow.ErrNoFile,
	slideshow.ErrInvalidFileType,
	slideshow.ErrFileTooLarge,
	content.ErrInvalidOrder,
	model.ErrEmptyID,
	model.ErrEmptyTitle,
	model.ErrTitleTooLong,
	model.ErrDescriptionLimit,
	model.ErrEmptyImage,
	model.ErrEmptyCategory,
	model.ErrInvalidMediaType,
	model.ErrEmptyName,
	model.ErrEditableTooLong,
	model.ErrEmptySlideID,
	model.ErrEmptySlideSrc,
}

// errorStatus maps a domain error to an HTTP status code and a client-safe
// message. Unknown errors are internal.
func errorStatus(err error) (int, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	switch {
	case errors.Is(err, slideshow.ErrForbidden), errors.Is(err, content.ErrForbidden):
		return http.StatusForbidden, "admin login required"
	case errors.Is(err, slideshow.ErrSlideNotFound):
		return http.StatusNotFound, "slide not found"
	case errors.Is(err, content.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, slideshow.ErrNotMounted):
		return http.StatusConflict, "slideshow is not mounted"
	case errors.Is(err, slideshow.ErrNotInitialized),
		errors.Is(err, slideshow.ErrClosed),
		errors.Is(err, content.ErrNotLoaded):
		return http.StatusServiceUnavailable, "content is not available yet"
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, "storage is full"
	case errors.Is(err, slideshow.ErrReadFailed):
		return http.StatusInternalServerError, "error reading file"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// responder writes JSON envelopes.
type responder struct {
	logger *zap.Logger
}

// writeJSON writes a JSON response with the given status code.
func (h responder) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error envelope.
func (h responder) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.NewErrorResponse[any](message))
}

// handleError logs err when it is a server fault and writes the mapped
// response.
func (h responder) handleError(w http.ResponseWriter, err error, operation string) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	} else {
		h.logger.Debug("operation rejected", zap.String("operation", operation), zap.Error(err))
	}
	h.writeError(w, status, message)
}

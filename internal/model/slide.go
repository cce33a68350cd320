// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation errors for SlideItem.
var (
	ErrEmptySlideID  = errors.New("slide id cannot be empty")
	ErrEmptySlideSrc = errors.New("slide src cannot be empty")
)

// SlideItem is one rotating carousel entry.
type SlideItem struct {
	ID  string `json:"id"`
	Src string `json:"src"`
}

// Validate checks if the SlideItem has valid field values.
func (s *SlideItem) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptySlideID
	}

	if s.Src == "" {
		return ErrEmptySlideSrc
	}

	return nil
}

// NewSlideID returns a unique slide id stamped with the generation time.
// The uuid suffix keeps ids unique when two uploads finish in the same millisecond.
func NewSlideID(now time.Time) string {
	return fmt.Sprintf("slide-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// ShortID returns the trailing part of an id as shown in admin lists.
func ShortID(id string) string {
	const keep = 12
	if len(id) <= keep {
		return id
	}
	return "..." + id[len(id)-keep:]
}

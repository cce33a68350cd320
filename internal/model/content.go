package model

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Validation errors for content records.
var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrTitleTooLong     = errors.New("title cannot exceed 255 characters")
	ErrDescriptionLimit = errors.New("description cannot exceed 1000 characters")
	ErrEmptyImage       = errors.New("image cannot be empty")
	ErrEmptyCategory    = errors.New("category cannot be empty")
	ErrInvalidMediaType = errors.New("media type must be image or video")
	ErrEmptyName        = errors.New("name cannot be empty")
)

// Validation constants.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
)

// Media types for gallery items.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// NewContentID returns a generation-time stamped id with the given prefix.
func NewContentID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixMilli())
}

// Service is an offering shown on the services page.
type Service struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageSrc    string `json:"imageSrc"`
}

// GetID returns the service id.
func (s Service) GetID() string { return s.ID }

// WithID returns a copy carrying the given id.
func (s Service) WithID(id string) Service {
	s.ID = id
	return s
}

// Inherit keeps the stored image when the edit carries none.
func (s Service) Inherit(prev Service) Service {
	if s.ImageSrc == "" {
		s.ImageSrc = prev.ImageSrc
	}
	return s
}

// Validate checks if the Service has valid field values.
func (s Service) Validate() error {
	if err := validateTitle(s.Title); err != nil {
		return err
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if len(s.Description) > MaxDescriptionLength {
		return ErrDescriptionLimit
	}
	if s.ImageSrc == "" {
		return ErrEmptyImage
	}
	return nil
}

// PortfolioItem is a titled image in the portfolio grid.
type PortfolioItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageSrc string `json:"imageSrc"`
}

// GetID returns the portfolio item id.
func (p PortfolioItem) GetID() string { return p.ID }

// WithID returns a copy carrying the given id.
func (p PortfolioItem) WithID(id string) PortfolioItem {
	p.ID = id
	return p
}

// Inherit keeps the stored image when the edit carries none.
func (p PortfolioItem) Inherit(prev PortfolioItem) PortfolioItem {
	if p.ImageSrc == "" {
		p.ImageSrc = prev.ImageSrc
	}
	return p
}

// Validate checks if the PortfolioItem has valid field values.
func (p PortfolioItem) Validate() error {
	if err := validateTitle(p.Title); err != nil {
		return err
	}
	if p.ImageSrc == "" {
		return ErrEmptyImage
	}
	return nil
}

// FeaturedWork is a highlighted project on the home page.
type FeaturedWork struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ImageSrc    string `json:"imageSrc"`
	Description string `json:"description"`
}

// GetID returns the featured work id.
func (f FeaturedWork) GetID() string { return f.ID }

// WithID returns a copy carrying the given id.
func (f FeaturedWork) WithID(id string) FeaturedWork {
	f.ID = id
	return f
}

// Inherit keeps the stored image when the edit carries none.
func (f FeaturedWork) Inherit(prev FeaturedWork) FeaturedWork {
	if f.ImageSrc == "" {
		f.ImageSrc = prev.ImageSrc
	}
	return f
}

// Validate checks if the FeaturedWork has valid field values.
func (f FeaturedWork) Validate() error {
	if err := validateTitle(f.Title); err != nil {
		return err
	}
	if len(f.Description) > MaxDescriptionLength {
		return ErrDescriptionLimit
	}
	if f.ImageSrc == "" {
		return ErrEmptyImage
	}
	return nil
}

// GalleryItem is an image or video in the public gallery.
type GalleryItem struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Src        string `json:"src"`
	Title      string `json:"title"`
	FileType   string `json:"fileType"`
	CaptionSrc string `json:"captionSrc,omitempty"`
}

// GetID returns the gallery item id.
func (g GalleryItem) GetID() string { return g.ID }

// WithID returns a copy carrying the given id.
func (g GalleryItem) WithID(id string) GalleryItem {
	g.ID = id
	return g
}

// Inherit keeps the stored media when the edit carries none.
func (g GalleryItem) Inherit(prev GalleryItem) GalleryItem {
	if g.Src == "" {
		g.Src = prev.Src
		g.Type = prev.Type
		g.FileType = prev.FileType
		g.CaptionSrc = prev.CaptionSrc
	}
	return g
}

// Validate checks if the GalleryItem has valid field values.
func (g GalleryItem) Validate() error {
	if err := validateTitle(g.Title); err != nil {
		return err
	}
	if g.Type != MediaTypeImage && g.Type != MediaTypeVideo {
		return ErrInvalidMediaType
	}
	if g.Src == "" {
		return ErrEmptyImage
	}
	return nil
}

// SiteSetting is one editable site-wide value such as a phone number or
// social link. Suffix carries the optional second half of paired settings.
type SiteSetting struct {
	Value  string `json:"currentValue"`
	Suffix string `json:"currentSuffixValue,omitempty"`
}

// SiteSettings maps setting keys to their current values.
type SiteSettings map[string]SiteSetting

// Validate checks that every setting has a key.
func (s SiteSettings) Validate() error {
	for key := range s {
		if strings.TrimSpace(key) == "" {
			return ErrEmptyID
		}
	}
	return nil
}

// CEOInfo is the bio block on the about page.
type CEOInfo struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	ImageSrc string `json:"imageSrc"`
}

// Validate checks if the CEOInfo has valid field values.
func (c CEOInfo) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.ImageSrc == "" {
		return ErrEmptyImage
	}
	return nil
}

// MaxEditableLength bounds the HTML of one editable text block.
const MaxEditableLength = 10000

// ErrEditableTooLong is returned for an editable block over MaxEditableLength.
var ErrEditableTooLong = errors.New("editable content cannot exceed 10000 characters")

// EditableContent maps the ids of inline-editable text blocks to their
// saved HTML.
type EditableContent map[string]string

// Validate checks that every block has an id and a bounded body.
func (e EditableContent) Validate() error {
	for id, html := range e {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyID
		}
		if len(html) > MaxEditableLength {
			return ErrEditableTooLong
		}
	}
	return nil
}

// With returns a copy with block id set to html.
func (e EditableContent) With(id, html string) EditableContent {
	out := make(EditableContent, len(e)+1)
	maps.Copy(out, e)
	out[id] = html
	return out
}

// SiteLogo is the header logo. An empty Src means the built-in logo.
type SiteLogo struct {
	Src string `json:"src"`
}

// Custom reports whether an uploaded logo replaces the built-in one.
func (l SiteLogo) Custom() bool { return l.Src != "" }

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

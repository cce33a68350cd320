package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

// Site file errors.
var (
	ErrNoSlideshows          = errors.New("site must define at least one slideshow")
	ErrEmptySlideshowName    = errors.New("slideshow name cannot be empty")
	ErrEmptyStorageKey       = errors.New("slideshow storage key cannot be empty")
	ErrDuplicateSlideshow    = errors.New("duplicate slideshow name")
	ErrDuplicateStorageKey   = errors.New("duplicate slideshow storage key")
	ErrNegativeSlideshowTime = errors.New("slideshow dwell cannot be negative")
)

// Site describes the slideshows mounted on the site.
type Site struct {
	Slideshows []Slideshow `koanf:"slideshows"`
}

// Slideshow is one slideshow definition. Disabled slideshows are registered
// but not mounted, so they do no work.
type Slideshow struct {
	Name       string            `koanf:"name"`
	StorageKey string            `koanf:"storage_key"`
	Disabled   bool              `koanf:"disabled"`
	Dwell      time.Duration     `koanf:"dwell"` // 0 uses the global dwell interval
	Items      []model.SlideItem `koanf:"items"`
}

// DefaultSite returns the home, about and portfolio slideshows with their
// stock images.
func DefaultSite() *Site {
	return &Site{
		Slideshows: []Slideshow{
			{
				Name:       "home",
				StorageKey: "logan-design-slideshow",
				Items: []model.SlideItem{
					{ID: "default-1", Src: "https://images.unsplash.com/photo-1558655146-364ada1fcc9?q=80&w=1974&auto=format&fit=crop"},
					{ID: "default-2", Src: "https://images.unsplash.com/photo-1522199755839-a2bacb67c546?q=80&w=2072&auto=format&fit=crop"},
					{ID: "default-3", Src: "https://images.unsplash.com/photo-1556740738-b6a63e27c4df?q=80&w=2070&auto=format&fit=crop"},
				},
			},
			{
				Name:       "about",
				StorageKey: "logan-design-about-slideshow",
				Items: []model.SlideItem{
					{ID: "about-default-1", Src: "https://images.unsplash.com/photo-1523240795612-9a054b0db644?q=80&w=2070&auto=format&fit=crop"},
					{ID: "about-default-2", Src: "https://images.unsplash.com/photo-1552664730-d307ca884978?q=80&w=2070&auto=format&fit=crop"},
				},
			},
			{
				Name:       "portfolio",
				StorageKey: "logan-design-portfolio-slideshow",
				Items: []model.SlideItem{
					{ID: "portfolio-default-1", Src: "https://images.unsplash.com/photo-1600880292210-85938c827366?q=80&w=1974&auto=format&fit=crop"},
				},
			},
		},
	}
}

// LoadSite reads the site definition from a TOML file. An empty path yields
// DefaultSite.
func LoadSite(path string) (*Site, error) {
	if path == "" {
		return DefaultSite(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("loading site file %s: %w", path, err)
	}

	site := &Site{}
	if err := k.Unmarshal("", site); err != nil {
		return nil, fmt.Errorf("decoding site file %s: %w", path, err)
	}

	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("validating site file %s: %w", path, err)
	}

	return site, nil
}

// Validate checks slideshow names, storage keys and default items.
func (s *Site) Validate() error {
	if len(s.Slideshows) == 0 {
		return ErrNoSlideshows
	}

	names := make(map[string]bool, len(s.Slideshows))
	keys := make(map[string]bool, len(s.Slideshows))

	for _, show := range s.Slideshows {
		if show.Name == "" {
			return ErrEmptySlideshowName
		}
		if show.StorageKey == "" {
			return fmt.Errorf("slideshow %q: %w", show.Name, ErrEmptyStorageKey)
		}
		if names[show.Name] {
			return fmt.Errorf("slideshow %q: %w", show.Name, ErrDuplicateSlideshow)
		}
		if keys[show.StorageKey] {
			return fmt.Errorf("slideshow %q: %w", show.Name, ErrDuplicateStorageKey)
		}
		if show.Dwell < 0 {
			return fmt.Errorf("slideshow %q: %w", show.Name, ErrNegativeSlideshowTime)
		}
		for i, item := range show.Items {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("slideshow %q item %d: %w", show.Name, i, err)
			}
		}

		names[show.Name] = true
		keys[show.StorageKey] = true
	}

	return nil
}

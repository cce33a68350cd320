package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

func writeSiteFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "site.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing site file: %v", err)
	}
	return path
}

func TestLoadSite_Default(t *testing.T) {
	// Act
	site, err := LoadSite("")

	// Assert
	if err != nil {
		t.Fatalf("LoadSite() unexpected error: %v", err)
	}
	if err := site.Validate(); err != nil {
		t.Errorf("DefaultSite() invalid: %v", err)
	}

	var names, keys []string
	counts := map[string]int{}
	for _, show := range site.Slideshows {
		names = append(names, show.Name)
		keys = append(keys, show.StorageKey)
		counts[show.Name] = len(show.Items)
	}
	if diff := cmp.Diff([]string{"home", "about", "portfolio"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	wantKeys := []string{"logan-design-slideshow", "logan-design-about-slideshow", "logan-design-portfolio-slideshow"}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"home": 3, "about": 2, "portfolio": 1}, counts); diff != "" {
		t.Errorf("item counts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSite_File(t *testing.T) {
	// Arrange
	path := writeSiteFile(t, `
[[slideshows]]
name = "home"
storage_key = "acme-home-slideshow"
dwell = "8s"

  [[slideshows.items]]
  id = "hero-1"
  src = "https://cdn.example.com/hero-1.jpg"

  [[slideshows.items]]
  id = "hero-2"
  src = "https://cdn.example.com/hero-2.jpg"

[[slideshows]]
name = "team"
storage_key = "acme-team-slideshow"
disabled = true
`)

	// Act
	site, err := LoadSite(path)

	// Assert
	if err != nil {
		t.Fatalf("LoadSite() unexpected error: %v", err)
	}
	want := &Site{Slideshows: []Slideshow{
		{
			Name:       "home",
			StorageKey: "acme-home-slideshow",
			Dwell:      8 * time.Second,
			Items: []model.SlideItem{
				{ID: "hero-1", Src: "https://cdn.example.com/hero-1.jpg"},
				{ID: "hero-2", Src: "https://cdn.example.com/hero-2.jpg"},
			},
		},
		{Name: "team", StorageKey: "acme-team-slideshow", Disabled: true},
	}}
	if diff := cmp.Diff(want, site); diff != "" {
		t.Errorf("site mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSite_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no slideshows",
			content: `title = "x"`,
			wantErr: ErrNoSlideshows,
		},
		{
			name: "missing storage key",
			content: `
[[slideshows]]
name = "home"
`,
			wantErr: ErrEmptyStorageKey,
		},
		{
			name: "duplicate name",
			content: `
[[slideshows]]
name = "home"
storage_key = "a"

[[slideshows]]
name = "home"
storage_key = "b"
`,
			wantErr: ErrDuplicateSlideshow,
		},
		{
			name: "shared storage key",
			content: `
[[slideshows]]
name = "home"
storage_key = "a"

[[slideshows]]
name = "about"
storage_key = "a"
`,
			wantErr: ErrDuplicateStorageKey,
		},
		{
			name: "item without src",
			content: `
[[slideshows]]
name = "home"
storage_key = "a"
  [[slideshows.items]]
  id = "x"
`,
			wantErr: model.ErrEmptySlideSrc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			path := writeSiteFile(t, tt.content)

			// Act
			_, err := LoadSite(path)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadSite() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSite_MissingFile(t *testing.T) {
	_, err := LoadSite(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Error("LoadSite() expected error for missing file")
	}
}

func TestLoadSite_MalformedFile(t *testing.T) {
	_, err := LoadSite(writeSiteFile(t, "[[slideshows]\nname ="))
	if err == nil {
		t.Error("LoadSite() expected error for malformed file")
	}
}

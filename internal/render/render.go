// Package render turns slideshow views into HTML fragments and client pushes.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
)

//go:embed templates/*.html
var templateFS embed.FS

// Cache keeps the latest view of every slideshow.
type Cache struct {
	mu     sync.RWMutex
	views  map[string]slideshow.View
	resets map[string]int
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		views:  make(map[string]slideshow.View),
		resets: make(map[string]int),
	}
}

// Render implements slideshow.Renderer.
func (c *Cache) Render(view slideshow.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.Name] = view
}

// ResetAddForm implements slideshow.Renderer.
func (c *Cache) ResetAddForm(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets[name]++
}

// Get returns the last rendered view of name.
func (c *Cache) Get(name string) (slideshow.View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.views[name]
	return v, ok
}

// FormResets returns how often the add form of name was reset.
func (c *Cache) FormResets(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resets[name]
}

// Fanout forwards every call to each renderer in order.
type Fanout []slideshow.Renderer

// Render implements slideshow.Renderer.
func (f Fanout) Render(view slideshow.View) {
	for _, r := range f {
		r.Render(view)
	}
}

// ResetAddForm implements slideshow.Renderer.
func (f Fanout) ResetAddForm(name string) {
	for _, r := range f {
		r.ResetAddForm(name)
	}
}

// Publisher pushes messages to connected clients.
type Publisher interface {
	Publish(msg model.WebSocketMessage)
}

// Push publishes views as slideshow_state messages.
type Push struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewPush creates a Push renderer.
func NewPush(publisher Publisher, logger *zap.Logger) *Push {
	return &Push{publisher: publisher, logger: logger}
}

// Render implements slideshow.Renderer.
func (p *Push) Render(view slideshow.View) {
	msg, err := model.NewWebSocketMessage(model.WSMessageTypeSlideshowState, view.Name, view)
	if err != nil {
		p.logger.Error("failed to encode slideshow state", zap.String("slideshow", view.Name), zap.Error(err))
		return
	}
	msg.Index = view.Current
	p.publisher.Publish(msg)
}

// ResetAddForm implements slideshow.Renderer.
func (p *Push) ResetAddForm(name string) {
	msg, err := model.NewWebSocketMessage(model.WSMessageTypeFormReset, name, nil)
	if err != nil {
		p.logger.Error("failed to encode form reset", zap.String("slideshow", name), zap.Error(err))
		return
	}
	p.publisher.Publish(msg)
}

// Pages renders the carousel and admin list fragments.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"src":   safeSrc,
		"short": model.ShortID,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Pages{tmpl: tmpl}, nil
}

// Carousel writes the public carousel of view: one slide and one dot per
// item, the prev/next arrows, or a placeholder when there are no slides.
func (p *Pages) Carousel(w io.Writer, view slideshow.View) error {
	return p.tmpl.ExecuteTemplate(w, "carousel", view)
}

// AdminList writes the admin list of view with a delete button per item.
func (p *Pages) AdminList(w io.Writer, view slideshow.View) error {
	return p.tmpl.ExecuteTemplate(w, "admin_list", view)
}

// safeSrc passes http(s) and image data URLs through unescaped. Anything
// else becomes an inert fragment link.
func safeSrc(src string) template.URL {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "data:image/"),
		strings.HasPrefix(lower, "/"):
		return template.URL(src) //nolint:gosec // scheme checked above
	default:
		return template.URL("#")
	}
}

package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/slideshow"
)

// ViewSource returns the last rendered view of a slideshow.
type ViewSource interface {
	Get(name string) (slideshow.View, bool)
}

// Fragments renders slideshow views as HTML.
type Fragments interface {
	Carousel(w io.Writer, view slideshow.View) error
	AdminList(w io.Writer, view slideshow.View) error
}

// PageHandler serves the carousel and admin list HTML fragments of mounted
// slideshows.
type PageHandler struct {
	responder
	views     ViewSource
	fragments Fragments
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(views ViewSource, fragments Fragments, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		responder: responder{logger: logger},
		views:     views,
		fragments: fragments,
	}
}

// RegisterRoutes registers the public carousel on router and the admin list
// on admin.
func (h *PageHandler) RegisterRoutes(router, admin *mux.Router) {
	router.HandleFunc("/slideshows/{name}", h.Carousel).Methods(http.MethodGet)
	admin.HandleFunc("/admin/slideshows/{name}", h.AdminList).Methods(http.MethodGet)
}

// Carousel handles GET /slideshows/{name} requests.
func (h *PageHandler) Carousel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.fragments.Carousel)
}

// AdminList handles GET /admin/slideshows/{name} requests.
func (h *PageHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.fragments.AdminList)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, fragment func(io.Writer, slideshow.View) error) {
	name := mux.Vars(r)["name"]

	view, ok := h.views.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := fragment(&buf, view); err != nil {
		h.logger.Error("failed to render fragment", zap.String("slideshow", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/status"
)

// UploadField is the multipart field carrying a slide image.
const UploadField = "file"

// maxMultipartMemory is the part of an upload kept in memory; the rest
// spills to temporary files.
const maxMultipartMemory = 8 << 20

// SlideshowSummary describes one registered slideshow.
type SlideshowSummary struct {
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
	Mounted    bool   `json:"mounted"`
	Slides     int    `json:"slides"`
	Current    int    `json:"current"`
}

// RESTHandler serves probes and the slideshow API.
type RESTHandler struct {
	responder
	registry *slideshow.Registry
	board    *status.Board
	ready    atomic.Bool
}

// NewRESTHandler creates a RESTHandler. It reports not ready until SetReady
// is called.
func NewRESTHandler(registry *slideshow.Registry, board *status.Board, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		responder: responder{logger: logger},
		registry:  registry,
		board:     board,
	}
}

// SetReady marks content as loaded.
func (h *RESTHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RegisterProbeRoutes registers /health and /ready.
func (h *RESTHandler) RegisterProbeRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// RegisterRoutes registers the slideshow API routes.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	h.RegisterProbeRoutes(router)

	api := router.PathPrefix("/api/v1/slideshows").Subrouter()
	api.HandleFunc("", h.ListSlideshows).Methods(http.MethodGet)
	api.HandleFunc("/{name}", h.GetSlideshow).Methods(http.MethodGet)
	api.HandleFunc("/{name}/next", h.navigate((*slideshow.Manager).Next)).Methods(http.MethodPost)
	api.HandleFunc("/{name}/prev", h.navigate((*slideshow.Manager).Previous)).Methods(http.MethodPost)
	api.HandleFunc("/{name}/pointer-enter", h.navigate((*slideshow.Manager).PointerEnter)).Methods(http.MethodPost)
	api.HandleFunc("/{name}/pointer-leave", h.navigate((*slideshow.Manager).PointerLeave)).Methods(http.MethodPost)
	api.HandleFunc("/{name}/goto/{n:-?[0-9]+}", h.GoTo).Methods(http.MethodPost)
	api.HandleFunc("/{name}/slides", h.AddSlide).Methods(http.MethodPost)
	api.HandleFunc("/{name}/slides/{id}", h.DeleteSlide).Methods(http.MethodDelete)
	api.HandleFunc("/{name}/status", h.GetStatus).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(HealthResponse{
		Status:  "healthy",
		Version: Version,
	}))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		h.writeJSON(w, http.StatusServiceUnavailable, model.NewSuccessResponse(ReadyResponse{Status: "loading"}))
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListSlideshows handles GET /api/v1/slideshows requests.
func (h *RESTHandler) ListSlideshows(w http.ResponseWriter, _ *http.Request) {
	managers := h.registry.Managers()
	summaries := make([]SlideshowSummary, 0, len(managers))

	for _, m := range managers {
		summary := SlideshowSummary{
			Name:       m.Name(),
			StorageKey: m.StorageKey(),
			Mounted:    m.Mounted(),
		}
		if view, err := m.Snapshot(); err == nil {
			summary.Slides = len(view.Items)
			summary.Current = view.Current
		}
		summaries = append(summaries, summary)
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(summaries))
}

// GetSlideshow handles GET /api/v1/slideshows/{name} requests.
func (h *RESTHandler) GetSlideshow(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	view, err := m.Snapshot()
	if err != nil {
		h.handleError(w, err, "get slideshow")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(view))
}

// navigate adapts a manager navigation method to a handler that answers
// with the resulting view.
func (h *RESTHandler) navigate(op func(*slideshow.Manager) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := h.manager(w, r)
		if !ok {
			return
		}

		if err := op(m); err != nil {
			h.handleError(w, err, "navigate slideshow")
			return
		}

		h.writeView(w, m)
	}
}

// GoTo handles POST /api/v1/slideshows/{name}/goto/{n} requests.
func (h *RESTHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid slide number")
		return
	}

	if err := m.GoTo(n); err != nil {
		h.handleError(w, err, "go to slide")
		return
	}

	h.writeView(w, m)
}

// AddSlide handles POST /api/v1/slideshows/{name}/slides requests. The
// response is sent once the upload has been stored or rejected.
func (h *RESTHandler) AddSlide(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	upload, err := formUpload(r)
	if err != nil {
		h.logger.Warn("invalid upload request", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid upload request")
		return
	}

	task := m.Add(r.Context(), session.FromContext(r.Context()), upload)
	item, err := task.Wait(r.Context())
	if err != nil {
		h.handleError(w, err, "add slide")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// formUpload extracts the selected file of the add form. A request without
// a file yields an empty Upload.
func formUpload(r *http.Request) (slideshow.Upload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return slideshow.Upload{}, nil
		}
		return slideshow.Upload{}, err
	}

	files := r.MultipartForm.File[UploadField]
	if len(files) == 0 {
		return slideshow.Upload{}, nil
	}

	header := files[0]
	return slideshow.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open:        openPart(header),
	}, nil
}

func openPart(header *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return header.Open()
	}
}

// DeleteSlide handles DELETE /api/v1/slideshows/{name}/slides/{id} requests.
func (h *RESTHandler) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	if err := m.Delete(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.handleError(w, err, "delete slide")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// GetStatus handles GET /api/v1/slideshows/{name}/status requests. Data is
// null when no message is showing.
func (h *RESTHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	var current *model.StatusMessage
	if msg, showing := h.board.Get(m.Name()); showing {
		current = &msg
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(current))
}

// manager resolves the {name} route variable, answering 404 when no such
// slideshow is registered.
func (h *RESTHandler) manager(w http.ResponseWriter, r *http.Request) (*slideshow.Manager, bool) {
	name := mux.Vars(r)["name"]

	m, ok := h.registry.Get(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "slideshow not found")
		return nil, false
	}
	return m, true
}

func (h *RESTHandler) writeView(w http.ResponseWriter, m *slideshow.Manager) {
	view, err := m.Snapshot()
	if err != nil {
		h.handleError(w, err, "snapshot slideshow")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(view))
}

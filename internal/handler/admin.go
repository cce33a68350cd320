package handler

import (
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Subject string `json:"subject"`
}

// StorageStats describes store usage.
type StorageStats struct {
	UsedBytes  int64   `json:"used_bytes"`
	QuotaBytes int64   `json:"quota_bytes"`
	Used       string  `json:"used"`
	Quota      string  `json:"quota"`
	Percent    float64 `json:"percent"`
	Keys       int     `json:"keys"`
}

// StatsResponse feeds the admin dashboard.
type StatsResponse struct {
	Content    content.Counts `json:"content"`
	Slideshows map[string]int `json:"slideshows"`
	Storage    StorageStats   `json:"storage"`
}

// AdminHandler serves login, logout and dashboard statistics.
type AdminHandler struct {
	responder
	sessions SessionManager
	registry *slideshow.Registry
	site     *content.Site
	store    store.Store
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	sessions SessionManager,
	registry *slideshow.Registry,
	site *content.Site,
	s store.Store,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger},
		sessions:  sessions,
		registry:  registry,
		site:      site,
		store:     s,
	}
}

// RegisterRoutes registers login and logout on router and the admin-only
// routes on admin.
func (h *AdminHandler) RegisterRoutes(router, admin *mux.Router) {
	router.HandleFunc("/api/v1/admin/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/admin/logout", h.Logout).Methods(http.MethodPost)
	admin.HandleFunc("/api/v1/admin/stats", h.Stats).Methods(http.MethodGet)
}

// Login handles POST /api/v1/admin/login requests.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Login(r)
	if err != nil {
		if errors.Is(err, session.ErrLoginDisabled) {
			h.writeError(w, http.StatusForbidden, "admin login is disabled")
			return
		}
		h.logger.Warn("admin login failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(LoginResponse{Subject: s.Subject}))
}

// Logout handles POST /api/v1/admin/logout requests.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r); err != nil {
		if errors.Is(err, session.ErrNotLoggedIn) {
			h.writeError(w, http.StatusBadRequest, "not logged in")
			return
		}
		h.handleError(w, err, "logout")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// Stats handles GET /api/v1/admin/stats requests.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	used, quota, err := h.store.Usage(ctx)
	if err != nil {
		h.handleError(w, err, "storage usage")
		return
	}
	keys, err := h.store.Keys(ctx)
	if err != nil {
		h.handleError(w, err, "storage keys")
		return
	}

	slideshows := make(map[string]int)
	for _, m := range h.registry.Managers() {
		if view, err := m.Snapshot(); err == nil {
			slideshows[m.Name()] = len(view.Items)
		}
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(StatsResponse{
		Content:    h.site.Counts(),
		Slideshows: slideshows,
		Storage:    storageStats(used, quota, len(keys)),
	}))
}

func storageStats(used, quota int64, keys int) StorageStats {
	stats := StorageStats{
		UsedBytes:  used,
		QuotaBytes: quota,
		Used:       humanize.IBytes(uint64(used)),
		Quota:      "unlimited",
		Keys:       keys,
	}
	if quota > 0 {
		stats.Quota = humanize.IBytes(uint64(quota))
		stats.Percent = float64(used) * 100 / float64(quota)
	}
	return stats
}

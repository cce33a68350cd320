package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
)

// OrderRequest is the body of a reorder request.
type OrderRequest struct {
	IDs []string `json:"ids"`
}

// BlockRequest is the body of a single editable block save.
type BlockRequest struct {
	HTML string `json:"html"`
}

// collectionAPI erases the record type of a content collection.
type collectionAPI interface {
	list(r *http.Request) any
	add(ctx context.Context, sess session.Session, dec *json.Decoder) (any, error)
	update(ctx context.Context, sess session.Session, id string, dec *json.Decoder) (any, error)
	remove(ctx context.Context, sess session.Session, id string) error
	reorder(ctx context.Context, sess session.Session, ids []string) error
}

type collectionRoutes[T content.Record[T]] struct {
	collection *content.Collection[T]
	query      func(r *http.Request) []T
}

func (c collectionRoutes[T]) list(r *http.Request) any {
	if c.query != nil {
		return c.query(r)
	}
	return c.collection.List()
}

func (c collectionRoutes[T]) add(ctx context.Context, sess session.Session, dec *json.Decoder) (any, error) {
	var item T
	if err := dec.Decode(&item); err != nil {
		return nil, errInvalidBody{err}
	}
	return c.collection.Add(ctx, sess, item)
}

func (c collectionRoutes[T]) update(ctx context.Context, sess session.Session, id string, dec *json.Decoder) (any, error) {
	var item T
	if err := dec.Decode(&item); err != nil {
		return nil, errInvalidBody{err}
	}
	return c.collection.Update(ctx, sess, id, item)
}

func (c collectionRoutes[T]) remove(ctx context.Context, sess session.Session, id string) error {
	return c.collection.Delete(ctx, sess, id)
}

func (c collectionRoutes[T]) reorder(ctx context.Context, sess session.Session, ids []string) error {
	return c.collection.Reorder(ctx, sess, ids)
}

// errInvalidBody marks a request body that could not be decoded.
type errInvalidBody struct{ err error }

func (e errInvalidBody) Error() string { return "invalid request body: " + e.err.Error() }
func (e errInvalidBody) Unwrap() error { return e.err }

// ContentHandler serves the content collections, site settings, CEO info,
// editable text blocks and the site logo.
type ContentHandler struct {
	responder
	site        *content.Site
	collections map[string]collectionAPI
}

// NewContentHandler creates a ContentHandler over site.
func NewContentHandler(site *content.Site, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		responder: responder{logger: logger},
		site:      site,
		collections: map[string]collectionAPI{
			content.CollectionServices: collectionRoutes[model.Service]{
				collection: site.Services,
				query: func(r *http.Request) []model.Service {
					return content.ServicesInCategory(site.Services, r.URL.Query().Get("category"))
				},
			},
			content.CollectionPortfolio: collectionRoutes[model.PortfolioItem]{collection: site.Portfolio},
			content.CollectionFeatured:  collectionRoutes[model.FeaturedWork]{collection: site.Featured},
			content.CollectionGallery: collectionRoutes[model.GalleryItem]{
				collection: site.Gallery,
				query: func(r *http.Request) []model.GalleryItem {
					return content.SearchGallery(site.Gallery, r.URL.Query().Get("q"))
				},
			},
		},
	}
}

// RegisterRoutes registers the content routes. Writes check the session
// themselves, so every route goes on the public router.
func (h *ContentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/content/{collection}", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/content/{collection}", h.Add).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/content/{collection}/order", h.Reorder).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/content/{collection}/{id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/content/{collection}/{id}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/settings", h.GetSettings).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/settings", h.PutSettings).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/ceo", h.GetCEO).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/ceo", h.PutCEO).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/editable", h.GetEditable).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/editable", h.PutEditable).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/editable/{id}", h.SaveBlock).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/logo", h.GetLogo).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/logo", h.PutLogo).Methods(http.MethodPut)
}

// List handles GET /api/v1/content/{collection} requests. Services accept
// a category filter and the gallery a q title search.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(c.list(r)))
}

// Add handles POST /api/v1/content/{collection} requests.
func (h *ContentHandler) Add(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	item, err := c.add(r.Context(), session.FromContext(r.Context()), json.NewDecoder(r.Body))
	if err != nil {
		var invalid errInvalidBody
		if errors.As(err, &invalid) {
			h.logger.Warn("invalid request body", zap.Error(err))
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		h.handleError(w, err, "add content")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// Update handles PUT /api/v1/content/{collection}/{id} requests. An empty
// image keeps the stored one.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	item, err := c.update(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], json.NewDecoder(r.Body))
	if err != nil {
		var invalid errInvalidBody
		if errors.As(err, &invalid) {
			h.logger.Warn("invalid request body", zap.Error(err))
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		h.handleError(w, err, "update content")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// Delete handles DELETE /api/v1/content/{collection}/{id} requests.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	if err := c.remove(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.handleError(w, err, "delete content")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// Reorder handles PUT /api/v1/content/{collection}/order requests.
func (h *ContentHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := c.reorder(r.Context(), session.FromContext(r.Context()), req.IDs); err != nil {
		h.handleError(w, err, "reorder content")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(c.list(r)))
}

// GetSettings handles GET /api/v1/settings requests.
func (h *ContentHandler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.site.Settings.Get()))
}

// PutSettings handles PUT /api/v1/settings requests.
func (h *ContentHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	putDocument(h, w, r, h.site.Settings)
}

// GetCEO handles GET /api/v1/ceo requests.
func (h *ContentHandler) GetCEO(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.site.CEO.Get()))
}

// PutCEO handles PUT /api/v1/ceo requests.
func (h *ContentHandler) PutCEO(w http.ResponseWriter, r *http.Request) {
	putDocument(h, w, r, h.site.CEO)
}

// GetEditable handles GET /api/v1/editable requests.
func (h *ContentHandler) GetEditable(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.site.Editable.Get()))
}

// PutEditable handles PUT /api/v1/editable requests, replacing every block.
func (h *ContentHandler) PutEditable(w http.ResponseWriter, r *http.Request) {
	putDocument(h, w, r, h.site.Editable)
}

// SaveBlock handles PUT /api/v1/editable/{id} requests.
func (h *ContentHandler) SaveBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	blocks, err := h.site.SaveBlock(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], req.HTML)
	if err != nil {
		h.handleError(w, err, "save editable block")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(blocks))
}

// GetLogo handles GET /api/v1/logo requests.
func (h *ContentHandler) GetLogo(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.site.Logo.Get()))
}

// PutLogo handles PUT /api/v1/logo requests carrying a multipart image in
// the file field.
func (h *ContentHandler) PutLogo(w http.ResponseWriter, r *http.Request) {
	upload, err := formUpload(r)
	if err != nil {
		h.logger.Warn("invalid upload request", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid upload request")
		return
	}

	logo, err := h.site.Logo.Replace(r.Context(), session.FromContext(r.Context()), upload)
	if err != nil {
		h.handleError(w, err, "replace logo")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(logo))
}

func putDocument[T content.Validator](h *ContentHandler, w http.ResponseWriter, r *http.Request, doc *content.Document[T]) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := doc.Put(r.Context(), session.FromContext(r.Context()), v); err != nil {
		h.handleError(w, err, "update document")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(doc.Get()))
}

func (h *ContentHandler) collection(w http.ResponseWriter, r *http.Request) (collectionAPI, bool) {
	c, ok := h.collections[mux.Vars(r)["collection"]]
	if !ok {
		h.writeError(w, http.StatusNotFound, "collection not found")
		return nil, false
	}
	return c, true
}

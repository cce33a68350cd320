package content

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/payload"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
)

// Storage keys.
const (
	KeyServices     = "logan-design-services"
	KeyPortfolio    = "logan-design-portfolio"
	KeyFeaturedWork = "logan-design-featured-work"
	KeyGallery      = "logan-design-gallery"
	KeySiteSettings = "logan-design-site-settings"
	KeyCEOInfo      = "logan-design-ceo-info"
	KeyEditable     = "logan-design-editable-content"
	KeySiteLogo     = "logan-design-site-logo"
)

// Collection names used in routes.
const (
	CollectionServices  = "services"
	CollectionPortfolio = "portfolio"
	CollectionFeatured  = "featured"
	CollectionGallery   = "gallery"
)

// Site bundles all editable content of the site.
type Site struct {
	Services  *Collection[model.Service]
	Portfolio *Collection[model.PortfolioItem]
	Featured  *Collection[model.FeaturedWork]
	Gallery   *Collection[model.GalleryItem]
	Settings  *Document[model.SiteSettings]
	CEO       *Document[model.CEOInfo]
	Editable  *Document[model.EditableContent]
	Logo      *Logo
}

type siteOptions struct {
	maxUploadBytes int64
}

// SiteOption customizes NewSite.
type SiteOption func(*siteOptions)

// WithMaxUploadBytes sets the largest accepted logo upload.
func WithMaxUploadBytes(n int64) SiteOption {
	return func(o *siteOptions) {
		o.maxUploadBytes = n
	}
}

// NewSite creates the site content over storage with the built-in defaults.
func NewSite(storage Storage, logger *zap.Logger, opts ...SiteOption) *Site {
	o := siteOptions{maxUploadBytes: slideshow.DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(&o)
	}

	return &Site{
		Services: NewCollection(CollectionConfig[model.Service]{
			Name:       CollectionServices,
			StorageKey: KeyServices,
			IDPrefix:   "service",
			Defaults:   DefaultServices(),
		}, storage, logger),
		Portfolio: NewCollection(CollectionConfig[model.PortfolioItem]{
			Name:       CollectionPortfolio,
			StorageKey: KeyPortfolio,
			IDPrefix:   "portfolio",
		}, storage, logger),
		Featured: NewCollection(CollectionConfig[model.FeaturedWork]{
			Name:       CollectionFeatured,
			StorageKey: KeyFeaturedWork,
			IDPrefix:   "featured",
			Defaults:   DefaultFeaturedWork(),
		}, storage, logger),
		Gallery: NewCollection(CollectionConfig[model.GalleryItem]{
			Name:              CollectionGallery,
			StorageKey:        KeyGallery,
			IDPrefix:          "gallery",
			Defaults:          DefaultGallery(),
			EmptyUsesDefaults: true,
		}, storage, logger),
		Settings: NewDocument("site settings", KeySiteSettings, DefaultSiteSettings(), storage, logger),
		CEO:      NewDocument("ceo info", KeyCEOInfo, DefaultCEOInfo(), storage, logger),
		Editable: NewDocument("editable content", KeyEditable, model.EditableContent{}, storage, logger),
		Logo:     NewLogo(storage, payload.DataURLReader{MaxBytes: o.maxUploadBytes}, o.maxUploadBytes, logger),
	}
}

// LoadAll loads every collection and document concurrently.
func (s *Site) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Services.Load(ctx) })
	g.Go(func() error { return s.Portfolio.Load(ctx) })
	g.Go(func() error { return s.Featured.Load(ctx) })
	g.Go(func() error { return s.Gallery.Load(ctx) })
	g.Go(func() error { return s.Settings.Load(ctx) })
	g.Go(func() error { return s.CEO.Load(ctx) })
	g.Go(func() error { return s.Editable.Load(ctx) })
	g.Go(func() error { return s.Logo.Load(ctx) })

	return g.Wait()
}

// Counts is the number of items per collection, the number of saved text
// blocks and whether a custom logo is set.
type Counts struct {
	Services       int  `json:"services"`
	Portfolio      int  `json:"portfolio"`
	Featured       int  `json:"featured"`
	Gallery        int  `json:"gallery"`
	EditableBlocks int  `json:"editableBlocks"`
	CustomLogo     bool `json:"customLogo"`
}

// Counts returns the current collection sizes.
func (s *Site) Counts() Counts {
	return Counts{
		Services:       s.Services.Len(),
		Portfolio:      s.Portfolio.Len(),
		Featured:       s.Featured.Len(),
		Gallery:        s.Gallery.Len(),
		EditableBlocks: len(s.Editable.Get()),
		CustomLogo:     s.Logo.Get().Custom(),
	}
}

// SaveBlock stores the HTML of one editable text block.
func (s *Site) SaveBlock(ctx context.Context, sess session.Session, id, html string) (model.EditableContent, error) {
	return s.Editable.Apply(ctx, sess, func(current model.EditableContent) model.EditableContent {
		return current.With(id, html)
	})
}

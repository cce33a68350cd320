package content

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// Logo is the uploaded header logo. It is stored as the bare data URL and
// nothing is stored until the first upload.
type Logo struct {
	storage  Storage
	reader   slideshow.PayloadReader
	maxBytes int64
	logger   *zap.Logger

	mu     sync.RWMutex
	src    string
	loaded bool
}

// NewLogo creates a Logo that reads uploads with reader and accepts images
// up to maxBytes.
func NewLogo(storage Storage, reader slideshow.PayloadReader, maxBytes int64, logger *zap.Logger) *Logo {
	if maxBytes <= 0 {
		maxBytes = slideshow.DefaultMaxUploadBytes
	}
	return &Logo{
		storage:  storage,
		reader:   reader,
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("document", "site logo")),
	}
}

// Load reads the stored logo. A missing or unreadable value leaves the
// built-in logo in place.
func (l *Logo) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loaded = true

	raw, err := l.storage.Read(ctx, KeySiteLogo)
	switch {
	case err == nil:
		l.src = raw
	case errors.Is(err, store.ErrNotFound):
		l.src = ""
	default:
		l.logger.Warn("failed to read logo, using built-in", zap.Error(err))
		l.src = ""
	}
	return nil
}

// Get returns the current logo.
func (l *Logo) Get() model.SiteLogo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return model.SiteLogo{Src: l.src}
}

// Replace checks upload like a slide image, encodes it as a data URL and
// stores it as the new logo. Nothing changes when any step fails.
func (l *Logo) Replace(ctx context.Context, sess session.Session, upload slideshow.Upload) (model.SiteLogo, error) {
	if !sess.IsAdmin() {
		return model.SiteLogo{}, ErrForbidden
	}
	if err := upload.Check(l.maxBytes); err != nil {
		return model.SiteLogo{}, err
	}

	src, err := l.reader.ReadPayload(ctx, upload)
	if err != nil {
		l.logger.Warn("failed to read logo upload", zap.Error(err))
		return model.SiteLogo{}, fmt.Errorf("%w: %w", slideshow.ErrReadFailed, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		return model.SiteLogo{}, ErrNotLoaded
	}
	if err := l.storage.Write(ctx, KeySiteLogo, src); err != nil {
		return model.SiteLogo{}, fmt.Errorf("saving site logo: %w", err)
	}
	l.src = src

	l.logger.Info("logo replaced",
		zap.String("filename", upload.Filename),
		zap.Int64("size", upload.Size),
		zap.String("subject", sess.Subject),
	)
	return model.SiteLogo{Src: src}, nil
}

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// Validator is a value that can check itself.
type Validator interface {
	Validate() error
}

// Document is a single persisted value such as the site settings.
type Document[T Validator] struct {
	name       string
	storageKey string
	defaults   T
	storage    Storage
	logger     *zap.Logger

	mu     sync.RWMutex
	value  T
	loaded bool
}

// NewDocument creates a Document. Load must be called before use.
func NewDocument[T Validator](name, storageKey string, defaults T, storage Storage, logger *zap.Logger) *Document[T] {
	return &Document[T]{
		name:       name,
		storageKey: storageKey,
		defaults:   defaults,
		storage:    storage,
		logger:     logger.With(zap.String("document", name)),
	}
}

// Load reads the stored value, falling back to and persisting the defaults.
func (d *Document[T]) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.loaded = true

	raw, err := d.storage.Read(ctx, d.storageKey)
	if err == nil {
		var v T
		decodeErr := json.Unmarshal([]byte(raw), &v)
		if decodeErr == nil {
			decodeErr = v.Validate()
		}
		if decodeErr == nil {
			d.value = v
			return nil
		}
		d.logger.Warn("malformed document in storage, using defaults", zap.Error(decodeErr))
	} else if !errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("failed to read document, using defaults", zap.Error(err))
	}

	d.value = d.defaults
	if err := d.persist(ctx, d.value); err != nil {
		return fmt.Errorf("persisting default %s: %w", d.name, err)
	}
	return nil
}

func (d *Document[T]) persist(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", d.name, err)
	}
	if err := d.storage.Write(ctx, d.storageKey, string(data)); err != nil {
		return fmt.Errorf("saving %s: %w", d.name, err)
	}
	return nil
}

// Get returns the current value.
func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

// Put validates and stores v.
func (d *Document[T]) Put(ctx context.Context, sess session.Session, v T) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := v.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return ErrNotLoaded
	}
	if err := d.persist(ctx, v); err != nil {
		return err
	}
	d.value = v

	d.logger.Info("document updated", zap.String("subject", sess.Subject))
	return nil
}

// Apply replaces the current value with change(current) under the document
// lock, so concurrent partial edits do not overwrite each other.
func (d *Document[T]) Apply(ctx context.Context, sess session.Session, change func(T) T) (T, error) {
	var zero T
	if !sess.IsAdmin() {
		return zero, ErrForbidden
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return zero, ErrNotLoaded
	}

	v := change(d.value)
	if err := v.Validate(); err != nil {
		return zero, err
	}
	if err := d.persist(ctx, v); err != nil {
		return zero, err
	}
	d.value = v

	d.logger.Info("document updated", zap.String("subject", sess.Subject))
	return v, nil
}

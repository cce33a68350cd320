// Package content manages the editable record lists and single documents of
// the site: services, portfolio, featured work, gallery, site settings and
// the CEO bio.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// Content errors.
var (
	ErrForbidden    = errors.New("admin login required")
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidOrder = errors.New("order must list every item id exactly once")
	ErrNotLoaded    = errors.New("content is not loaded")
)

// Storage persists JSON documents by key.
type Storage interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, value string) error
}

// Record is an item of a Collection.
type Record[T any] interface {
	GetID() string
	WithID(id string) T
	// Inherit fills the fields an edit left empty from the stored record.
	Inherit(prev T) T
	Validate() error
}

// CollectionConfig describes one collection.
type CollectionConfig[T any] struct {
	Name       string
	StorageKey string
	IDPrefix   string
	Defaults   []T
	// EmptyUsesDefaults treats a stored empty list like a missing one.
	EmptyUsesDefaults bool
}

// Collection is an ordered, persisted list of records.
type Collection[T Record[T]] struct {
	cfg     CollectionConfig[T]
	storage Storage
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	items  []T
	loaded bool
}

// NewCollection creates a Collection. Load must be called before use.
func NewCollection[T Record[T]](cfg CollectionConfig[T], storage Storage, logger *zap.Logger) *Collection[T] {
	return &Collection[T]{
		cfg:     cfg,
		storage: storage,
		logger:  logger.With(zap.String("collection", cfg.Name)),
		now:     time.Now,
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.cfg.Name
}

// Load reads the stored list. Absent or malformed data is replaced by the
// defaults, which are persisted.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, ok := c.read(ctx)
	if ok {
		c.items = items
		c.loaded = true
		return nil
	}

	c.items = slices.Clone(c.cfg.Defaults)
	c.loaded = true
	if err := c.persist(ctx, c.items); err != nil {
		return fmt.Errorf("persisting default %s: %w", c.cfg.Name, err)
	}
	return nil
}

func (c *Collection[T]) read(ctx context.Context) ([]T, bool) {
	raw, err := c.storage.Read(ctx, c.cfg.StorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("failed to read collection, using defaults", zap.Error(err))
		}
		return nil, false
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		c.logger.Warn("malformed collection in storage, using defaults", zap.Error(err))
		return nil, false
	}
	if len(items) == 0 && c.cfg.EmptyUsesDefaults {
		return nil, false
	}

	return items, true
}

func (c *Collection[T]) persist(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.cfg.Name, err)
	}
	if err := c.storage.Write(ctx, c.cfg.StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving %s: %w", c.cfg.Name, err)
	}
	return nil
}

// List returns a copy of the items in display order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Filter returns the items for which keep reports true.
func (c *Collection[T]) Filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Add validates item, assigns it a fresh id and appends it. Nothing changes
// when the write fails.
func (c *Collection[T]) Add(ctx context.Context, sess session.Session, item T) (T, error) {
	var zero T
	if !sess.IsAdmin() {
		return zero, ErrForbidden
	}
	if err := item.Validate(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return zero, ErrNotLoaded
	}

	item = item.WithID(c.nextID())
	next := append(slices.Clone(c.items), item)
	if err := c.persist(ctx, next); err != nil {
		return zero, err
	}
	c.items = next

	c.logger.Info("item added", zap.String("id", item.GetID()), zap.String("subject", sess.Subject))
	return item, nil
}

// Update replaces the item with the given id. The id is kept and fields left
// empty, such as an image that was not replaced, keep their stored value.
// Nothing changes when the write fails.
func (c *Collection[T]) Update(ctx context.Context, sess session.Session, id string, item T) (T, error) {
	var zero T
	if !sess.IsAdmin() {
		return zero, ErrForbidden
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return zero, ErrNotLoaded
	}

	idx := c.indexOf(id)
	if idx < 0 {
		return zero, ErrItemNotFound
	}

	item = item.Inherit(c.items[idx]).WithID(id)
	if err := item.Validate(); err != nil {
		return zero, err
	}

	next := slices.Clone(c.items)
	next[idx] = item
	if err := c.persist(ctx, next); err != nil {
		return zero, err
	}
	c.items = next

	c.logger.Info("item updated", zap.String("id", id), zap.String("subject", sess.Subject))
	return item, nil
}

// nextID returns an unused id derived from the current time.
func (c *Collection[T]) nextID() string {
	now := c.now()
	for {
		id := model.NewContentID(c.cfg.IDPrefix, now)
		if c.indexOf(id) < 0 {
			return id
		}
		now = now.Add(time.Millisecond)
	}
}

func (c *Collection[T]) indexOf(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return item.GetID() == id })
}

// Delete removes the item with the given id.
func (c *Collection[T]) Delete(ctx context.Context, sess session.Session, id string) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return ErrItemNotFound
	}

	next := slices.Delete(slices.Clone(c.items), idx, idx+1)
	if err := c.persist(ctx, next); err != nil {
		return err
	}
	c.items = next

	c.logger.Info("item deleted", zap.String("id", id), zap.String("subject", sess.Subject))
	return nil
}

// Reorder arranges the items in the order of ids, which must be a
// permutation of the current ids.
func (c *Collection[T]) Reorder(ctx context.Context, sess session.Session, ids []string) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(ids) != len(c.items) {
		return ErrInvalidOrder
	}

	next := make([]T, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrInvalidOrder
		}
		seen[id] = struct{}{}

		idx := c.indexOf(id)
		if idx < 0 {
			return ErrInvalidOrder
		}
		next = append(next, c.items[idx])
	}

	if err := c.persist(ctx, next); err != nil {
		return err
	}
	c.items = next

	c.logger.Info("items reordered", zap.String("subject", sess.Subject))
	return nil
}

// ServicesInCategory returns the services of category. An empty category or
// "all" returns every service.
func ServicesInCategory(c *Collection[model.Service], category string) []model.Service {
	if category == "" || strings.EqualFold(category, "all") {
		return c.List()
	}
	return c.Filter(func(s model.Service) bool {
		return strings.EqualFold(s.Category, category)
	})
}

// SearchGallery returns gallery items whose title contains query, ignoring
// case.
func SearchGallery(c *Collection[model.GalleryItem], query string) []model.GalleryItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.List()
	}
	return c.Filter(func(g model.GalleryItem) bool {
		return strings.Contains(strings.ToLower(g.Title), query)
	})
}

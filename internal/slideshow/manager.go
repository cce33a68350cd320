// Package slideshow implements the rotating slideshows of the site.
//
// A Manager owns an ordered list of slides, a 1-based cursor and at most one
// pending rotation timer. All state transitions run on the manager's own
// event loop goroutine; timer callbacks and finished uploads post closures
// back onto that loop, so the only suspension points are the dwell timer
// and the asynchronous payload read of Add.
package slideshow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// Default configuration values.
const (
	DefaultDwell          = 5 * time.Second
	DefaultMaxUploadBytes = 2 << 20
	DefaultStatusDuration = 3 * time.Second
	storageErrorDuration  = 10 * time.Second
)

// Status messages shown to the admin.
const (
	msgSelectFile   = "Please select an image file."
	msgInvalidType  = "Invalid file type. Please upload an image."
	msgReadError    = "Error reading file."
	msgAdded        = "Slide added successfully!"
	msgDeleted      = "Slide deleted."
	msgStorageFull  = "Storage Error: Storage is full. Please delete some items (e.g., gallery, slides) to free up space."
	msgStorageWrite = "Storage Error: Failed to save changes."
)

// Manager errors.
var (
	ErrNotMounted      = errors.New("slideshow is not mounted")
	ErrNotInitialized  = errors.New("slideshow is not initialized")
	ErrClosed          = errors.New("slideshow is closed")
	ErrForbidden       = errors.New("admin login required")
	ErrSlideNotFound   = errors.New("slide not found")
	ErrNoFile          = errors.New("no file selected")
	ErrInvalidFileType = errors.New("file is not an image")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrReadFailed      = errors.New("reading file failed")
)

// Config describes one slideshow instance.
type Config struct {
	Name           string
	StorageKey     string
	DefaultItems   []model.SlideItem
	Dwell          time.Duration
	MaxUploadBytes int64
	StatusDuration time.Duration
}

// withDefaults fills zero durations and limits.
func (c Config) withDefaults() Config {
	if c.Dwell <= 0 {
		c.Dwell = DefaultDwell
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.StatusDuration <= 0 {
		c.StatusDuration = DefaultStatusDuration
	}
	return c
}

// Deps are the collaborators of a Manager. A nil Renderer means the
// slideshow is not mounted on this site and the manager does no work.
type Deps struct {
	Storage  Storage
	Renderer Renderer
	Notifier Notifier
	Payload  PayloadReader
	Clock    Clock
	Logger   *zap.Logger
}

// Manager is one slideshow state machine.
type Manager struct {
	cfg      Config
	storage  Storage
	renderer Renderer
	notifier Notifier
	payload  PayloadReader
	clock    Clock
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup

	// Owned by the event loop.
	items       []model.SlideItem
	current     int
	timer       Timer
	timerGen    uint64
	initialized bool
}

// New creates a Manager and starts its event loop. Close must be called to
// stop it.
func New(cfg Config, deps Deps) *Manager {
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = RealClock
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:      cfg,
		storage:  deps.Storage,
		renderer: deps.Renderer,
		notifier: deps.Notifier,
		payload:  deps.Payload,
		clock:    clock,
		logger:   logger.With(zap.String("slideshow", cfg.Name)),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func(), 16),
		done:     make(chan struct{}),
		current:  1,
	}

	go m.run()

	return m
}

// Name returns the slideshow name.
func (m *Manager) Name() string {
	return m.cfg.Name
}

// StorageKey returns the key the slides are persisted under.
func (m *Manager) StorageKey() string {
	return m.cfg.StorageKey
}

// Mounted reports whether the slideshow has a renderer.
func (m *Manager) Mounted() bool {
	return m.renderer != nil
}

// run is the event loop.
func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case fn := <-m.events:
			fn()
		case <-m.ctx.Done():
			m.cancelTimer()
			return
		}
	}
}

// do runs fn on the event loop and waits for it.
func (m *Manager) do(fn func()) error {
	finished := make(chan struct{})

	select {
	case m.events <- func() { fn(); close(finished) }:
	case <-m.done:
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-m.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// post queues fn on the event loop without waiting. It reports false when
// the manager is closed.
func (m *Manager) post(fn func()) bool {
	select {
	case m.events <- fn:
		return true
	case <-m.done:
		return false
	}
}

// Close stops the event loop, cancels the rotation timer and waits for
// in-flight payload reads to return.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		<-m.done
		m.inflight.Wait()
		slideshowItems.DeleteLabelValues(m.cfg.Name)
	})
}

// Init loads the persisted slides, falling back to (and persisting) the
// defaults, renders and starts rotation. It is a no-op for an unmounted
// slideshow and for a second call.
func (m *Manager) Init(ctx context.Context) error {
	if !m.Mounted() {
		m.logger.Debug("slideshow not mounted, skipping init")
		return nil
	}

	return m.do(func() {
		if m.initialized {
			return
		}

		m.load(ctx)
		m.initialized = true
		m.current = 1
		m.show(m.current)

		m.logger.Info("slideshow initialized", zap.Int("items", len(m.items)))
	})
}

// load reads the items for the storage key. Absent, malformed or empty data
// falls back to the defaults, which are persisted right away.
func (m *Manager) load(ctx context.Context) {
	raw, err := m.storage.Read(ctx, m.cfg.StorageKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		m.logger.Warn("failed to read slides, using defaults", zap.Error(err))
	default:
		items, decodeErr := decodeItems(raw)
		if decodeErr == nil && len(items) > 0 {
			m.setItems(items)
			return
		}
		if decodeErr != nil {
			m.logger.Warn("malformed slides in storage, using defaults",
				zap.String("storage_key", m.cfg.StorageKey),
				zap.Error(decodeErr),
			)
		}
	}

	m.setItems(slices.Clone(m.cfg.DefaultItems))
	if err := m.persist(ctx, m.items); err != nil {
		m.logger.Error("failed to persist default slides", zap.Error(err))
	}
}

// decodeItems parses a stored item list. Anything that is not a JSON array of
// valid items is malformed.
func decodeItems(raw string) ([]model.SlideItem, error) {
	if !strings.HasPrefix(strings.TrimSpace(raw), "[") {
		return nil, errors.New("stored value is not a list")
	}

	var items []model.SlideItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding slides: %w", err)
	}

	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
	}

	return items, nil
}

// persist writes items under the storage key.
func (m *Manager) persist(ctx context.Context, items []model.SlideItem) error {
	if items == nil {
		items = []model.SlideItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding slides: %w", err)
	}

	if err := m.storage.Write(ctx, m.cfg.StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving slides: %w", err)
	}

	return nil
}

func (m *Manager) setItems(items []model.SlideItem) {
	m.items = items
	slideshowItems.WithLabelValues(m.cfg.Name).Set(float64(len(items)))
}

// wrapIndex maps any requested 1-based index k onto [1, n].
func wrapIndex(k, n int) int {
	return ((k-1)%n+n)%n + 1
}

// show makes slide n current, renders and restarts the rotation timer.
// With no slides it renders the placeholder and leaves no timer pending.
func (m *Manager) show(n int) {
	if len(m.items) == 0 {
		m.current = 1
		m.cancelTimer()
		m.render()
		return
	}

	m.current = wrapIndex(n, len(m.items))
	m.render()
	m.schedule()
}

// render hands a snapshot of the state to the renderer.
func (m *Manager) render() {
	m.renderer.Render(m.view())
}

func (m *Manager) view() View {
	return View{
		Name:    m.cfg.Name,
		Items:   slices.Clone(m.items),
		Current: m.current,
	}
}

// schedule replaces any pending rotation with a fresh advance(+1). An empty
// show has nothing to rotate, so it is left without a timer.
func (m *Manager) schedule() {
	m.cancelTimer()
	if len(m.items) == 0 {
		return
	}

	gen := m.timerGen
	m.timer = m.clock.AfterFunc(m.cfg.Dwell, func() {
		m.post(func() { m.fire(gen) })
	})
}

// cancelTimer stops the pending rotation. Bumping the generation drops
// callbacks that fired before Stop took effect.
func (m *Manager) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

func (m *Manager) fire(gen uint64) {
	if gen != m.timerGen || m.timer == nil {
		return
	}
	m.timer = nil

	slideshowAdvancesTotal.WithLabelValues(m.cfg.Name, triggerTimer).Inc()
	m.show(m.current + 1)
}

// navigate runs a manual navigation on the loop.
func (m *Manager) navigate(fn func()) error {
	if !m.Mounted() {
		return ErrNotMounted
	}

	var err error
	if doErr := m.do(func() {
		if !m.initialized {
			err = ErrNotInitialized
			return
		}
		fn()
	}); doErr != nil {
		return doErr
	}

	return err
}

// Next shows the following slide and restarts the dwell window.
func (m *Manager) Next() error {
	return m.Advance(1)
}

// Previous shows the preceding slide and restarts the dwell window.
func (m *Manager) Previous() error {
	return m.Advance(-1)
}

// Advance moves the cursor by delta, wrapping around both ends.
func (m *Manager) Advance(delta int) error {
	return m.navigate(func() {
		slideshowAdvancesTotal.WithLabelValues(m.cfg.Name, triggerManual).Inc()
		m.show(m.current + delta)
	})
}

// GoTo shows slide n (1-based); out-of-range values wrap.
func (m *Manager) GoTo(n int) error {
	return m.navigate(func() {
		slideshowAdvancesTotal.WithLabelValues(m.cfg.Name, triggerManual).Inc()
		m.show(n)
	})
}

// PointerEnter suspends rotation until PointerLeave.
func (m *Manager) PointerEnter() error {
	return m.navigate(m.cancelTimer)
}

// PointerLeave resumes rotation with a full dwell interval.
func (m *Manager) PointerLeave() error {
	return m.navigate(m.schedule)
}

// Snapshot returns the current view.
func (m *Manager) Snapshot() (View, error) {
	var v View
	err := m.navigate(func() { v = m.view() })
	return v, err
}

// Pending reports whether a rotation timer is scheduled.
func (m *Manager) Pending() (bool, error) {
	var pending bool
	err := m.navigate(func() { pending = m.timer != nil })
	return pending, err
}

// Add validates upload and, once its payload has been read asynchronously,
// appends it as the last slide, persists, renders and shows it. The returned
// task completes after that effect (or the failure) happened. The append
// lands on whatever the list is when the read completes, so concurrent adds
// end up in completion order. ctx only bounds validation; the read itself
// runs to completion even if the caller stops waiting.
func (m *Manager) Add(ctx context.Context, sess session.Session, upload Upload) *Task {
	if !m.Mounted() {
		return failedTask(ErrNotMounted)
	}
	if !sess.IsAdmin() {
		return failedTask(ErrForbidden)
	}
	if err := ctx.Err(); err != nil {
		return failedTask(err)
	}

	var validationErr error
	if err := m.do(func() {
		if !m.initialized {
			validationErr = ErrNotInitialized
			return
		}
		validationErr = m.validateUpload(upload)
	}); err != nil {
		return failedTask(err)
	}
	if validationErr != nil {
		return failedTask(validationErr)
	}

	m.logger.Debug("reading slide upload",
		zap.String("filename", upload.Filename),
		zap.Int64("size", upload.Size),
		zap.String("subject", sess.Subject),
	)

	task := newTask()

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		payload, readErr := m.payload.ReadPayload(m.ctx, upload)
		posted := m.post(func() {
			item, err := m.completeAdd(payload, readErr)
			task.finish(item, err)
		})
		if !posted {
			task.finish(model.SlideItem{}, ErrClosed)
			return
		}

		// The loop may stop before running the queued completion.
		select {
		case <-task.Done():
		case <-m.done:
			task.finish(model.SlideItem{}, ErrClosed)
		}
	}()

	return task
}

// validateUpload rejects missing, non-image and oversize files with exactly
// one error notification and no state change.
func (m *Manager) validateUpload(upload Upload) error {
	err := upload.Check(m.cfg.MaxUploadBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoFile):
		m.notify(msgSelectFile, true, m.cfg.StatusDuration)
		slideshowUploadsTotal.WithLabelValues(m.cfg.Name, uploadRejected).Inc()
	case errors.Is(err, ErrInvalidFileType):
		m.reject(msgInvalidType)
	default:
		m.reject(fmt.Sprintf("File is too large. Maximum size is %s.",
			humanize.IBytes(uint64(m.cfg.MaxUploadBytes))))
	}
	return err
}

func (m *Manager) reject(message string) {
	m.notify(message, true, m.cfg.StatusDuration)
	m.renderer.ResetAddForm(m.cfg.Name)
	slideshowUploadsTotal.WithLabelValues(m.cfg.Name, uploadRejected).Inc()
}

// completeAdd runs on the loop once the payload read finished.
func (m *Manager) completeAdd(payload string, readErr error) (model.SlideItem, error) {
	if readErr != nil {
		m.logger.Warn("failed to read slide upload", zap.Error(readErr))
		m.notify(msgReadError, true, m.cfg.StatusDuration)
		slideshowUploadsTotal.WithLabelValues(m.cfg.Name, uploadReadError).Inc()
		return model.SlideItem{}, fmt.Errorf("%w: %w", ErrReadFailed, readErr)
	}

	item := model.SlideItem{
		ID:  model.NewSlideID(m.clock.Now()),
		Src: payload,
	}

	next := append(slices.Clone(m.items), item)
	if err := m.persist(m.ctx, next); err != nil {
		m.storageFailed(err)
		slideshowUploadsTotal.WithLabelValues(m.cfg.Name, uploadStorageError).Inc()
		return model.SlideItem{}, err
	}

	m.setItems(next)
	m.show(len(m.items))
	m.notify(msgAdded, false, m.cfg.StatusDuration)
	m.renderer.ResetAddForm(m.cfg.Name)
	slideshowUploadsTotal.WithLabelValues(m.cfg.Name, uploadAdded).Inc()

	m.logger.Info("slide added", zap.String("slide_id", item.ID), zap.Int("items", len(m.items)))
	return item, nil
}

// Delete removes the slide with the given id, persists, re-renders and
// restarts rotation. The cursor is clamped to the new end of the list, or
// reset to 1 when the list becomes empty.
func (m *Manager) Delete(ctx context.Context, sess session.Session, id string) error {
	if !m.Mounted() {
		return ErrNotMounted
	}
	if !sess.IsAdmin() {
		return ErrForbidden
	}

	var err error
	if doErr := m.do(func() {
		if !m.initialized {
			err = ErrNotInitialized
			return
		}
		err = m.deleteSlide(ctx, id)
	}); doErr != nil {
		return doErr
	}

	return err
}

func (m *Manager) deleteSlide(ctx context.Context, id string) error {
	idx := slices.IndexFunc(m.items, func(item model.SlideItem) bool {
		return item.ID == id
	})
	if idx < 0 {
		return ErrSlideNotFound
	}

	next := slices.Delete(slices.Clone(m.items), idx, idx+1)
	if err := m.persist(ctx, next); err != nil {
		m.storageFailed(err)
		return err
	}

	m.setItems(next)
	switch {
	case len(m.items) == 0:
		m.current = 1
	case m.current > len(m.items):
		m.current = len(m.items)
	}

	m.show(m.current)
	m.notify(msgDeleted, false, m.cfg.StatusDuration)

	m.logger.Info("slide deleted", zap.String("slide_id", id), zap.Int("items", len(m.items)))
	return nil
}

// storageFailed reports a failed write. The in-memory list is left as it was
// before the operation, so memory and storage stay in agreement.
func (m *Manager) storageFailed(err error) {
	slideshowStorageFailuresTotal.WithLabelValues(m.cfg.Name).Inc()
	m.logger.Error("failed to save slides", zap.Error(err))

	if errors.Is(err, store.ErrQuotaExceeded) {
		m.notify(msgStorageFull, true, storageErrorDuration)
		return
	}
	m.notify(msgStorageWrite, true, storageErrorDuration)
}

func (m *Manager) notify(message string, isError bool, d time.Duration) {
	if m.notifier == nil {
		return
	}
	m.notifier.Show(message, isError, d)
}

// Package status keeps the transient status messages shown next to admin
// forms and publishes them to connected clients.
package status

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

// DefaultDuration is how long a message stays visible when no duration is
// given.
const DefaultDuration = 3 * time.Second

// Publisher pushes messages to connected clients.
type Publisher interface {
	Publish(msg model.WebSocketMessage)
}

type entry struct {
	msg   model.StatusMessage
	timer *time.Timer
}

// Board holds the latest message per scope. A new message replaces the
// previous one of its scope and restarts the clear timer.
type Board struct {
	mu        sync.Mutex
	entries   map[string]*entry
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	closed    bool
}

// NewBoard creates a Board. publisher may be nil.
func NewBoard(logger *zap.Logger, publisher Publisher) *Board {
	return &Board{
		entries:   make(map[string]*entry),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Show sets the message of scope for duration d.
func (b *Board) Show(scope, message string, isError bool, d time.Duration) {
	if d <= 0 {
		d = DefaultDuration
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	msg := model.StatusMessage{
		Scope:     scope,
		Message:   message,
		IsError:   isError,
		ExpiresAt: b.now().Add(d).UTC(),
	}

	if old, ok := b.entries[scope]; ok {
		old.timer.Stop()
	}
	e := &entry{msg: msg}
	e.timer = time.AfterFunc(d, func() { b.clear(scope, e) })
	b.entries[scope] = e
	b.mu.Unlock()

	if isError {
		b.logger.Warn("status message", zap.String("scope", scope), zap.String("message", message))
	} else {
		b.logger.Info("status message", zap.String("scope", scope), zap.String("message", message))
	}

	b.publish(msg)
}

// clear removes e if it is still the message of scope.
func (b *Board) clear(scope string, e *entry) {
	b.mu.Lock()
	if b.entries[scope] != e {
		b.mu.Unlock()
		return
	}
	delete(b.entries, scope)
	b.mu.Unlock()

	b.publish(model.StatusMessage{Scope: scope})
}

// Get returns the visible message of scope.
func (b *Board) Get(scope string) (model.StatusMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[scope]
	if !ok {
		return model.StatusMessage{}, false
	}
	return e.msg, true
}

// All returns every visible message keyed by scope.
func (b *Board) All() map[string]model.StatusMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]model.StatusMessage, len(b.entries))
	for scope, e := range b.entries {
		out[scope] = e.msg
	}
	return out
}

// For returns a notifier bound to scope.
func (b *Board) For(scope string) *Scoped {
	return &Scoped{board: b, scope: scope}
}

// Close stops all clear timers. Later messages are dropped.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for scope, e := range b.entries {
		e.timer.Stop()
		delete(b.entries, scope)
	}
}

func (b *Board) publish(msg model.StatusMessage) {
	if b.publisher == nil {
		return
	}

	wsMsg, err := model.NewWebSocketMessage(model.WSMessageTypeStatus, msg.Scope, msg)
	if err != nil {
		b.logger.Error("failed to encode status message", zap.Error(err))
		return
	}
	b.publisher.Publish(wsMsg)
}

// Scoped is the status sink of a single form.
type Scoped struct {
	board *Board
	scope string
}

// Show implements slideshow.Notifier.
func (s *Scoped) Show(message string, isError bool, d time.Duration) {
	s.board.Show(s.scope, message, isError, d)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/render"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
	closeGrace     = 100 * time.Millisecond
)

// ErrUnknownEvent is reported to clients that send an unsupported message type.
var ErrUnknownEvent = errors.New("unknown event")

// client is one connected browser.
type client struct {
	conn   *websocket.Conn
	send   chan model.WebSocketMessage
	ctx    context.Context
	cancel context.CancelFunc
}

// enqueue queues msg without blocking. Messages to a client that does not
// keep up are dropped; the next state push supersedes them anyway.
func (c *client) enqueue(msg model.WebSocketMessage) bool {
	select {
	case <-c.ctx.Done():
		return false
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// clientPublisher publishes to a single client.
type clientPublisher struct {
	c *client
}

func (p clientPublisher) Publish(msg model.WebSocketMessage) {
	p.c.enqueue(msg)
}

// WebSocketHandler pushes slideshow state and status messages to browsers and
// turns their navigation events into slideshow operations. It is the
// publisher behind render.Push and status.Board.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	registry *slideshow.Registry
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewWebSocketHandler creates a WebSocketHandler. Events for slideshow names
// are resolved through registry.
func NewWebSocketHandler(registry *slideshow.Registry, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		registry: registry,
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// Publish sends msg to every connected client.
func (h *WebSocketHandler) Publish(msg model.WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.enqueue(msg) {
			h.logger.Debug("dropped websocket message",
				zap.String("type", msg.Type),
				zap.String("remote_addr", c.conn.RemoteAddr().String()),
			)
		}
	}
}

// Clients returns the number of connected clients.
func (h *WebSocketHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection and sends the current state of
// every initialized slideshow.
//
//nolint:contextcheck // WebSocket connections outlive the HTTP request context
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:   conn,
		send:   make(chan model.WebSocketMessage, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	h.sendInitialState(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHandler) sendInitialState(c *client) {
	push := render.NewPush(clientPublisher{c: c}, h.logger)
	for _, m := range h.registry.Managers() {
		view, err := m.Snapshot()
		if err != nil {
			continue
		}
		push.Render(view)
	}
}

// readPump dispatches client events until the connection fails.
func (h *WebSocketHandler) readPump(c *client) {
	defer func() {
		h.removeClient(c)
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var event model.WebSocketMessage
		if err := json.Unmarshal(data, &event); err != nil {
			h.logger.Debug("malformed websocket message", zap.ByteString("message", data), zap.Error(err))
			h.sendError(c, "", fmt.Errorf("malformed message: %w", err))
			continue
		}

		if err := h.dispatch(event); err != nil {
			h.logger.Debug("websocket event rejected",
				zap.String("type", event.Type),
				zap.String("slideshow", event.Slideshow),
				zap.Error(err),
			)
			h.sendError(c, event.Slideshow, err)
		}
	}
}

// dispatch applies a client navigation event. The resulting state reaches
// every client through the slideshow's renderer.
func (h *WebSocketHandler) dispatch(event model.WebSocketMessage) error {
	m, ok := h.registry.Get(event.Slideshow)
	if !ok {
		return fmt.Errorf("slideshow %q not found", event.Slideshow)
	}

	switch event.Type {
	case model.WSMessageTypePrev:
		return m.Previous()
	case model.WSMessageTypeNext:
		return m.Next()
	case model.WSMessageTypeGoTo:
		return m.GoTo(event.Index)
	case model.WSMessageTypePointerEnter:
		return m.PointerEnter()
	case model.WSMessageTypePointerLeave:
		return m.PointerLeave()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
}

func (h *WebSocketHandler) sendError(c *client, slideshowName string, err error) {
	msg, encErr := model.NewWebSocketMessage(model.WSMessageTypeError, slideshowName, map[string]string{
		"error": err.Error(),
	})
	if encErr != nil {
		h.logger.Error("failed to encode error message", zap.Error(encErr))
		return
	}
	c.enqueue(msg)
}

// writePump drains the client's queue and keeps the connection alive.
func (h *WebSocketHandler) writePump(c *client) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			h.sendCloseMessage(c.conn)
			return
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("failed to set write deadline", zap.Error(err))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("failed to send message", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(c.conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

func (h *WebSocketHandler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[c]; exists {
		c.cancel()
		delete(h.clients, c)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
	}
}

// CloseAllConnections sends a close frame to every client and closes the
// connections.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	// Canceling makes writePump send the close frame.
	for _, c := range clients {
		c.cancel()
	}

	time.Sleep(closeGrace)

	h.mu.Lock()
	for c := range h.clients {
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}

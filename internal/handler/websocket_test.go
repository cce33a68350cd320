package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

func dialHub(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() unexpected error: %v", err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(model.WebSocketMessage) bool) model.WebSocketMessage {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() unexpected error: %v", err)
	}
	for {
		var msg model.WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() unexpected error: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isState(index int) func(model.WebSocketMessage) bool {
	return func(msg model.WebSocketMessage) bool {
		return msg.Type == model.WSMessageTypeSlideshowState && msg.Slideshow == "home" && msg.Index == index
	}
}

func TestWebSocketHandler_InitialState(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	conn := dialHub(t, env)

	// Assert
	msg := readUntil(t, conn, isState(1))
	if !strings.Contains(string(msg.Payload), `"default-3"`) {
		t.Errorf("payload = %s, want home items", msg.Payload)
	}
}

func TestWebSocketHandler_NavigationEvents(t *testing.T) {
	tests := []struct {
		name      string
		event     model.WebSocketMessage
		wantIndex int
	}{
		{name: "next", event: model.WebSocketMessage{Type: model.WSMessageTypeNext, Slideshow: "home"}, wantIndex: 2},
		{name: "prev", event: model.WebSocketMessage{Type: model.WSMessageTypePrev, Slideshow: "home"}, wantIndex: 3},
		{name: "goto", event: model.WebSocketMessage{Type: model.WSMessageTypeGoTo, Slideshow: "home", Index: 3}, wantIndex: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv(t)
			conn := dialHub(t, env)
			readUntil(t, conn, isState(1))

			// Act
			if err := conn.WriteJSON(tt.event); err != nil {
				t.Fatalf("WriteJSON() unexpected error: %v", err)
			}

			// Assert
			readUntil(t, conn, isState(tt.wantIndex))
			if got := env.view(t, "home").Current; got != tt.wantIndex {
				t.Errorf("current = %d, want %d", got, tt.wantIndex)
			}
		})
	}
}

func TestWebSocketHandler_RejectedEvents(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "unknown slideshow", payload: `{"type":"next","slideshow":"nope"}`, want: "not found"},
		{name: "unknown type", payload: `{"type":"shuffle","slideshow":"home"}`, want: "unknown event"},
		{name: "unmounted", payload: `{"type":"next","slideshow":"team"}`, want: "not mounted"},
		{name: "malformed", payload: `{"type":`, want: "malformed message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv(t)
			conn := dialHub(t, env)

			// Act
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("WriteMessage() unexpected error: %v", err)
			}

			// Assert
			msg := readUntil(t, conn, func(m model.WebSocketMessage) bool {
				return m.Type == model.WSMessageTypeError
			})
			if !strings.Contains(string(msg.Payload), tt.want) {
				t.Errorf("error payload = %s, want %q", msg.Payload, tt.want)
			}
		})
	}
}

func TestWebSocketHandler_BroadcastsStatus(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	conn := dialHub(t, env)
	readUntil(t, conn, isState(1))

	// Act
	env.board.For("home").Show("Slide deleted.", false, time.Minute)

	// Assert
	msg := readUntil(t, conn, func(m model.WebSocketMessage) bool {
		return m.Type == model.WSMessageTypeStatus
	})
	if msg.Slideshow != "home" || !strings.Contains(string(msg.Payload), "Slide deleted.") {
		t.Errorf("status message = %+v, want home deletion notice", msg)
	}
}

func TestWebSocketHandler_CloseAllConnections(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	conn := dialHub(t, env)
	readUntil(t, conn, isState(1))

	// Act
	env.hub.CloseAllConnections()

	// Assert
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() unexpected error: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if got := env.hub.Clients(); got != 0 {
		t.Errorf("clients = %d, want 0", got)
	}
}

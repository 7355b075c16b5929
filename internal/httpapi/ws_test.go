package httpapi

import (
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestChatWebsocket(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "meghna", "meghna2025")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws?session_id=" + sessionID
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	res.Body.Close()

	if err := conn.WriteJSON(wsClientMessage{Message: "hello from the websocket"}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	var reply wsServerMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply.Type != "chat" {
		t.Fatalf("reply type = %q, want chat", reply.Type)
	}
	if !strings.Contains(reply.AIResponse, "hello from the websocket") {
		t.Fatalf("unexpected ai_response %q", reply.AIResponse)
	}

	if err := conn.WriteJSON(wsClientMessage{Message: "   "}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply.Type != "error" || reply.Code != "empty_message" {
		t.Fatalf("expected empty_message error, got %+v", reply)
	}
}

func TestChatWebsocketRejectsOverlongMessage(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "aditya", "aditya2025")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws?session_id=" + sessionID
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	res.Body.Close()

	if err := conn.WriteJSON(wsClientMessage{Message: strings.Repeat("x", 1001)}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	var reply wsServerMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply.Type != "error" || reply.Code != "message_too_long" {
		t.Fatalf("expected message_too_long error, got %+v", reply)
	}

	// The limit matches POST /api/chat: a message at the boundary goes through.
	if err := conn.WriteJSON(wsClientMessage{Message: strings.Repeat("x", 1000)}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply.Type != "chat" {
		t.Fatalf("boundary-length message should succeed, got %+v", reply)
	}
}

func TestChatWebsocketRequiresSession(t *testing.T) {
	ts := newTestServer(t, &stubClient{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a session")
	}
	if res != nil {
		res.Body.Close()
		if res.StatusCode != 401 {
			t.Fatalf("status = %d, want 401", res.StatusCode)
		}
	}
}

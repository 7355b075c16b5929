package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

type wsClientMessage struct {
	Message string `json:"message"`
}

type wsServerMessage struct {
	Type        string `json:"type"`
	UserMessage string `json:"user_message,omitempty"`
	AIResponse  string `json:"ai_response,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
	Code        string `json:"code,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// handleChatWS runs a live chat connection for one session. The client
// sends {"message": "..."} frames and receives one reply frame per
// message. Turns are processed one at a time per connection.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.writeWS(conn, wsServerMessage{Type: "error", Code: "invalid_client_message", Detail: "frames must be JSON with a message field"})
			s.countWS("inbound", "invalid")
			continue
		}
		s.countWS("inbound", "chat")

		message := strings.TrimSpace(msg.Message)
		if message == "" {
			s.writeWS(conn, wsServerMessage{Type: "error", Code: "empty_message", Detail: "message must not be empty"})
			continue
		}
		if utf8.RuneCountInString(message) > s.cfg.MaxMessageChars {
			s.writeWS(conn, wsServerMessage{
				Type:   "error",
				Code:   "message_too_long",
				Detail: "message must be at most " + strconv.Itoa(s.cfg.MaxMessageChars) + " characters",
			})
			continue
		}

		// Re-check the session each turn so an expired login drops the
		// connection instead of chatting forever.
		if _, err := s.sessions.Get(sess.ID); err != nil {
			s.writeWS(conn, wsServerMessage{Type: "error", Code: "session_expired", Detail: "please log in again"})
			break
		}

		reply, err := s.chat.ChatTurn(r.Context(), sess.MemberID, sess.ID, message)
		if err != nil {
			s.writeWS(conn, wsServerMessage{Type: "error", Code: "member_not_found", Detail: "family member not found"})
			continue
		}
		_ = s.sessions.RecordMessage(sess.ID)

		s.writeWS(conn, wsServerMessage{
			Type:        "chat",
			UserMessage: message,
			AIResponse:  reply.Text,
			Timestamp:   reply.Timestamp.Format("15:04"),
			Cached:      reply.Cached,
		})
	}

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg wsServerMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err == nil {
		s.countWS("outbound", msg.Type)
	}
}

func (s *Server) countWS(direction, msgType string) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
	}
}

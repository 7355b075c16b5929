// Package httpapi exposes the family chat service over HTTP: login,
// chat, history, family info, and a websocket for the live chat page.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/adinavai/adinav/internal/auth"
	"github.com/adinavai/adinav/internal/chat"
	"github.com/adinavai/adinav/internal/completion"
	"github.com/adinavai/adinav/internal/config"
	"github.com/adinavai/adinav/internal/family"
	"github.com/adinavai/adinav/internal/observability"
)

// sessionCookie carries the session id between requests. The chat page
// also sends it explicitly for websocket connections.
const sessionCookie = "adinav_session"

type Server struct {
	cfg       config.Config
	creds     *auth.Credentials
	sessions  *auth.Manager
	chat      *chat.Service
	family    *family.Store
	completer completion.Client
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
	static    http.Handler
}

func New(cfg config.Config, creds *auth.Credentials, sessions *auth.Manager, chatSvc *chat.Service, familyStore *family.Store, completer completion.Client, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		creds:     creds,
		sessions:  sessions,
		chat:      chatSvc,
		family:    familyStore,
		completer: completer,
		metrics:   metrics,
		static:    newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin. This prevents other websites from driving a family
				// member's chat session if the app is ever exposed beyond
				// the home network.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/login", s.handleLogin)
	r.Post("/api/logout", s.handleLogout)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)
	r.Get("/api/conversation-starter", s.handleConversationStarter)
	r.Get("/api/family-info", s.handleFamilyInfo)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/activity", s.handleActivity)
	r.Get("/api/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"ai_connected":    s.completer.Ping(ctx) == nil,
		"active_sessions": s.sessions.ActiveCount(),
	})
}

// handleReady also pings the completion backend so a load balancer or the
// family dashboard can tell "up" apart from "up but the model is down".
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	backend := "ok"
	status := http.StatusOK
	if err := s.completer.Ping(r.Context()); err != nil {
		backend = "unreachable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{
		"status":  "ready",
		"backend": backend,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

// sessionFromRequest resolves the active session from the cookie, the
// Authorization header, or an explicit session_id query parameter.
func (s *Server) sessionFromRequest(r *http.Request) (*auth.Session, error) {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	if h := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(h, "Bearer ") {
		id = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if q := strings.TrimSpace(r.URL.Query().Get("session_id")); q != "" {
		id = q
	}
	if id == "" {
		return nil, auth.ErrNotFound
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	_ = s.sessions.Touch(sess.ID)
	return sess, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

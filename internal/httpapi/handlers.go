package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/adinavai/adinav/internal/family"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success         bool     `json:"success"`
	SessionID       string   `json:"session_id"`
	User            userInfo `json:"user"`
	InactivityTTLMS int64    `json:"inactivity_ttl_ms"`
}

type userInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	user, ok := s.creds.Authenticate(req.Username, req.Password)
	if !ok {
		if s.metrics != nil {
			s.metrics.SessionEvents.WithLabelValues("login_failed").Inc()
		}
		s.chat.RecordActivity(r.Context(), strings.ToLower(strings.TrimSpace(req.Username)), "login_failed", "invalid credentials")
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password. Please try again.")
		return
	}

	sess := s.sessions.Create(user)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
	}
	s.chat.RecordActivity(r.Context(), user.ID, "login_success", "web session")

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, loginResponse{
		Success:         true,
		SessionID:       sess.ID,
		User:            userInfo{ID: user.ID, Name: user.DisplayName, Avatar: user.Avatar},
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "no active session")
		return
	}

	if _, err := s.sessions.End(sess.ID); err == nil {
		if s.metrics != nil {
			s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
			s.metrics.SessionEvents.WithLabelValues("ended").Inc()
		}
		s.chat.RecordActivity(r.Context(), sess.MemberID, "logout", "web session")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Timestamp   string `json:"timestamp"`
	Cached      bool   `json:"cached"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "a JSON body with a message field is required")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "message must not be empty")
		return
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageChars {
		respondError(w, http.StatusBadRequest, "message_too_long",
			"message must be at most "+strconv.Itoa(s.cfg.MaxMessageChars)+" characters")
		return
	}

	reply, err := s.chat.ChatTurn(r.Context(), sess.MemberID, sess.ID, message)
	if err != nil {
		if errors.Is(err, family.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member_not_found", "family member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", "something went wrong")
		return
	}

	_ = s.sessions.RecordMessage(sess.ID)

	respondJSON(w, http.StatusOK, chatResponse{
		UserMessage: message,
		AIResponse:  reply.Text,
		Timestamp:   reply.Timestamp.Format("15:04"),
		Cached:      reply.Cached,
	})
}

func (s *Server) handleConversationStarter(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}

	reply, err := s.chat.StartConversation(r.Context(), sess.MemberID)
	if err != nil {
		if errors.Is(err, family.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member_not_found", "family member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", "something went wrong")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"starter":   reply.Text,
		"timestamp": reply.Timestamp.Format("15:04"),
	})
}

type familyInfoMember struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Interests []string `json:"interests"`
	Avatar    string   `json:"avatar,omitempty"`
}

func (s *Server) handleFamilyInfo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}

	me, err := s.family.Member(sess.MemberID)
	if err != nil {
		respondError(w, http.StatusNotFound, "member_not_found", "family member not found")
		return
	}

	record := s.family.Snapshot()
	isAdmin := me.Role == "admin"

	resp := map[string]any{
		"name":         record.Family.Name,
		"values":       record.Family.Values,
		"family_size":  record.Members.Len(),
		"ai_connected": s.completer.Ping(r.Context()) == nil,
		"is_admin":     isAdmin,
		"me":           s.memberInfo(sess.MemberID, &me),
	}

	// The full roster with everyone's interests is admin-only; the kids
	// see their own profile and the family basics.
	if isAdmin {
		members := make([]familyInfoMember, 0, record.Members.Len())
		for _, id := range record.Members.IDs() {
			m, _ := record.Members.Get(id)
			members = append(members, s.memberInfo(id, m))
		}
		resp["members"] = members
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) memberInfo(id string, m *family.Member) familyInfoMember {
	info := familyInfoMember{
		ID:        id,
		Name:      m.DisplayName,
		Role:      m.Role,
		Interests: m.Interests,
	}
	if user, ok := s.creds.Lookup(id); ok {
		info.Avatar = user.Avatar
	}
	return info
}

// handleActivity exposes the audit log to the family admin.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}
	me, err := s.family.Member(sess.MemberID)
	if err != nil || me.Role != "admin" {
		respondError(w, http.StatusForbidden, "admin_only", "only the family admin can view activity")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	activities, err := s.chat.Activities(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "could not load activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"activity": activities})
}

type historyEntry struct {
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not_logged_in", "please log in first")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	turns, err := s.chat.History(r.Context(), sess.MemberID, limit)
	if err != nil {
		if errors.Is(err, family.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member_not_found", "family member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", "could not load history")
		return
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{
			UserMessage: t.UserMessage,
			AIResponse:  t.AssistantResponse,
			Timestamp:   t.CreatedAt.Format("15:04"),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": entries})
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/adinavai/adinav/internal/auth"
	"github.com/adinavai/adinav/internal/chat"
	"github.com/adinavai/adinav/internal/completion"
	"github.com/adinavai/adinav/internal/config"
	"github.com/adinavai/adinav/internal/convlog"
	"github.com/adinavai/adinav/internal/family"
	"github.com/adinavai/adinav/internal/learner"
	"github.com/adinavai/adinav/internal/respcache"
)

type stubClient struct {
	reply   string
	pingErr error
}

func (c *stubClient) Complete(_ context.Context, _, message string) (string, error) {
	if c.reply != "" {
		return c.reply, nil
	}
	return "I heard you: " + message, nil
}

func (c *stubClient) Ping(context.Context) error { return c.pingErr }

func newTestServer(t *testing.T, client completion.Client) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		MaxMessageChars:          1000,
		SessionInactivityTimeout: 2 * time.Minute,
	}
	store, err := family.Open(filepath.Join(t.TempDir(), "family.json"))
	if err != nil {
		t.Fatalf("family.Open: %v", err)
	}
	logStore := convlog.NewInMemoryStore()
	chatSvc := chat.New(store, logStore, client, respcache.New(time.Minute), learner.New(store, learner.NewKeywordExtractor()), nil)
	sessions := auth.NewManager(cfg.SessionInactivityTimeout)
	srv := New(cfg, auth.SeedCredentials(), sessions, chatSvc, store, client, nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	res, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var parsed loginResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if parsed.SessionID == "" {
		t.Fatalf("missing session_id in login response: %+v", parsed)
	}
	return parsed.SessionID
}

func authedRequest(t *testing.T, method, url, sessionID string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionID)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	return res
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, &stubClient{})

	body, _ := json.Marshal(map[string]string{"username": "aditya", "password": "wrong"})
	res, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "aditya", "aditya2025")

	body, _ := json.Marshal(map[string]string{"message": "I love cricket"})
	res := authedRequest(t, http.MethodPost, ts.URL+"/api/chat", sessionID, body)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	if parsed.UserMessage != "I love cricket" {
		t.Fatalf("user_message = %q", parsed.UserMessage)
	}
	if !strings.Contains(parsed.AIResponse, "cricket") {
		t.Fatalf("unexpected ai_response %q", parsed.AIResponse)
	}
	if ok, _ := regexp.MatchString(`^\d{2}:\d{2}$`, parsed.Timestamp); !ok {
		t.Fatalf("timestamp = %q, want HH:MM", parsed.Timestamp)
	}

	histRes := authedRequest(t, http.MethodGet, ts.URL+"/api/history?limit=10", sessionID, nil)
	defer histRes.Body.Close()
	if histRes.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, want %d", histRes.StatusCode, http.StatusOK)
	}
	var hist struct {
		History []historyEntry `json:"history"`
	}
	if err := json.NewDecoder(histRes.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 1 || hist.History[0].UserMessage != "I love cricket" {
		t.Fatalf("unexpected history: %+v", hist.History)
	}
}

func TestChatRequiresLogin(t *testing.T) {
	ts := newTestServer(t, &stubClient{})

	body, _ := json.Marshal(map[string]string{"message": "hello"})
	res, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("chat request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestChatValidatesMessage(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "maryne", "maryne2025")

	cases := []struct {
		name    string
		message string
		code    string
	}{
		{"empty", "", "empty_message"},
		{"whitespace", "   ", "empty_message"},
		{"too long", strings.Repeat("x", 1001), "message_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"message": tc.message})
			res := authedRequest(t, http.MethodPost, ts.URL+"/api/chat", sessionID, body)
			defer res.Body.Close()
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
			}
			var parsed errorResponse
			if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if parsed.Code != tc.code {
				t.Fatalf("code = %q, want %q", parsed.Code, tc.code)
			}
		})
	}
}

func TestFamilyInfo(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "santosh", "santosh2025")

	res := authedRequest(t, http.MethodGet, ts.URL+"/api/family-info", sessionID, nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var parsed struct {
		Name       string             `json:"name"`
		Values     []string           `json:"values"`
		FamilySize int                `json:"family_size"`
		IsAdmin    bool               `json:"is_admin"`
		Me         familyInfoMember   `json:"me"`
		Members    []familyInfoMember `json:"members"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode family info: %v", err)
	}
	if parsed.Name != "Gupta Family" {
		t.Fatalf("name = %q", parsed.Name)
	}
	if len(parsed.Values) != 5 {
		t.Fatalf("len(values) = %d, want 5", len(parsed.Values))
	}
	if parsed.FamilySize != 6 {
		t.Fatalf("family_size = %d, want 6", parsed.FamilySize)
	}
	if !parsed.IsAdmin {
		t.Fatal("santosh should be admin")
	}
	if parsed.Me.ID != "santosh" {
		t.Fatalf("me = %q, want santosh", parsed.Me.ID)
	}
	if len(parsed.Members) != 6 {
		t.Fatalf("len(members) = %d, want 6 for admin", len(parsed.Members))
	}
	if parsed.Members[0].ID != "santosh" {
		t.Fatalf("first member = %q, want santosh (roster order)", parsed.Members[0].ID)
	}
}

func TestFamilyInfoHidesRosterFromNonAdmins(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "aditya", "aditya2025")

	res := authedRequest(t, http.MethodGet, ts.URL+"/api/family-info", sessionID, nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var parsed map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode family info: %v", err)
	}
	if _, ok := parsed["members"]; ok {
		t.Fatal("non-admin response must not include the full roster")
	}
	if _, ok := parsed["me"]; !ok {
		t.Fatal("non-admin response should include the member's own profile")
	}
}

func TestActivityEndpointAdminOnly(t *testing.T) {
	ts := newTestServer(t, &stubClient{})

	kidSession := login(t, ts, "avinav", "avinav2025")
	res := authedRequest(t, http.MethodGet, ts.URL+"/api/activity", kidSession, nil)
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	adminSession := login(t, ts, "santosh", "santosh2025")
	adminRes := authedRequest(t, http.MethodGet, ts.URL+"/api/activity", adminSession, nil)
	defer adminRes.Body.Close()
	if adminRes.StatusCode != http.StatusOK {
		t.Fatalf("admin status = %d, want %d", adminRes.StatusCode, http.StatusOK)
	}

	var parsed struct {
		Activity []struct {
			MemberID string `json:"member_id"`
			Kind     string `json:"kind"`
		} `json:"activity"`
	}
	if err := json.NewDecoder(adminRes.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	// Both logins above should have been audited.
	kinds := make(map[string]int)
	for _, a := range parsed.Activity {
		kinds[a.Kind]++
	}
	if kinds["login_success"] < 2 {
		t.Fatalf("expected at least 2 login_success entries, got %+v", kinds)
	}
}

func TestConversationStarter(t *testing.T) {
	ts := newTestServer(t, &stubClient{reply: "Good morning Sushma!"})
	sessionID := login(t, ts, "sushma", "sushma2025")

	res := authedRequest(t, http.MethodGet, ts.URL+"/api/conversation-starter", sessionID, nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var parsed struct {
		Starter string `json:"starter"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode starter: %v", err)
	}
	if parsed.Starter != "Good morning Sushma!" {
		t.Fatalf("starter = %q", parsed.Starter)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t, &stubClient{})
	sessionID := login(t, ts, "avinav", "avinav2025")

	res := authedRequest(t, http.MethodPost, ts.URL+"/api/logout", sessionID, nil)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	body, _ := json.Marshal(map[string]string{"message": "still there?"})
	chatRes := authedRequest(t, http.MethodPost, ts.URL+"/api/chat", sessionID, body)
	defer chatRes.Body.Close()
	if chatRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("chat after logout status = %d, want %d", chatRes.StatusCode, http.StatusUnauthorized)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, &stubClient{})

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	down := newTestServer(t, &stubClient{pingErr: fmt.Errorf("backend down")})
	readyRes, err := http.Get(down.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	readyRes.Body.Close()
	if readyRes.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want %d", readyRes.StatusCode, http.StatusServiceUnavailable)
	}
}

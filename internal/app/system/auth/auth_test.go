package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	_, err := auth.NewSessionManager("", "", "", time.Hour, false, nil)
	if err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_API_Returns401JSON(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler(nil))

	req := httptest.NewRequest("GET", "/workgroups", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRequireSignedIn_BrowserAlsoGets401(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler(nil))

	req := httptest.NewRequest("GET", "/workgroups", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("unexpected redirect to %q", loc)
	}
}

func TestRequireSignedIn_WithUser(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireSignedIn(okHandler(&called))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/workgroups", nil), &auth.SessionUser{ID: "507f1f77bcf86cd799439011"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("expected pass-through, got status %d (called=%v)", rec.Code, called)
	}
}

func TestSessionUser_HasCapability(t *testing.T) {
	tests := []struct {
		name string
		user *auth.SessionUser
		want bool
	}{
		{"holder", &auth.SessionUser{Capabilities: []string{"add_workgroup"}}, true},
		{"registry admin implies all", &auth.SessionUser{Capabilities: []string{"registry_admin"}}, true},
		{"missing", &auth.SessionUser{}, false},
		{"nil user", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasCapability("add_workgroup"); got != tc.want {
				t.Errorf("HasCapability = %v, want %v", got, tc.want)
			}
		})
	}
}

type stubFetcher struct {
	users map[string]*auth.SessionUser
}

func (f stubFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	return f.users[id]
}

func TestSignIn_LoadSessionUser_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{users: map[string]*auth.SessionUser{
		"507f1f77bcf86cd799439011": {ID: "507f1f77bcf86cd799439011", Name: "Ada Lovelace", Capabilities: []string{"add_workgroup"}},
	}})

	// Sign in and capture the cookie.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	if err := sm.SignIn(rec, req, &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Name: "Ada"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req = httptest.NewRequest("GET", "/workgroups", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected user to be loaded from session")
	}
	if got.Name != "Ada Lovelace" || !got.HasCapability("add_workgroup") {
		t.Errorf("expected fresh user from fetcher, got %+v", got)
	}
}

func TestLoadSessionUser_FetcherRejects(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{users: map[string]*auth.SessionUser{}})

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), &auth.SessionUser{ID: "gone"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	found := true
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/workgroups", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("user rejected by fetcher must be treated as signed out")
	}
}

func TestLoadSessionUser_TamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	found := true
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/workgroups", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected request to continue")
	}
	if found {
		t.Error("tampered cookie must not authenticate")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)
	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

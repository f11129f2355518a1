package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"go.uber.org/zap"
)

type fakeFetcher map[string]*auth.SessionUser

func (f fakeFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	return f[id]
}

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-that-is-at-least-32-chars",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "x", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/attendance", nil), &auth.SessionUser{ID: "u1"})
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireElevated(t *testing.T) {
	sm := newTestSessionManager(t)
	tests := []struct {
		name     string
		user     *auth.SessionUser
		wantCode int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &auth.SessionUser{ID: "u1", Position: "member"}, http.StatusForbidden},
		{"no position", &auth.SessionUser{ID: "u1"}, http.StatusForbidden},
		{"president", &auth.SessionUser{ID: "u2", Position: "President"}, http.StatusOK},
		{"advisor", &auth.SessionUser{ID: "u3", Position: "advisor"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			sm.RequireElevated(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestSignIn_LoadSessionUser_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{
		"u1": {ID: "u1", Name: "Ana", Email: "ana@example.com", Position: "member"},
	})

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest(http.MethodPost, "/login", nil), "u1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := signIn.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/attendance", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != "u1" || got.Email != "ana@example.com" {
		t.Fatalf("CurrentUser = %+v, want u1", got)
	}
}

func TestLoadSessionUser_UnknownUserIsAnonymous(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{})

	signIn := httptest.NewRecorder()
	_ = sm.SignIn(signIn, httptest.NewRequest(http.MethodPost, "/login", nil), "deleted")

	req := httptest.NewRequest(http.MethodGet, "/attendance", nil)
	for _, c := range signIn.Result().Cookies() {
		req.AddCookie(c)
	}

	found := true
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("expected no current user when the fetcher returns nil")
	}
}

func TestResolve(t *testing.T) {
	_, err := auth.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("Resolve without user = %v, want Unauthenticated", err)
	}

	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/", nil),
		&auth.SessionUser{ID: "u1", Name: "Ana", Email: "ana@example.com"})
	p, err := auth.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.UserID != "u1" || p.Email != "ana@example.com" || p.Name != "Ana" {
		t.Errorf("Principal = %+v", p)
	}
}

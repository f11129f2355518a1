package authgoogle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/features/authgoogle"
	"github.com/dalemusser/meraki/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/meraki/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code_verifier") == "" {
			http.Error(w, "missing verifier", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok", "token_type": "Bearer", "expires_in": 3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "g-123", "email": email, "verified_email": true, "name": "Gus Google",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, google *httptest.Server) (*authgoogle.Handler, *oauthstate.Store, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-32b", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	states := oauthstate.New(db)
	users := userstore.New(db)
	h := authgoogle.NewHandler(users, states, sm, nil, "client", "secret", "http://localhost:8080", logger)
	if google != nil {
		h.Endpoint = oauth2.Endpoint{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token"}
		h.UserInfoURL = google.URL + "/userinfo"
	}
	return h, states, users
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	h.ClientID = ""

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google", nil))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login?error=google_not_configured" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestServeLogin_RedirectsWithPKCE(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google?return=/attendance", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	q := loc.Query()
	if q.Get("state") == "" || q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("authorization URL missing state or PKCE: %s", loc)
	}
}

func TestServeCallback_InvalidState(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=bogus&code=x", nil))

	if loc := rec.Header().Get("Location"); loc != "/login?error=invalid_state" {
		t.Errorf("Location = %q", loc)
	}
}

func TestServeCallback_CreatesUserOnFirstSignIn(t *testing.T) {
	google := fakeGoogle(t, "Gus@Example.com")
	h, states, users := newTestHandler(t, google)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := states.Save(ctx, "st-1", oauth2.GenerateVerifier(), "/attendance", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=st-1&code=abc", nil))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/attendance" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	u, err := users.GetByEmail(ctx, "gus@example.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.AuthProvider != models.ProviderGoogle || u.GoogleID != "g-123" {
		t.Errorf("user = %+v", u)
	}

	// The state is single use.
	rec = httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=st-1&code=abc", nil))
	if loc := rec.Header().Get("Location"); loc != "/login?error=invalid_state" {
		t.Errorf("replayed state: Location = %q", loc)
	}
}

func TestServeCallback_RejectsExternalReturn(t *testing.T) {
	google := fakeGoogle(t, "gus@example.com")
	h, states, _ := newTestHandler(t, google)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := states.Save(ctx, "st-2", oauth2.GenerateVerifier(), "https://evil.example/", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=st-2&code=abc", nil))
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestServeCallback_GoogleDenied(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?error=access_denied", nil))
	if loc := rec.Header().Get("Location"); loc != "/login?error=google_denied" {
		t.Errorf("Location = %q", loc)
	}
}

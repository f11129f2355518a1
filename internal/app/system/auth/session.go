package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/meraki/internal/app/policy/accesspolicy"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session values                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	userIDKey     = "user_id"
	signedInAtKey = "signed_in_at"
)

// SessionUser is the authenticated user injected into r.Context().
// It is rebuilt from the users collection on every request, so Position
// always reflects the stored record.
type SessionUser struct {
	ID         string
	Name       string
	Email      string
	Position   string
	Department string
}

// UserFetcher loads the current state of a user by ID. Returning nil means
// the session no longer maps to a user and is treated as signed out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser returns r carrying u as the current user. For tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds a cookie-backed session store.
//
// In production (secure=true) cookies are Secure with SameSite=Lax; over
// http://localhost use secure=false so the browser accepts them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "meraki-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the fetcher used by LoadSessionUser.
func (m *SessionManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// SignIn records userID in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[userIDKey] = userID
	sess.Values[signedInAtKey] = time.Now().UTC().Unix()
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, userIDKey)
	delete(sess.Values, signedInAtKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SessionUserID returns the user ID recorded in the session, if any.
func (m *SessionManager) SessionUserID(r *http.Request) (string, bool) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[userIDKey].(string)
	return id, ok && id != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser injects the current user into the context when the session
// maps to an existing user. Without a fetcher it is a no-op.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := m.SessionUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		u := m.fetcher.FetchUser(r.Context(), id)
		if u == nil {
			m.log.Debug("session user not found", zap.String("user_id", id))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn rejects requests without a current user with 401.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			apperr.Write(w, m.log, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireElevated rejects anonymous requests with 401 and standard users
// with 403.
func (m *SessionManager) RequireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			apperr.Write(w, m.log, apperr.ErrUnauthenticated)
			return
		}
		if accesspolicy.Classify(u.Position) != accesspolicy.Elevated {
			apperr.Write(w, m.log, apperr.ErrAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

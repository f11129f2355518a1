package auth

import (
	"net/http"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
)

// Principal is the authenticated identity passed explicitly into every
// attendance operation. UserID is the stable user identifier; Email and
// Name are denormalized onto records at creation.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

// Principal returns the identity of the session user.
func (u *SessionUser) Principal() Principal {
	return Principal{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// Resolve maps the request's authenticated user to a Principal, or fails
// with Unauthenticated.
func Resolve(r *http.Request) (Principal, error) {
	u, ok := CurrentUser(r)
	if !ok || u.ID == "" {
		return Principal{}, apperr.ErrUnauthenticated
	}
	return u.Principal(), nil
}

// Package notify carries outbound notifications (currently password reset
// emails) from request handlers to the mailer, either in-process or through
// a RabbitMQ topic exchange.
package notify

import "errors"

// Routing keys.
const (
	KeyPasswordResetRequested = "user.password_reset_requested"
)

// ErrPermanent marks a message that will never succeed. The consumer drops
// it instead of requeueing.
var ErrPermanent = errors.New("permanent failure")

// Reasons a password reset was requested.
const (
	ReasonSelf  = "self"
	ReasonAdmin = "admin"
)

// PasswordResetRequested asks for a reset link to be emailed to a user.
type PasswordResetRequested struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	ResetLink string `json:"reset_link"`
	ExpiresIn string `json:"expires_in"`
	Reason    string `json:"reason"`
}

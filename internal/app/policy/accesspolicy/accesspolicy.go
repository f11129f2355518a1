// Package accesspolicy decides whether a user holds an elevated role.
//
// Authorization rules:
//   - Advisors, presidents and vice-presidents are Elevated
//   - Every other position (including none) is Standard
//   - Elevated users may read the full roster and trigger password resets
//     for other users; Standard users may only act on their own data
//
// The decision is always made from the user record loaded for the current
// request. Positions cached in a session are never trusted.
package accesspolicy

import (
	"strings"

	"github.com/dalemusser/meraki/internal/domain/models"
)

// Level is the outcome of classifying a position.
type Level int

const (
	Standard Level = iota
	Elevated
)

func (l Level) String() string {
	if l == Elevated {
		return "elevated"
	}
	return "standard"
}

// Position is one of the positions that grant elevated access.
type Position string

const (
	Advisor       Position = "advisor"
	President     Position = "president"
	VicePresident Position = "vice-president"
)

// elevated is the closed allow-list. Add a Position constant above and list
// it here to extend it.
var elevated = map[Position]struct{}{
	Advisor:       {},
	President:     {},
	VicePresident: {},
}

// ParsePosition normalizes free text into a Position and reports whether it
// is one of the elevated positions.
func ParsePosition(s string) (Position, bool) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	_, ok := elevated[p]
	return p, ok
}

// Classify returns Elevated iff the position is in the allow-list.
// Comparison ignores case and surrounding whitespace.
func Classify(position string) Level {
	if _, ok := ParsePosition(position); ok {
		return Elevated
	}
	return Standard
}

// IsElevated classifies the user's current position.
func IsElevated(u models.User) bool {
	return Classify(u.Position) == Elevated
}

// CanListAllUsers reports whether the user may read the full roster.
func CanListAllUsers(u models.User) bool {
	return IsElevated(u)
}

// CanResetPasswordFor reports whether actor may send a password reset to
// target. Users may always reset their own password through the public flow;
// this governs resets triggered on someone else's behalf.
func CanResetPasswordFor(actor, target models.User) bool {
	if actor.ID == target.ID {
		return true
	}
	return IsElevated(actor)
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults applied when a profile field has never been set.
const (
	DefaultDepartment = "Unassigned"
	DefaultPosition   = "Member"
)

// User is a member of the organization.
//
// NOTE:
//   - Email is stored lowercased and trimmed; it is the case-insensitive lookup key.
//   - Position is managed out of band (it gates elevated access) and is never
//     writable through the profile endpoint.
//   - Secrets are tagged json:"-" so a User can be written to a response as-is.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // folded for sorting
	Email        string             `bson:"email" json:"email"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	AuthProvider string             `bson:"auth_provider" json:"provider"` // google | credentials
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	PasswordHash *string            `bson:"password_hash,omitempty" json:"-"`

	Position   string `bson:"position,omitempty" json:"position,omitempty"`
	Department string `bson:"department,omitempty" json:"department,omitempty"`
	ColorKey   string `bson:"color_key,omitempty" json:"color,omitempty"`

	ResetTokenHash   string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasPassword reports whether the user can sign in with credentials.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

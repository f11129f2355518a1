// internal/domain/models/authmethods.go
package models

import "strings"

// Auth providers a User can be created with.
const (
	ProviderGoogle      = "google"
	ProviderCredentials = "credentials"
)

// AuthProvider represents an authentication provider option.
type AuthProvider struct {
	Value string // The value stored in the database
	Label string // The display label
}

// AllAuthProviders contains every supported provider with its display label.
var AllAuthProviders = []AuthProvider{
	{Value: ProviderGoogle, Label: "Google"},
	{Value: ProviderCredentials, Label: "Email & Password"},
}

// IsValidAuthProvider checks if a value is a supported provider.
func IsValidAuthProvider(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, p := range AllAuthProviders {
		if p.Value == value {
			return true
		}
	}
	return false
}

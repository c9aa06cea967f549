package core

import "errors"

// ErrNoCredentials is returned by a CredentialStore that holds nothing.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials are what a successful login persists.
type Credentials struct {
	Token string `json:"access_token"`
	User  User   `json:"user"`
}

// CredentialStore persists the session token and user across runs.
type CredentialStore interface {
	// Load returns ErrNoCredentials when nothing is stored.
	Load() (Credentials, error)
	Save(creds Credentials) error
	// Clear removes stored credentials. Clearing an empty store is not an error.
	Clear() error
}

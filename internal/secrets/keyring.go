package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/theakshaypant/calmerge/internal/core"
)

const (
	serviceName = "calmerge"
	sessionKey  = "session"
)

// KeyringStore keeps credentials in the OS keyring (Keychain, Secret
// Service, Windows Credential Manager, or an encrypted file fallback).
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the system keyring. fileDir is used by the encrypted
// file backend when no native keyring is available.
func OpenKeyring(fileDir string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// NewKeyringStore wraps an already opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (s *KeyringStore) Load() (core.Credentials, error) {
	item, err := s.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return core.Credentials{}, core.ErrNoCredentials
	}
	if err != nil {
		return core.Credentials{}, fmt.Errorf("read keyring: %w", err)
	}

	var creds core.Credentials
	if err := json.Unmarshal(item.Data, &creds); err != nil {
		return core.Credentials{}, fmt.Errorf("decode keyring session: %w", err)
	}
	if creds.Token == "" {
		return core.Credentials{}, core.ErrNoCredentials
	}
	return creds, nil
}

func (s *KeyringStore) Save(creds core.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.ring.Set(keyring.Item{
		Key:         sessionKey,
		Data:        data,
		Label:       "calmerge session",
		Description: "calmerge backend access token",
	})
}

func (s *KeyringStore) Clear() error {
	err := s.ring.Remove(sessionKey)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	// Some backends report a missing item with their own error text.
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return nil
	}
	return fmt.Errorf("remove keyring session: %w", err)
}

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// Open returns the store selected by backend. path is the session file for
// the file backend and the fallback directory for the keyring backend.
func Open(backend, path string) (core.CredentialStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendKeyring:
		store, err := OpenKeyring(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown token_store %q (expected file|keyring)", backend)
	}
}

// Package credential keeps the portal API token in the OS keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "scholarship-portal"

	// TokenKey is the keyring entry holding the portal Bearer token.
	TokenKey = "api-token"

	// TokenEnv overrides the stored token when set.
	TokenEnv = "PORTAL_TOKEN"
)

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes credentials. Keyring implements it; tests swap in
// a map.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring is the Store backed by the OS keyring.
type Keyring struct {
	config keyring.Config
}

// NewKeyring returns a Keyring whose file backend lives under dir.
func NewKeyring(dir string) *Keyring {
	return &Keyring{config: keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	}}
}

// DefaultKeyring stores file-backend credentials next to the config file.
func DefaultKeyring() *Keyring {
	return NewKeyring("~/.config/scholarship-portal/credentials")
}

func (k *Keyring) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(k.config)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	ring, err := k.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (k *Keyring) Set(key string, value string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. A missing key is not an error.
func (k *Keyring) Delete(key string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Token returns the portal token: PORTAL_TOKEN if set, otherwise the
// stored value. An absent token yields "" and no error.
func Token(s Store) (string, error) {
	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		return env, nil
	}
	token, err := s.Get(TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return token, err
}

// ClearToken deletes the stored token on sign-out.
func ClearToken(s Store) error {
	return s.Delete(TokenKey)
}

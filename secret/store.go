package secret

import (
	"crypto/subtle"
	"errors"
	"sync"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrEmptySecret    = errors.New("secret key and value cannot be empty")
)

type Store interface {
	// Get retrieves a secret by its key.
	Get(key string) (string, error)
	// Set stores a secret with the given key and value.
	Set(key, value string) error

	Close() error
}

// InMemoryStore keeps API tokens for the lifetime of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		secrets: make(map[string]string),
	}
}

// NewTokenStore returns a store that accepts each non-empty token as its own key.
func NewTokenStore(tokens ...string) *InMemoryStore {
	s := NewInMemoryStore()
	for _, token := range tokens {
		_ = s.Set(token, token)
	}
	return s
}

func (s *InMemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, value := range s.secrets {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return value, nil
		}
	}
	return "", ErrSecretNotFound
}

func (s *InMemoryStore) Set(key, value string) error {
	if key == "" || value == "" {
		return ErrEmptySecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[key] = value
	return nil
}

// Len returns the number of stored secrets.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.secrets)
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.secrets)
	return nil
}

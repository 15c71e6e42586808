package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// Tokens is the credential pair a client holds between calls.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// ErrNoTokens is returned by Load when nothing is stored.
var ErrNoTokens = errors.New("authclient: no stored tokens")

// TokenStore persists the current pair. Each Coordinator gets its own
// store, so several identities can coexist in one process.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps tokens for the life of the process.
type MemoryStore struct {
	mu     sync.Mutex
	tokens Tokens
}

func NewMemoryStore(initial Tokens) *MemoryStore {
	return &MemoryStore{tokens: initial}
}

func (s *MemoryStore) Load(ctx context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens.AccessToken == "" && s.tokens.RefreshToken == "" {
		return Tokens{}, ErrNoTokens
	}
	return s.tokens, nil
}

func (s *MemoryStore) Save(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	return nil
}

// KeyringStore keeps tokens in the OS credential store so a CLI session
// survives between invocations.
type KeyringStore struct {
	Service string
	User    string
}

func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{Service: service, User: user}
}

func (s *KeyringStore) Load(ctx context.Context) (Tokens, error) {
	raw, err := keyring.Get(s.Service, s.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Tokens{}, ErrNoTokens
		}
		return Tokens{}, fmt.Errorf("keyring get: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Tokens{}, fmt.Errorf("keyring decode: %w", err)
	}
	return t, nil
}

func (s *KeyringStore) Save(ctx context.Context, t Tokens) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := keyring.Set(s.Service, s.User, string(raw)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear(ctx context.Context) error {
	if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

package apiclient

import (
	"sync"
)

// Cookie names the backend issues the two tokens under
const (
	AccessTokenName  = "auth_token"
	RefreshTokenName = "refresh_token"
)

// TokenPair is the body of a successful refresh. Either field may be empty.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credentials stores an end user's tokens.
// Key identifies the credential owner; refreshes are single-flighted per key.
type Credentials interface {
	Key() string
	AccessToken() string
	RefreshToken() string
	SetTokens(tokens TokenPair)
}

// MemoryCredentials is an in-process Credentials implementation
type MemoryCredentials struct {
	key     string
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryCredentials creates credentials holding the given tokens
func NewMemoryCredentials(key, accessToken, refreshToken string) *MemoryCredentials {
	return &MemoryCredentials{
		key:     key,
		access:  accessToken,
		refresh: refreshToken,
	}
}

// Key returns the credential owner key
func (m *MemoryCredentials) Key() string {
	return m.key
}

// AccessToken returns the current access token
func (m *MemoryCredentials) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

// RefreshToken returns the current refresh token
func (m *MemoryCredentials) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

// SetTokens replaces the non-empty tokens of the pair
func (m *MemoryCredentials) SetTokens(tokens TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tokens.AccessToken != "" {
		m.access = tokens.AccessToken
	}
	if tokens.RefreshToken != "" {
		m.refresh = tokens.RefreshToken
	}
}

package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// tokenValidity is how long a FYERS access token is trusted from
// issuance. FYERS tokens are valid for a single trading day; 23 hours
// keeps a safety margin.
const tokenValidity = 23 * time.Hour

// TokenPair is the persisted access/refresh token pair. The pair is
// always replaced atomically, never partially updated.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Expired reports whether the pair is past its validity window.
func (t TokenPair) Expired(now time.Time) bool {
	return now.After(t.IssuedAt.Add(tokenValidity))
}

// TokenStore persists the token pair as JSON on disk.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store writing to the given path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Save writes the pair with restricted permissions.
func (s *TokenStore) Save(pair TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}

// Load reads the persisted pair. A missing file returns ok=false.
func (s *TokenStore) Load() (TokenPair, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return TokenPair{}, false
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, false
	}
	return pair, true
}

// Clear removes the persisted pair.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

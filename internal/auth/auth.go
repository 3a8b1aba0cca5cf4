// Package auth owns the FYERS access/refresh token pair and the login
// and refresh flows.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/config"
	apperrors "fyers-orb-bot/internal/errors"
)

// CodeProvider obtains a fresh authorization code from the user. The
// browser/callback mechanics live behind this interface.
type CodeProvider interface {
	ObtainAuthCode(ctx context.Context) (string, error)
}

// Service handles FYERS authentication, token storage, and refresh.
// It implements fyers.TokenSource.
type Service struct {
	creds      config.FyersCredentials
	authURL    string
	store      *TokenStore
	httpClient *http.Client
	logger     zerolog.Logger

	mu   sync.RWMutex // guards pair
	pair TokenPair

	// refreshMu serializes refreshes so concurrent 401s from parallel
	// in-flight requests trigger exactly one network refresh.
	refreshMu sync.Mutex
}

// NewService creates an auth service and loads any cached tokens.
func NewService(creds config.FyersCredentials, authURL string, logger zerolog.Logger) *Service {
	s := &Service{
		creds:      creds,
		authURL:    strings.TrimSuffix(authURL, "/"),
		store:      NewTokenStore(creds.TokenPath),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "auth").Logger(),
	}

	if pair, ok := s.store.Load(); ok && !pair.Expired(time.Now()) {
		s.pair = pair
		s.logger.Info().Msg("Using cached FYERS access token")
	}

	return s
}

// AccessToken returns the current access token, empty if not
// authenticated.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// IsAuthenticated reports whether a non-expired access token is held.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken != "" && !s.pair.Expired(time.Now())
}

// LoginURL returns the FYERS auth-code URL the user must visit.
func (s *Service) LoginURL() string {
	return fmt.Sprintf(
		"%s/generate-authcode?client_id=%s&redirect_uri=%s&response_type=code&state=orb-bot",
		s.authURL, url.QueryEscape(s.creds.AppID), url.QueryEscape(s.creds.RedirectURI),
	)
}

// Login short-circuits on a cached, unexpired token, otherwise runs
// the interactive code-exchange flow via the provider.
func (s *Service) Login(ctx context.Context, provider CodeProvider) error {
	if s.IsAuthenticated() {
		return nil
	}

	s.logger.Info().Msg("No valid token; starting login flow")
	code, err := provider.ObtainAuthCode(ctx)
	if err != nil {
		return apperrors.Wrap(err, "obtaining auth code")
	}

	return s.ExchangeCode(ctx, code)
}

// ExchangeCode exchanges an authorization code for a token pair and
// persists it.
func (s *Service) ExchangeCode(ctx context.Context, code string) error {
	payload, err := s.postAuth(ctx, "/validate-authcode", map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  s.appIDHash(),
		"code":       code,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAuthExchangeFailed, err.Error())
	}

	if err := s.storePair(payload); err != nil {
		return apperrors.Wrap(apperrors.ErrAuthExchangeFailed, err.Error())
	}

	s.logger.Info().Msg("FYERS access token generated and stored")
	return nil
}

// Refresh exchanges the refresh token for a new pair. Concurrent
// callers share one in-flight refresh: whoever enters second observes
// the already-refreshed pair and returns immediately.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	refreshToken := s.pair.RefreshToken
	issuedAt := s.pair.IssuedAt
	s.mu.RUnlock()

	// A refresh completed while we waited on the lock.
	if time.Since(issuedAt) < 5*time.Second && s.AccessToken() != "" {
		return nil
	}

	if refreshToken == "" {
		return apperrors.ErrRefreshUnavailable
	}

	payload, err := s.postAuth(ctx, "/validate-refresh-token", map[string]string{
		"grant_type":    "refresh_token",
		"appIdHash":     s.appIDHash(),
		"refresh_token": refreshToken,
		"pin":           s.creds.PIN,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRefreshFailed, err.Error())
	}

	if err := s.storePair(payload); err != nil {
		return apperrors.Wrap(apperrors.ErrRefreshFailed, err.Error())
	}

	s.logger.Info().Msg("FYERS token pair refreshed")
	return nil
}

// Logout clears tokens from memory and disk.
func (s *Service) Logout() error {
	s.mu.Lock()
	s.pair = TokenPair{}
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *Service) appIDHash() string {
	sum := sha256.Sum256([]byte(s.creds.AppID + ":" + s.creds.Secret))
	return hex.EncodeToString(sum[:])
}

// storePair atomically replaces the in-memory pair and persists it.
func (s *Service) storePair(payload map[string]interface{}) error {
	access, _ := payload["access_token"].(string)
	refresh, _ := payload["refresh_token"].(string)
	if access == "" {
		return fmt.Errorf("response missing access_token")
	}

	pair := TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     time.Now(),
	}

	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()

	if err := s.store.Save(pair); err != nil {
		// Tokens are valid in memory; persistence failure is a warning.
		s.logger.Warn().Err(err).Msg("Failed to persist token pair")
	}
	return nil
}

func (s *Service) postAuth(ctx context.Context, endpoint string, body map[string]string) (map[string]interface{}, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("non-JSON auth response (status %d)", resp.StatusCode)
	}

	if marker, _ := payload["s"].(string); resp.StatusCode >= 400 || marker == "error" {
		msg, _ := payload["message"].(string)
		if msg == "" {
			msg = fmt.Sprintf("auth endpoint failed with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return payload, nil
}

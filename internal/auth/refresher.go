// Package auth exchanges long-lived refresh tokens for IMAP access tokens.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/smsvault/smsvault/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Persister stores a rotated refresh token.
type Persister func(refreshToken string) error

// TokenRefresher obtains access tokens from the configured OAuth endpoint.
// Tokens are cached until they expire or are invalidated after an auth
// failure.
type TokenRefresher struct {
	oauth    oauth2.Config
	username string
	persist  Persister
	logger   *zap.Logger

	mu      sync.Mutex
	refresh string
	current *oauth2.Token
}

// NewTokenRefresher builds a refresher from the auth config. The persister
// may be nil when rotated refresh tokens need not be kept.
func NewTokenRefresher(a config.Auth, persist Persister, logger *zap.Logger) *TokenRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenRefresher{
		oauth: oauth2.Config{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: a.TokenURL},
		},
		username: a.Username,
		persist:  persist,
		logger:   logger,
		refresh:  a.RefreshToken,
	}
}

// AccessToken returns a valid access token, refreshing when needed.
func (r *TokenRefresher) AccessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.Valid() {
		return r.current.AccessToken, nil
	}
	if r.refresh == "" {
		return "", fmt.Errorf("no refresh token for %s", r.username)
	}

	src := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: r.refresh})
	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	r.logger.Info("access token refreshed", zap.String("user", r.username), zap.Time("expiry", token.Expiry))

	if token.RefreshToken != "" && token.RefreshToken != r.refresh {
		r.refresh = token.RefreshToken
		if r.persist != nil {
			if err := r.persist(token.RefreshToken); err != nil {
				r.logger.Warn("could not persist rotated refresh token", zap.Error(err))
			}
		}
	}
	r.current = token
	return token.AccessToken, nil
}

// Invalidate drops the cached access token so the next call fetches a fresh
// one. Called after the server rejects a token that looked valid locally.
func (r *TokenRefresher) Invalidate() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

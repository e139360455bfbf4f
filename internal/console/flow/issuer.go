package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/store"
)

// TokenIssuer owns the stored token pair. Persisting happens exactly once per
// login flow, when the state machine reaches success; everything before that
// point keeps tokens in memory only.
type TokenIssuer struct {
	mu     sync.Mutex
	tokens store.Tokens
	now    func() time.Time
}

func NewTokenIssuer(tokens store.Tokens) *TokenIssuer {
	return &TokenIssuer{tokens: tokens, now: time.Now}
}

// Persist writes the pair to durable storage, replacing whatever was there.
func (i *TokenIssuer) Persist(ctx context.Context, pair domain.TokenPair) error {
	if pair.Empty() {
		return fmt.Errorf("flow: refusing to persist empty token pair")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokens.Save(ctx, pair, i.expiry(pair))
}

// Clear drops the stored pair. Safe to call when nothing is stored.
func (i *TokenIssuer) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokens.Delete(ctx)
}

// Current returns the stored pair and its access-token expiry, or
// store.ErrNotFound when no operator is signed in.
func (i *TokenIssuer) Current(ctx context.Context) (domain.TokenPair, time.Time, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokens.Load(ctx)
}

// Authenticated reports whether a non-expired token pair is stored.
func (i *TokenIssuer) Authenticated(ctx context.Context) bool {
	pair, expiresAt, err := i.Current(ctx)
	if err != nil || pair.Empty() {
		return false
	}
	return i.now().Before(expiresAt)
}

// expiry prefers the exp claim baked into the access token and falls back to
// the advertised expires_in. The token is not validated here, only decoded;
// validation is the backend's job.
func (i *TokenIssuer) expiry(pair domain.TokenPair) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(pair.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return pair.ExpiryFrom(i.now())
}

// Subject decodes the subject claim of the stored access token, for display.
func (i *TokenIssuer) Subject(ctx context.Context) (string, error) {
	pair, _, err := i.Current(ctx)
	if err != nil {
		return "", err
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, &claims); err != nil {
		return "", errors.New("flow: access token is not a decodable JWT")
	}
	return claims.Subject, nil
}

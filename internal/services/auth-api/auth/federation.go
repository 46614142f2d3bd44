package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/fintrack/internal/domain/session"
	"github.com/NordCoder/fintrack/internal/obs"
	"go.uber.org/zap"
)

var (
	ErrStateMismatch       = errors.New("oauth state mismatch")
	ErrAuthorizationDenied = errors.New("authorization denied by provider")
	ErrCodeExchange        = errors.New("provider rejected authorization code")
	ErrUserInfoUnavailable = errors.New("could not fetch user info from provider")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

const keyOAuthVerifier = "oauth_verifier"

// Identity is what the provider tells us about the signed-in user.
type Identity struct {
	Subject string
	Email   string
}

type Provider interface {
	// AuthCodeURL builds the consent redirect carrying state and the PKCE challenge for verifier.
	AuthCodeURL(state, verifier string) string
	// Identify exchanges code for a provider token and fetches the user's identity with it.
	// Errors are ErrCodeExchange, ErrUserInfoUnavailable or ErrProviderUnavailable.
	Identify(ctx context.Context, code, verifier string) (Identity, error)
}

// Callback carries the query parameters the provider redirects back with.
type Callback struct {
	Code  string
	State string
	Error string
}

type FederationConfig struct {
	StateTTL        time.Duration
	ProviderTimeout time.Duration
}

type Federation struct {
	provider Provider
	sessions session.Store
	uc       *Usecase
	log      *zap.Logger
	cfg      FederationConfig
	random   func([]byte) (int, error)
}

func NewFederation(p Provider, sessions session.Store, uc *Usecase, log *zap.Logger, cfg FederationConfig) *Federation {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Federation{provider: p, sessions: sessions, uc: uc, log: log, cfg: cfg, random: rand.Read}
}

// Begin stores a fresh state nonce and PKCE verifier in the session sid and
// returns the provider URL to redirect the browser to.
func (f *Federation) Begin(ctx context.Context, sid string) (string, error) {
	state, err := f.nonce()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	verifier, err := f.nonce()
	if err != nil {
		return "", fmt.Errorf("generate verifier: %w", err)
	}
	if err := f.sessions.Set(ctx, sid, session.KeyOAuthState, state, f.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	if err := f.sessions.Set(ctx, sid, keyOAuthVerifier, verifier, f.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("store verifier: %w", err)
	}
	return f.provider.AuthCodeURL(state, verifier), nil
}

// Complete checks the echoed state against the one stored by Begin, consuming
// it, and only then talks to the provider.
func (f *Federation) Complete(ctx context.Context, sid string, cb Callback) (TokenPair, error) {
	log := obs.WithTrace(ctx, f.log)

	stored, err := f.sessions.Take(ctx, sid, session.KeyOAuthState)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return TokenPair{}, fmt.Errorf("load state: %w", err)
	}
	verifier, err := f.sessions.Take(ctx, sid, keyOAuthVerifier)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return TokenPair{}, fmt.Errorf("load verifier: %w", err)
	}
	if stored == "" || cb.State == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(cb.State)) != 1 {
		log.Warn("auth.oauth.callback", zap.String("stage", "state"), zap.Bool("stored", stored != ""))
		return TokenPair{}, ErrStateMismatch
	}
	if cb.Error != "" {
		log.Info("auth.oauth.callback", zap.String("stage", "consent"), zap.String("provider_error", cb.Error))
		return TokenPair{}, ErrAuthorizationDenied
	}
	if cb.Code == "" {
		return TokenPair{}, ErrCodeExchange
	}

	pctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	id, err := f.provider.Identify(pctx, cb.Code, verifier)
	cancel()
	if err != nil {
		log.Warn("auth.oauth.callback", zap.String("stage", "provider"), zap.Error(err))
		return TokenPair{}, err
	}

	pair, a, err := f.uc.LoginFederated(ctx, id.Email)
	if err != nil {
		return TokenPair{}, err
	}
	log.Info("auth.oauth.callback",
		zap.Int64("account_id", a.ID), zap.String("email", a.Email), zap.String("subject", id.Subject))
	return pair, nil
}

func (f *Federation) nonce() (string, error) {
	b := make([]byte, 32)
	if _, err := f.random(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

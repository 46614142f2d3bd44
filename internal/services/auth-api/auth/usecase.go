package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/domain/account"
	"github.com/NordCoder/fintrack/internal/domain/outbox"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRefreshExpired     = errors.New("refresh token expired")
	ErrRefreshInvalid     = errors.New("invalid refresh token")
	ErrForbidden          = errors.New("admin privileges required")
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventQueue interface {
	Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error
}

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, credential string) bool
}

type TokenService interface {
	Issue(subject string, kind auth.TokenKind, ttl time.Duration) (string, error)
	Validate(raw string, kind auth.TokenKind) (string, error)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Deps groups the collaborators of Usecase. Tx and Events are optional:
// without Tx writes run directly, without Events no account events are queued.
type Deps struct {
	Accounts account.Repo
	Tx       Transactor
	Events   EventQueue
	Hasher   Hasher
	Tokens   TokenService
	Logger   *zap.Logger
}

type Usecase struct {
	accounts account.Repo
	tx       Transactor
	events   EventQueue
	hasher   Hasher
	tokens   TokenService
	log      *zap.Logger
	cfg      Config

	// bcrypt hash compared against on unknown emails so that both login
	// failures take roughly the same time.
	padHash string
}

func NewUsecase(d Deps, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	uc := &Usecase{
		accounts: d.Accounts,
		tx:       d.Tx,
		events:   d.Events,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		log:      d.Logger,
		cfg:      cfg,
	}
	if h, err := d.Hasher.Hash(uuid.NewString()); err == nil {
		uc.padHash = h
	}
	return uc
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

func (u *Usecase) SignUp(ctx context.Context, email, password string) (*account.Account, error) {
	email = normalizeEmail(email)

	_, err := u.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, account.ErrNotFound):
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &account.Account{Email: email, PasswordHash: hash, Role: account.RoleUser}
	if err := u.create(ctx, a, ProviderLocal); err != nil {
		return nil, err
	}
	u.log.Info("auth.signup", zap.Int64("account_id", a.ID), zap.String("email", a.Email))
	return a, nil
}

func (u *Usecase) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = normalizeEmail(email)

	a, err := u.accounts.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		u.hasher.Verify(password, u.padHash)
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}
	if !u.hasher.Verify(password, a.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return u.issuePair(a.Email)
}

// LoginFederated provisions an account for email on first use and issues tokens for it.
func (u *Usecase) LoginFederated(ctx context.Context, email string) (TokenPair, *account.Account, error) {
	a, err := u.ensureFederatedAccount(ctx, normalizeEmail(email))
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := u.issuePair(a.Email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, a, nil
}

func (u *Usecase) Refresh(_ context.Context, refreshToken string) (string, error) {
	subject, err := u.tokens.Validate(refreshToken, auth.KindRefresh)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "", ErrRefreshExpired
	case err != nil:
		return "", ErrRefreshInvalid
	}
	access, err := u.tokens.Issue(subject, auth.KindAccess, u.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves an access token to its account. The token errors of
// package auth are returned as is; a token for a vanished account is invalid.
func (u *Usecase) Authenticate(ctx context.Context, accessToken string) (*account.Account, error) {
	subject, err := u.tokens.Validate(accessToken, auth.KindAccess)
	if err != nil {
		return nil, err
	}
	a, err := u.accounts.GetByEmail(ctx, subject)
	if errors.Is(err, account.ErrNotFound) {
		return nil, auth.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return a, nil
}

func (u *Usecase) ListAccounts(ctx context.Context, caller *account.Account) ([]*account.Account, error) {
	if caller == nil || !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return u.accounts.List(ctx)
}

func (u *Usecase) ensureFederatedAccount(ctx context.Context, email string) (*account.Account, error) {
	a, err := u.accounts.GetByEmail(ctx, email)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	a = &account.Account{Email: email, PasswordHash: account.FederatedCredential, Role: account.RoleUser}
	err = u.create(ctx, a, ProviderGoogle)
	if errors.Is(err, ErrEmailTaken) {
		// a concurrent callback for the same email won the insert
		return u.accounts.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	u.log.Info("auth.oauth.provisioned", zap.Int64("account_id", a.ID), zap.String("email", a.Email))
	return a, nil
}

func (u *Usecase) create(ctx context.Context, a *account.Account, provider string) error {
	write := func(ctx context.Context) error {
		if err := u.accounts.Create(ctx, a); err != nil {
			if errors.Is(err, account.ErrEmailExists) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create account: %w", err)
		}
		if u.events == nil {
			return nil
		}
		data, err := json.Marshal(outbox.AccountCreated{
			AccountID: a.ID,
			Email:     a.Email,
			Provider:  provider,
			At:        u.cfg.Now(),
		})
		if err != nil {
			return fmt.Errorf("marshal account event: %w", err)
		}
		if err := u.events.Enqueue(ctx, uuid.NewString(), outbox.KindAccountCreated, data); err != nil {
			return fmt.Errorf("enqueue account event: %w", err)
		}
		return nil
	}
	if u.tx == nil {
		return write(ctx)
	}
	return u.tx.WithTx(ctx, write)
}

func (u *Usecase) issuePair(subject string) (TokenPair, error) {
	access, err := u.tokens.Issue(subject, auth.KindAccess, u.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := u.tokens.Issue(subject, auth.KindRefresh, u.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

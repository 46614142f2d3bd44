package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/domain/account"
	"github.com/NordCoder/fintrack/internal/domain/outbox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAccounts struct {
	mu     sync.Mutex
	byMail map[string]*account.Account
	nextID int64
	// beforeCreate runs inside Create before the uniqueness check.
	beforeCreate func(a *account.Account)
	getErr       error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byMail: map[string]*account.Account{}}
}

func (f *fakeAccounts) Create(_ context.Context, a *account.Account) error {
	if f.beforeCreate != nil {
		f.beforeCreate(a)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byMail[a.Email]; ok {
		return account.ErrEmailExists
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now().UTC()
	if a.Role == "" {
		a.Role = account.RoleUser
	}
	cp := *a
	f.byMail[a.Email] = &cp
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byMail[email]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) List(_ context.Context) ([]*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*account.Account, 0, len(f.byMail))
	for _, a := range f.byMail {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAccounts) put(a *account.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	f.byMail[a.Email] = a
}

type fakeEvents struct {
	mu   sync.Mutex
	msgs []outbox.Message
}

func (f *fakeEvents) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data})
	return nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fixture struct {
	accounts *fakeAccounts
	events   *fakeEvents
	tx       *fakeTx
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenIssuer
	now      time.Time
	uc       *Usecase
}

const (
	testAccessTTL  = 30 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newFakeAccounts(),
		events:   &fakeEvents{},
		tx:       &fakeTx{},
		hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		now:      time.Now().UTC(),
	}
	var err error
	f.tokens, err = auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    []byte("test-secret"),
		Algorithm: "HS256",
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.uc = NewUsecase(Deps{
		Accounts: f.accounts,
		Tx:       f.tx,
		Events:   f.events,
		Hasher:   f.hasher,
		Tokens:   f.tokens,
	}, Config{AccessTTL: testAccessTTL, RefreshTTL: testRefreshTTL})
	return f
}

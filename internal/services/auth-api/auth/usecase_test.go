package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/domain/account"
	"github.com/NordCoder/fintrack/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsecase_SignUpLoginValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.uc.SignUp(ctx, "  ada@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.Equal(t, account.RoleUser, a.Role)
	assert.NotEqual(t, "correct horse", a.PasswordHash)

	pair, err := f.uc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	sub, err := f.tokens.Validate(pair.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sub)

	sub, err = f.tokens.Validate(pair.RefreshToken, auth.KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sub)
}

func TestUsecase_SignUpEnqueuesEventInTx(t *testing.T) {
	f := newFixture(t)

	a, err := f.uc.SignUp(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, 1, f.tx.calls)
	require.Len(t, f.events.msgs, 1)
	msg := f.events.msgs[0]
	assert.Equal(t, outbox.KindAccountCreated, msg.Kind)
	assert.NotEmpty(t, msg.IdempotencyKey)

	var ev outbox.AccountCreated
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, a.ID, ev.AccountID)
	assert.Equal(t, ProviderLocal, ev.Provider)
}

func TestUsecase_SignUpDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.SignUp(ctx, "ada@example.com", "pw1")
	require.NoError(t, err)

	_, err = f.uc.SignUp(ctx, "ada@example.com", "pw2")
	require.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.events.msgs, 1)

	// email match is exact
	_, err = f.uc.SignUp(ctx, "Ada@example.com", "pw3")
	require.NoError(t, err)
}

func TestUsecase_SignUpRaceLoserGetsEmailTaken(t *testing.T) {
	f := newFixture(t)
	f.accounts.beforeCreate = func(a *account.Account) {
		f.accounts.beforeCreate = nil
		f.accounts.put(&account.Account{Email: a.Email, PasswordHash: "x", Role: account.RoleUser})
	}

	_, err := f.uc.SignUp(context.Background(), "ada@example.com", "pw")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUsecase_LoginDoesNotRevealWhichPartFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.SignUp(ctx, "ada@example.com", "right")
	require.NoError(t, err)
	f.accounts.put(&account.Account{Email: "g@example.com", PasswordHash: account.FederatedCredential, Role: account.RoleUser})

	_, errUnknown := f.uc.Login(ctx, "nobody@example.com", "right")
	_, errWrong := f.uc.Login(ctx, "ada@example.com", "wrong")
	_, errFederated := f.uc.Login(ctx, "g@example.com", account.FederatedCredential)

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.ErrorIs(t, errFederated, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestUsecase_LoginRepoFailure(t *testing.T) {
	f := newFixture(t)
	f.accounts.getErr = errors.New("connection reset")

	_, err := f.uc.Login(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestUsecase_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	pair, err := f.uc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	access, err := f.uc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	sub, err := f.tokens.Validate(access, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sub)

	_, err = f.uc.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrRefreshInvalid)

	_, err = f.uc.Refresh(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrRefreshInvalid)

	f.now = f.now.Add(testRefreshTTL + 1)
	_, err = f.uc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshExpired)
}

func TestUsecase_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	pair, err := f.uc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	a, err := f.uc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)

	_, err = f.uc.Authenticate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)

	ghost, err := f.tokens.Issue("ghost@example.com", auth.KindAccess, testAccessTTL)
	require.NoError(t, err)
	_, err = f.uc.Authenticate(ctx, ghost)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)

	f.now = f.now.Add(testAccessTTL + 1)
	_, err = f.uc.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestUsecase_ListAccountsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = f.uc.ListAccounts(ctx, &account.Account{Role: account.RoleUser})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.uc.ListAccounts(ctx, nil)
	require.ErrorIs(t, err, ErrForbidden)

	list, err := f.uc.ListAccounts(ctx, &account.Account{Role: account.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUsecase_LoginFederatedProvisionsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a1, err := f.uc.LoginFederated(ctx, "g@example.com")
	require.NoError(t, err)
	assert.True(t, a1.IsFederated())
	assert.Equal(t, account.RoleUser, a1.Role)

	_, a2, err := f.uc.LoginFederated(ctx, "g@example.com")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
	require.Len(t, f.events.msgs, 1)

	var ev outbox.AccountCreated
	require.NoError(t, json.Unmarshal(f.events.msgs[0].Data, &ev))
	assert.Equal(t, ProviderGoogle, ev.Provider)
}

func TestUsecase_LoginFederatedRaceReadsWinner(t *testing.T) {
	f := newFixture(t)
	var winner *account.Account
	f.accounts.beforeCreate = func(a *account.Account) {
		f.accounts.beforeCreate = nil
		winner = &account.Account{Email: a.Email, PasswordHash: account.FederatedCredential, Role: account.RoleUser}
		f.accounts.put(winner)
	}

	pair, a, err := f.uc.LoginFederated(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, a.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Empty(t, f.events.msgs)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newIssuer(t *testing.T, secret string, clk *fakeClock) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer(TokenConfig{Secret: []byte(secret), Algorithm: "HS256", Now: clk.Now})
	require.NoError(t, err)
	return iss
}

func TestNewTokenIssuer_Config(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{Algorithm: "HS256"})
	require.ErrorIs(t, err, ErrSigningKeyMissing)

	for _, alg := range []string{"", "none", "RS256", "ES256", "hs256"} {
		_, err := NewTokenIssuer(TokenConfig{Secret: []byte("k"), Algorithm: alg})
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm, alg)
	}

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewTokenIssuer(TokenConfig{Secret: []byte("k"), Algorithm: alg})
		require.NoError(t, err, alg)
	}
}

func TestTokenIssuer_IssueValidate(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newIssuer(t, "secret", clk)

	tok, err := iss.Issue("a@b.com", KindAccess, 15*time.Minute)
	require.NoError(t, err)

	sub, err := iss.Validate(tok, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", sub)

	clk.t = clk.t.Add(14 * time.Minute)
	_, err = iss.Validate(tok, KindAccess)
	require.NoError(t, err)

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = iss.Validate(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_ForeignKeyIsInvalid(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	ours := newIssuer(t, "ours", clk)
	theirs := newIssuer(t, "theirs", clk)

	tok, err := theirs.Issue("a@b.com", KindAccess, time.Hour)
	require.NoError(t, err)
	_, err = ours.Validate(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	// an expired token under a foreign key is still invalid, not expired
	expired, err := theirs.Issue("a@b.com", KindAccess, time.Minute)
	require.NoError(t, err)
	clk.t = clk.t.Add(time.Hour)
	_, err = ours.Validate(expired, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_KindMismatch(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newIssuer(t, "secret", clk)

	refresh, err := iss.Issue("a@b.com", KindRefresh, time.Hour)
	require.NoError(t, err)
	_, err = iss.Validate(refresh, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	access, err := iss.Issue("a@b.com", KindAccess, time.Hour)
	require.NoError(t, err)
	_, err = iss.Validate(access, KindRefresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newIssuer(t, "secret", clk)

	for _, raw := range []string{
		"",
		"garbage",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ4In0.",
	} {
		_, err := iss.Validate(raw, KindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid, raw)
	}
}

func TestTokenIssuer_MissingSubject(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newIssuer(t, "secret", clk)

	tok, err := iss.Issue("", KindAccess, time.Hour)
	require.NoError(t, err)
	_, err = iss.Validate(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsOtherAlgorithm(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newIssuer(t, "secret", clk)

	claims := Claims{Kind: KindAccess, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "a@b.com",
		IssuedAt:  jwt.NewNumericDate(clk.t),
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = iss.Validate(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_MissingExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newIssuer(t, "secret", clk)

	claims := Claims{Kind: KindAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "a@b.com"}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = iss.Validate(tok, KindAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

package auth

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/domain/account"
)

var ErrInvalidRequest = errors.New("invalid request")

type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }
func (e validationError) Unwrap() error { return ErrInvalidRequest }

func invalid(msg string) error { return validationError{msg: msg} }

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email is not a valid address")
	}
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r credentialsRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	switch {
	case r.Password == "":
		return invalid("password is required")
	case len(r.Password) > auth.MaxPasswordBytes:
		return invalid("password must be at most 72 bytes")
	}
	return nil
}

type SignUpRequest = credentialsRequest

// LoginRequest only checks presence. Anything else is decided by Login so
// every bad combination gets the same answer.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Email) == "":
		return invalid("email is required")
	case r.Password == "":
		return invalid("password is required")
	}
	return nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return invalid("refresh_token is required")
	}
	return nil
}

type SignUpResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

func tokenResponse(p TokenPair) TokenResponse {
	return TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

type AccountResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Federated bool      `json:"federated"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountResponse(a *account.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Role:      string(a.Role),
		Federated: a.IsFederated(),
		CreatedAt: a.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/obs"
	"github.com/NordCoder/fintrack/internal/services/auth-api/session"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Finance Tracker API"})
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, r, "auth.signup", err)
		return
	}
	a, err := s.uc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeErr(w, r, "auth.signup", err)
		return
	}
	obs.AuthOutcome("signup", "ok")
	writeJSON(w, http.StatusCreated, SignUpResponse{Message: "Account created", UserID: a.ID})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, r, "auth.login", err)
		return
	}
	pair, err := s.uc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeErr(w, r, "auth.login", err)
		return
	}
	obs.AuthOutcome("login", "ok")
	obs.WithTrace(r.Context(), s.log).Info("auth.login", zap.String("email", req.Email))
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, r, "auth.refresh", err)
		return
	}
	access, err := s.uc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeErr(w, r, "auth.refresh", err)
		return
	}
	obs.AuthOutcome("refresh", "ok")
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: access, TokenType: "bearer"})
}

func (s *Server) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.FromContext(r.Context())
	target, err := s.federation.Begin(r.Context(), sid)
	if err != nil {
		s.writeErr(w, r, "auth.oauth.begin", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.FromContext(r.Context())
	q := r.URL.Query()
	pair, err := s.federation.Complete(r.Context(), sid, Callback{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	})
	if err != nil {
		s.writeErr(w, r, "auth.oauth.callback", err)
		return
	}
	obs.AuthOutcome("oauth_callback", "ok")
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toAccountResponse(AccountFromContext(r.Context())))
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.uc.ListAccounts(r.Context(), AccountFromContext(r.Context()))
	if err != nil {
		s.writeErr(w, r, "auth.admin.list", err)
		return
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// mapErr turns a flow error into the HTTP status, error kind and message sent to the client.
func (s *Server) mapErr(err error) (int, string, string) {
	var verr validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid_request", verr.msg
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request", "malformed request body"
	case errors.Is(err, ErrEmailTaken):
		return http.StatusBadRequest, "email_taken", "This email is already registered"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials", "Invalid credentials"
	case errors.Is(err, ErrStateMismatch):
		return http.StatusBadRequest, "state_mismatch", "OAuth state mismatch"
	case errors.Is(err, ErrAuthorizationDenied):
		return http.StatusBadRequest, "authorization_denied", "Authorization was denied at the provider"
	case errors.Is(err, ErrCodeExchange):
		return http.StatusBadRequest, "code_exchange_failed", "Authorization code was rejected by the provider"
	case errors.Is(err, ErrUserInfoUnavailable):
		return http.StatusBadRequest, "user_info_unavailable", "Failed to retrieve user info"
	case errors.Is(err, ErrProviderUnavailable):
		return http.StatusFailedDependency, "provider_unavailable", "Identity provider is unavailable, try again later"
	case errors.Is(err, ErrRefreshExpired):
		return http.StatusUnauthorized, "refresh_expired", "Refresh token expired"
	case errors.Is(err, ErrRefreshInvalid):
		return http.StatusUnauthorized, "refresh_invalid", "Invalid refresh token"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "Access token expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid", "Could not validate credentials"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden", "This role does not have admin privileges"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, stage string, err error) {
	status, kind, msg := s.mapErr(err)
	obs.AuthOutcome(stage, kind)
	log := obs.WithTrace(r.Context(), s.log)
	if status >= http.StatusInternalServerError {
		log.Error(stage, zap.String("stage", stage), zap.Error(err))
	} else {
		log.Info(stage, zap.String("stage", stage), zap.String("kind", kind))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}

type validator interface{ Validate() error }

func decode(r *http.Request, v validator) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return ErrInvalidRequest
	}
	return v.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

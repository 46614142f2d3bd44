package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/fintrack/internal/obs"
	"github.com/NordCoder/fintrack/internal/services/auth-api/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	log        *zap.Logger
	uc         *Usecase
	federation *Federation
	sessions   *session.Manager
	health     func(context.Context) error
}

type Opts struct {
	Logger   *zap.Logger
	Sessions *session.Manager
	// Health backs GET /healthz; nil means always healthy.
	Health func(context.Context) error
}

func NewServer(uc *Usecase, fed *Federation, o Opts) *Server {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Server{
		log:        o.Logger,
		uc:         uc,
		federation: fed,
		sessions:   o.Sessions,
		health:     o.Health,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.HTTPMetrics(s.log))

	r.Get("/", s.Root)
	r.Get("/healthz", s.Healthz)
	r.Handle("/metrics", obs.MetricsHandler())

	r.Post("/signup", s.SignUp)
	r.Post("/login", s.Login)
	r.Post("/refresh", s.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Get("/auth/google", s.GoogleLogin)
		r.Get("/auth/google/callback", s.GoogleCallback)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.RequireAccount)
		r.Get("/me", s.Me)
		r.With(s.RequireAdmin).Get("/admin/users", s.ListUsers)
	})

	return obs.HTTPHandler(r, "auth-api")
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.Warn("healthz", zap.Error(err))
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

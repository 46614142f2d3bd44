package session

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/fintrack/internal/domain/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

type Opts struct {
	CookieName   string
	CookiePath   string
	CookieSecure bool
	MaxAge       time.Duration
}

// Manager makes sure every request it wraps carries a session id cookie.
// Values live in the session.Store; the cookie only holds the id.
type Manager struct {
	store session.Store
	log   *zap.Logger
	opts  Opts
}

func NewManager(store session.Store, log *zap.Logger, o Opts) *Manager {
	if o.CookieName == "" {
		o.CookieName = "fintrack_session"
	}
	if o.CookiePath == "" {
		o.CookiePath = "/"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, opts: o}
}

func (m *Manager) Store() session.Store { return m.store }

func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := m.sessionID(r)
		if !ok {
			sid = uuid.NewString()
			http.SetCookie(w, m.cookie(sid))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sid)))
	})
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (m *Manager) cookie(sid string) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    sid,
		Path:     m.opts.CookiePath,
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.opts.MaxAge.Seconds()),
	}
}

// FromContext returns the session id stored by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(ctxKey{}).(string)
	return sid, ok && sid != ""
}

// RunPurge deletes expired session values every interval until ctx is done.
func (m *Manager) RunPurge(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.store.PurgeExpired(ctx)
			if err != nil {
				m.log.Warn("session purge", zap.Error(err))
				continue
			}
			if n > 0 {
				m.log.Debug("session purge", zap.Int64("deleted", n))
			}
		}
	}
}

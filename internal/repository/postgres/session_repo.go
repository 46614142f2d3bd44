package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/fintrack/internal/domain/session"
	"github.com/jackc/pgx/v5"
)

var _ session.Store = (*SessionRepo)(nil)

type SessionRepo struct {
	db  *DB
	now func() time.Time
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const (
	qSessionUpsert = `
INSERT INTO http_sessions (id, key, value, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id, key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at;`

	qSessionTake = `
DELETE FROM http_sessions
WHERE id = $1 AND key = $2
RETURNING value, expires_at;`

	qSessionPurge = `
DELETE FROM http_sessions WHERE expires_at <= $1;`
)

func (r *SessionRepo) Set(ctx context.Context, sid, key, value string, ttl time.Duration) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qSessionUpsert, sid, key, value, r.now().Add(ttl)); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (r *SessionRepo) Take(ctx context.Context, sid, key string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.scanValue(r.db.execQueryer(ctx).QueryRow(ctx, qSessionTake, sid, key))
}

func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qSessionPurge, r.now())
	if err != nil {
		return 0, fmt.Errorf("session purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepo) scanValue(row pgx.Row) (string, error) {
	var (
		value     string
		expiresAt time.Time
	)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", session.ErrNotFound
		}
		return "", fmt.Errorf("session scan: %w", err)
	}
	if !r.now().Before(expiresAt) {
		return "", session.ErrNotFound
	}
	return value, nil
}

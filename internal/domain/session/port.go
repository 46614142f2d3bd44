package session

import (
	"context"
	"time"
)

type Store interface {
	Set(ctx context.Context, sid, key, value string, ttl time.Duration) error
	// Take reads and deletes the value in one step, so a value can be
	// consumed at most once.
	Take(ctx context.Context, sid, key string) (string, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

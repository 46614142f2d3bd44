package outbox

import (
	"context"
	"time"
)

type Status string

type Kind int

const (
	KindAccountCreated Kind = 1
)

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

// AccountCreated is the payload of KindAccountCreated.
type AccountCreated struct {
	AccountID int64     `json:"account_id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	At        time.Time `json:"at"`
}

type Repository interface {
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)

package kafka

import (
	"context"

	"github.com/NordCoder/fintrack/internal/domain/outbox"
)

type AccountEventsKafka struct {
	p *Producer
}

func NewAccountEventsKafka(p *Producer) *AccountEventsKafka { return &AccountEventsKafka{p: p} }

func (e *AccountEventsKafka) PublishAccountCreated(ctx context.Context, ev outbox.AccountCreated) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(ev.AccountID), struct {
		Type string `json:"type"`
		outbox.AccountCreated
	}{Type: "account_created", AccountCreated: ev})
}

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/fintrack/internal/domain/outbox"
	"github.com/NordCoder/fintrack/internal/obs/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu      sync.Mutex
	pending []outbox.Message
	marked  []string
	pickErr error
}

func (f *fakeRepo) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data})
	return nil
}

func (f *fakeRepo) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pickErr != nil {
		return nil, f.pickErr
	}
	n := min(batch, len(f.pending))
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return out, nil
}

func (f *fakeRepo) MarkSuccess(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, keys...)
	return nil
}

type fakePublisher struct {
	got  []outbox.AccountCreated
	fail map[string]bool
}

func (p *fakePublisher) PublishAccountCreated(_ context.Context, ev outbox.AccountCreated) error {
	if p.fail[ev.Email] {
		return errors.New("broker down")
	}
	p.got = append(p.got, ev)
	return nil
}

type noWait struct{}

func (noWait) Next(int) time.Duration { return 0 }

func enqueueAccount(t *testing.T, repo *fakeRepo, key, email string) {
	t.Helper()
	data, err := json.Marshal(outbox.AccountCreated{AccountID: 1, Email: email, Provider: "local"})
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), key, outbox.KindAccountCreated, data))
}

func TestRunner_TickPublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{fail: map[string]bool{"bad@example.com": true}}
	enqueueAccount(t, repo, "k1", "a@example.com")
	enqueueAccount(t, repo, "k2", "bad@example.com")
	enqueueAccount(t, repo, "k3", "c@example.com")

	pol := retry.Policy{Attempts: 2, Backoff: noWait{}}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, pol), RunnerConfig{BatchSize: 10})
	r.Tick(context.Background())

	assert.Equal(t, []string{"k1", "k3"}, repo.marked)
	require.Len(t, pub.got, 2)
	assert.Equal(t, "a@example.com", pub.got[0].Email)
}

func TestRunner_UnknownKindIsNotMarked(t *testing.T) {
	repo := &fakeRepo{}
	require.NoError(t, repo.Enqueue(context.Background(), "k1", outbox.Kind(42), []byte(`{}`)))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(&fakePublisher{}, retry.Policy{Backoff: noWait{}}), RunnerConfig{})
	r.Tick(context.Background())

	assert.Empty(t, repo.marked)
}

func TestRunner_PickErrorIsSwallowed(t *testing.T) {
	repo := &fakeRepo{pickErr: errors.New("db gone")}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(&fakePublisher{}, retry.Policy{}), RunnerConfig{})

	assert.NotPanics(t, func() { r.Tick(context.Background()) })
	assert.Empty(t, repo.marked)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(&fakePublisher{}, retry.Policy{}),
		RunnerConfig{Workers: 2, WaitTime: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

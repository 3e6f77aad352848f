package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bebamart/internal/domain"

	"github.com/stretchr/testify/assert"
)

type fakeExpirer struct {
	mu      sync.Mutex
	calls   int
	results []int
	err     error
	ttl     time.Duration
}

func (f *fakeExpirer) ExpireStale(_ context.Context, olderThan time.Duration) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl = olderThan
	var expired []domain.Order
	if f.calls < len(f.results) {
		for i := 0; i < f.results[f.calls]; i++ {
			expired = append(expired, domain.Order{ID: uint(i + 1), BuyerID: 7})
		}
	}
	f.calls++
	return expired, f.err
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestOrderExpirer_SweepsUntilCancelled(t *testing.T) {
	orders := &fakeExpirer{results: []int{0, 2}}
	var hooks sync.WaitGroup
	hooks.Add(1)
	var once sync.Once
	var got []domain.Order
	w := NewOrderExpirer(orders, time.Hour, 5*time.Millisecond, func(_ context.Context, expired []domain.Order) {
		once.Do(func() {
			got = expired
			hooks.Done()
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	hooks.Wait()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.GreaterOrEqual(t, orders.count(), 2)
	assert.Equal(t, time.Hour, orders.ttl)
	assert.Len(t, got, 2)
}

func TestOrderExpirer_ErrorsSkipHook(t *testing.T) {
	orders := &fakeExpirer{results: []int{3}, err: errors.New("db down")}
	called := false
	w := NewOrderExpirer(orders, time.Minute, time.Minute, func(context.Context, []domain.Order) { called = true })

	w.sweep(context.Background())

	assert.Equal(t, 1, orders.count())
	assert.False(t, called)
}

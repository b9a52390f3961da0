package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T) (*Broadcaster, context.CancelFunc) {
	t.Helper()

	b := New(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go b.Start(ctx)
	return b, cancel
}

func receiveOne(t *testing.T, ch <-chan any) any {
	t.Helper()

	select {
	case payload, ok := <-ch:
		require.True(t, ok, "channel closed before delivery")
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b, cancel := newTestBroadcaster(t)
	defer cancel()

	ctx := context.Background()
	first := b.Subscribe(ctx, "book.added")
	second := b.Subscribe(ctx, "book.added")

	b.Publish("book.added", "clean code")

	assert.Equal(t, "clean code", receiveOne(t, first))
	assert.Equal(t, "clean code", receiveOne(t, second))
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	b, cancel := newTestBroadcaster(t)
	defer cancel()

	ctx := context.Background()
	other := b.Subscribe(ctx, "author.updated")
	books := b.Subscribe(ctx, "book.added")

	b.Publish("book.added", "poodr")

	assert.Equal(t, "poodr", receiveOne(t, books))
	select {
	case payload := <-other:
		t.Fatalf("unexpected delivery on unrelated topic: %v", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b, cancel := newTestBroadcaster(t)
	defer cancel()

	b.Publish("book.added", "early")
	// Give the broadcast loop time to process the event with no listeners.
	time.Sleep(50 * time.Millisecond)

	late := b.Subscribe(context.Background(), "book.added")
	b.Publish("book.added", "on time")

	assert.Equal(t, "on time", receiveOne(t, late))
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	b, cancel := newTestBroadcaster(t)
	defer cancel()

	subCtx, subCancel := context.WithCancel(context.Background())
	ch := b.Subscribe(subCtx, "book.added")

	subCancel()

	// The channel closes once the unsubscribe goroutine runs.
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	b := New(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Start(ctx)

	ch := b.Subscribe(context.Background(), "book.added")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, b.Shutdown(shutdownCtx))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after shutdown")
	}

	// Publishing after shutdown is a silent no-op.
	assert.NotPanics(t, func() { b.Publish("book.added", "too late") })
}

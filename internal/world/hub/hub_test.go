package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishAndNext(t *testing.T) {
	h := New[int](Floor)
	c := h.Subscribe()

	h.Publish(42)

	ev, ok := h.Next(context.Background(), c)
	require.True(t, ok)
	require.Equal(t, 42, ev)
}

func TestCapacityClampsToFloor(t *testing.T) {
	h := New[int](1)
	require.Equal(t, Floor, h.Capacity())
}

func TestOverflowIncrementsLostCount(t *testing.T) {
	h := New[int](Floor)
	c := h.Subscribe()

	for i := 0; i < Floor*3; i++ {
		h.Publish(i)
	}

	ev, ok := h.Next(context.Background(), c)
	require.True(t, ok)
	require.Greater(t, c.LostCount, uint64(0))
	require.Equal(t, Floor*3-Floor, ev, "cursor should jump to the oldest still-retained event")
}

func TestNextRespectsContextDeadline(t *testing.T) {
	h := New[int](Floor)
	c := h.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := h.Next(ctx, c)
	require.False(t, ok)
}

func TestCloseUnblocksSubscribersAndMarksCursorClosed(t *testing.T) {
	h := New[int](Floor)
	c := h.Subscribe()

	done := make(chan bool, 1)
	go func() {
		_, ok := h.Next(context.Background(), c)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	h.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock a pending Next")
	}
	require.True(t, c.IsClosed())
}

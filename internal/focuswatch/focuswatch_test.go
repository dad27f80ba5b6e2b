package focuswatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmitDeliversEventToEventsChannel(t *testing.T) {
	f := NewFake()
	f.Emit(Event{Kind: AppChanged, PID: 42, Title: "Foo"})

	select {
	case e := <-f.Events():
		require.Equal(t, AppChanged, e.Kind)
		require.Equal(t, int32(42), e.PID)
		require.Equal(t, "Foo", e.Title)
	case <-time.After(time.Second):
		t.Fatal("expected an emitted event")
	}
}

func TestEmitDoesNotBlockWhenBufferIsFull(t *testing.T) {
	f := NewFake()
	for i := 0; i < 100; i++ {
		f.Emit(Event{Kind: TitleChanged, PID: int32(i)})
	}
	// The fake's buffer is 64 deep; the remaining 36 emits must be dropped
	// rather than block, matching the hint-only contract.
	require.Len(t, f.ch, 64)
}

func TestStopClosesEventsChannel(t *testing.T) {
	f := NewFake()
	f.Stop()

	_, ok := <-f.Events()
	require.False(t, ok)
}

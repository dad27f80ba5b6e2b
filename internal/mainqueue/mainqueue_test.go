package mainqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotki-project/hotki-world/internal/apperr"
)

func TestEnqueueDrainFIFO(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(Op{Kind: OpRaiseWindow, PID: 1}))
	require.NoError(t, q.Enqueue(Op{Kind: OpActivatePID, PID: 2}))
	require.NoError(t, q.Enqueue(Op{Kind: OpFullscreenNonNative, PID: 3}))

	drained := q.Drain()
	require.Len(t, drained, 3)
	require.Equal(t, int32(1), drained[0].PID)
	require.Equal(t, int32(2), drained[1].PID)
	require.Equal(t, int32(3), drained[2].PID)

	require.Nil(t, q.Drain(), "drain of an empty queue returns nil, not an empty slice")
}

func TestEnqueueSignalsWake(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(Op{Kind: OpRaiseWindow}))
	select {
	case <-q.Wake():
	default:
		t.Fatal("expected a wake signal after Enqueue")
	}
}

func TestCloseSetsPoisoned(t *testing.T) {
	q := New()
	q.Close()
	err := q.Enqueue(Op{Kind: OpRaiseWindow})
	require.ErrorIs(t, err, apperr.ErrQueuePoisoned)
}

func TestCompleteDeliversResultAcrossCopies(t *testing.T) {
	result := make(chan error, 1)
	op := Op{Kind: OpPlaceGrid, Result: result}

	boom := errors.New("boom")
	// Complete receives op by value; Result being a channel must still
	// carry the outcome back to the caller's original copy.
	Complete(op, boom)

	select {
	case err := <-result:
		require.Equal(t, boom, err)
	default:
		t.Fatal("expected Complete to deliver a result")
	}
}

func TestCompleteWithNilResultDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		Complete(Op{Kind: OpActivatePID}, nil)
	})
}

func TestLenTracksQueueSize(t *testing.T) {
	q := New()
	require.Equal(t, 0, q.Len())
	require.NoError(t, q.Enqueue(Op{Kind: OpRaiseWindow}))
	require.Equal(t, 1, q.Len())
	q.Drain()
	require.Equal(t, 0, q.Len())
}

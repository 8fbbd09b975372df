package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveResult[T any](t *testing.T, r *Runner[T]) Result[T] {
	t.Helper()
	select {
	case res := <-r.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task result")
		return Result[T]{}
	}
}

func assertNoResult[T any](t *testing.T, r *Runner[T], wait time.Duration) {
	t.Helper()
	select {
	case res := <-r.Results():
		t.Fatalf("expected no result, got %+v", res)
	case <-time.After(wait):
	}
}

func TestRunner_CompletesAndDeliversOnce(t *testing.T) {
	r := NewRunner[int]("test")
	assert.Equal(t, StateIdle, r.State())

	r.Start(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	res := receiveResult(t, r)
	require.NoError(t, res.Err)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, StateCompleted, r.State())

	assertNoResult(t, r, 50*time.Millisecond)
}

func TestRunner_ErrorMarksFailed(t *testing.T) {
	r := NewRunner[string]("test")
	wantErr := errors.New("scan failed")

	r.Start(context.Background(), func(ctx context.Context) (string, error) {
		return "", wantErr
	})

	res := receiveResult(t, r)
	assert.ErrorIs(t, res.Err, wantErr)
	assert.Equal(t, StateFailed, r.State())
}

func TestRunner_PanicRecoveredAsFailure(t *testing.T) {
	r := NewRunner[int]("test")

	r.Start(context.Background(), func(ctx context.Context) (int, error) {
		panic("boom")
	})

	res := receiveResult(t, r)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.Equal(t, StateFailed, r.State())
}

func TestRunner_SecondStartSupersedesFirst(t *testing.T) {
	r := NewRunner[string]("test")

	firstStarted := make(chan struct{})
	release := make(chan struct{})

	r.Start(context.Background(), func(ctx context.Context) (string, error) {
		close(firstStarted)
		<-release
		return "first", nil
	})
	<-firstStarted

	r.Start(context.Background(), func(ctx context.Context) (string, error) {
		return "second", nil
	})

	res := receiveResult(t, r)
	require.NoError(t, res.Err)
	assert.Equal(t, "second", res.Value)

	// The first task finishes late; its result must be dropped.
	close(release)
	assertNoResult(t, r, 100*time.Millisecond)
}

func TestRunner_SupersededTaskSeesCancellation(t *testing.T) {
	r := NewRunner[int]("test")

	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})

	r.Start(context.Background(), func(ctx context.Context) (int, error) {
		close(firstStarted)
		<-ctx.Done()
		close(firstCancelled)
		return 0, ctx.Err()
	})
	<-firstStarted

	r.Start(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})

	select {
	case <-firstCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("superseded task never saw cancellation")
	}

	res := receiveResult(t, r)
	require.NoError(t, res.Err)
	assert.Equal(t, 7, res.Value)
}

func TestRunner_CancelDeliversNothing(t *testing.T) {
	r := NewRunner[int]("test")

	started := make(chan struct{})
	r.Start(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started

	r.Cancel()
	assert.Equal(t, StateCancelled, r.State())
	assertNoResult(t, r, 100*time.Millisecond)
}

func TestRunner_CancelWhenIdleIsNoop(t *testing.T) {
	r := NewRunner[int]("test")
	r.Cancel()
	assert.Equal(t, StateIdle, r.State())
}

func TestRunner_UndeliveredResultDroppedOnRestart(t *testing.T) {
	r := NewRunner[string]("test")

	r.Start(context.Background(), func(ctx context.Context) (string, error) {
		return "stale", nil
	})
	// Let the first result land in the channel without consuming it.
	require.Eventually(t, func() bool {
		return r.State() == StateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	r.Start(context.Background(), func(ctx context.Context) (string, error) {
		return "fresh", nil
	})

	res := receiveResult(t, r)
	require.NoError(t, res.Err)
	assert.Equal(t, "fresh", res.Value)
}

func TestRunner_ReusableAfterCompletion(t *testing.T) {
	r := NewRunner[int]("test")

	for i := 1; i <= 3; i++ {
		r.Start(context.Background(), func(ctx context.Context) (int, error) {
			return i * 10, nil
		})
		res := receiveResult(t, r)
		require.NoError(t, res.Err)
		assert.Equal(t, i*10, res.Value)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "unknown", State(99).String())
}

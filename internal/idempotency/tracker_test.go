package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/operation"
)

var runInstances = operation.Descriptor{
	Name:           "RunInstances",
	Mutating:       true,
	Idempotent:     true,
	IdempotencyTTL: time.Minute,
}

type launchRequest struct {
	ImageID string
	Count   int
}

func counting(calls *atomic.Int32, res any, err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return res, err
	}
}

func TestExecute_SecondCallReturnsCachedResult(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	var calls atomic.Int32
	req := launchRequest{ImageID: "img-1", Count: 1}
	result := &struct{ ID string }{ID: "i-123"}

	first, src1, err := tr.Execute(context.Background(), runInstances, "tok", req, counting(&calls, result, nil))
	require.NoError(t, err)
	second, src2, err := tr.Execute(context.Background(), runInstances, "tok", req, counting(&calls, "other", nil))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, result, first)
	assert.Same(t, result, second)
	assert.Equal(t, Executed, src1)
	assert.Equal(t, Cached, src2)

	state, ok := tr.Lookup("RunInstances", "tok")
	require.True(t, ok)
	assert.Equal(t, Completed, state)
}

func TestExecute_ConcurrentCallersShareOneCall(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "i-1", nil
	}

	const callers = 8
	results := make([]any, callers)
	sources := make([]Source, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, src, err := tr.Execute(context.Background(), runInstances, "tok", launchRequest{ImageID: "img"}, fn)
			assert.NoError(t, err)
			results[i], sources[i] = res, src
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	executed := 0
	for i := range callers {
		assert.Equal(t, "i-1", results[i])
		if sources[i] == Executed {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
}

func TestExecute_TransientFailureIsNotCached(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	var calls atomic.Int32
	transient := apierr.New(apierr.KindServerFault, "RunInstances", "try again")

	_, _, err := tr.Execute(context.Background(), runInstances, "tok", 1, counting(&calls, nil, transient))
	require.ErrorIs(t, err, apierr.ErrServerFault)
	_, ok := tr.Lookup("RunInstances", "tok")
	assert.False(t, ok)

	res, src, err := tr.Execute(context.Background(), runInstances, "tok", 1, counting(&calls, "ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Executed, src)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecute_PermanentFailureIsCached(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	var calls atomic.Int32
	invalid := apierr.New(apierr.KindValidation, "RunInstances", "bad image")

	_, _, err1 := tr.Execute(context.Background(), runInstances, "tok", 1, counting(&calls, nil, invalid))
	_, src, err2 := tr.Execute(context.Background(), runInstances, "tok", 1, counting(&calls, "ok", nil))

	assert.Same(t, invalid, err1)
	assert.Same(t, invalid, err2)
	assert.Equal(t, Cached, src)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_TokenReuseWithDifferentPayload(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	var calls atomic.Int32

	_, _, err := tr.Execute(context.Background(), runInstances, "tok", launchRequest{ImageID: "a"}, counting(&calls, "ok", nil))
	require.NoError(t, err)
	_, _, err = tr.Execute(context.Background(), runInstances, "tok", launchRequest{ImageID: "b"}, counting(&calls, "ok", nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenReuse)
	assert.True(t, apierr.IsKind(err, apierr.KindMisuse))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_Expiry(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewTracker(WithClock(clk), WithTombstoneTTL(time.Hour))
	var calls atomic.Int32
	req := launchRequest{ImageID: "a"}

	_, _, err := tr.Execute(context.Background(), runInstances, "tok", req, counting(&calls, "first", nil))
	require.NoError(t, err)

	clk.Step(30 * time.Second)
	res, src, err := tr.Execute(context.Background(), runInstances, "tok", req, counting(&calls, "second", nil))
	require.NoError(t, err)
	assert.Equal(t, "first", res)
	assert.Equal(t, Cached, src)

	clk.Step(time.Minute)
	_, _, err = tr.Execute(context.Background(), runInstances, "tok", launchRequest{ImageID: "b"}, counting(&calls, "x", nil))
	assert.ErrorIs(t, err, ErrTokenReuse, "tombstone must reject a different payload after expiry")

	res, src, err = tr.Execute(context.Background(), runInstances, "tok", req, counting(&calls, "third", nil))
	require.NoError(t, err)
	assert.Equal(t, "third", res)
	assert.Equal(t, Executed, src)

	clk.Step(3 * time.Hour)
	assert.Equal(t, 1, tr.Sweep())
	assert.Zero(t, tr.Len())
	_, _, err = tr.Execute(context.Background(), runInstances, "tok", launchRequest{ImageID: "b"}, counting(&calls, "x", nil))
	assert.NoError(t, err, "tombstones expire too")
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecute_Bypassed(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tests := []struct {
		name  string
		desc  operation.Descriptor
		token string
	}{
		{"no token", runInstances, ""},
		{"not idempotent", operation.Descriptor{Name: "CreateKeyPair", Mutating: true}, "tok"},
		{"read only", operation.Descriptor{Name: "DescribeImages"}, "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			for range 2 {
				_, src, err := tr.Execute(context.Background(), tt.desc, tt.token, 1, counting(&calls, "ok", nil))
				require.NoError(t, err)
				assert.Equal(t, Bypassed, src)
			}
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestExecute_WaiterCancellation(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	go func() {
		_, _, _ = tr.Execute(context.Background(), runInstances, "tok", 1, func(context.Context) (any, error) {
			close(started)
			<-release
			return "ok", nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := tr.Execute(ctx, runInstances, "tok", 1, func(context.Context) (any, error) {
		t.Error("second caller must not run the operation")
		return nil, nil
	})
	assert.True(t, apierr.IsKind(err, apierr.KindCancelled))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	state, ok := tr.Lookup("RunInstances", "tok")
	require.True(t, ok)
	assert.Equal(t, InFlight, state)
}

func TestExecute_PanicReleasesRecord(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	assert.Panics(t, func() {
		_, _, _ = tr.Execute(context.Background(), runInstances, "tok", 1, func(context.Context) (any, error) {
			panic("boom")
		})
	})
	assert.Zero(t, tr.Len())
}

func TestExecute_UnencodablePayload(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	_, _, err := tr.Execute(context.Background(), runInstances, "tok", make(chan int), func(context.Context) (any, error) {
		return nil, errors.New("unreachable")
	})
	assert.True(t, apierr.IsKind(err, apierr.KindSerialization))
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Now())
	tr := NewTracker(WithClock(clk))
	_, _, err := tr.Execute(context.Background(), runInstances, "tok", 1, func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	clk.Step(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tr.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	a, err := Fingerprint(launchRequest{ImageID: "a", Count: 1})
	require.NoError(t, err)
	b, err := Fingerprint(launchRequest{ImageID: "a", Count: 1})
	require.NoError(t, err)
	c, err := Fingerprint(launchRequest{ImageID: "a", Count: 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

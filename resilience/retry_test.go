package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep records requested durations without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) backoffs(pacing time.Duration) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	for _, d := range r.delays {
		if d != pacing {
			out = append(out, d)
		}
	}
	return out
}

func testPolicy(rec *recordingSleep) Policy {
	p := DefaultPolicy()
	p.Sleep = rec.Sleep
	return p
}

func TestDo_Success(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0

	got, err := Do(context.Background(), testPolicy(rec), "embed", func(ctx context.Context) (string, error) {
		attempts++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, attempts, "should succeed on first try")
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.delays, "should pace before the attempt")
}

func TestDo_EventualSuccess(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0

	got, err := Do(context.Background(), testPolicy(rec), "embed", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("temporary error")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, rec.backoffs(500*time.Millisecond), "generic failures do not back off")
}

func TestDo_AllAttemptsFail(t *testing.T) {
	rec := &recordingSleep{}
	expectedErr := errors.New("persistent error")
	attempts := 0

	_, err := Do(context.Background(), testPolicy(rec), "generate", func(ctx context.Context) (string, error) {
		attempts++
		return "", expectedErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestDo_RateLimitBackoff(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0

	_, err := Do(context.Background(), testPolicy(rec), "generate", func(ctx context.Context) (string, error) {
		attempts++
		return "", Tag("chat", "generate", RateLimited, errors.New("429 Too Many Requests"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, RateLimited, KindOf(err))
	assert.Equal(t, 3, attempts)

	// Backoff grows linearly and also runs after the final attempt.
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second},
		rec.backoffs(500*time.Millisecond))
}

func TestDo_RateLimitBackoffIsMonotonic(t *testing.T) {
	rec := &recordingSleep{}
	p := testPolicy(rec)
	p.MaxAttempts = 6

	_, _ = Do(context.Background(), p, "query", func(ctx context.Context) (int, error) {
		return 0, Tag("vector_index", "query", RateLimited, errors.New("rate limit"))
	})

	backoffs := rec.backoffs(p.Pacing)
	require.Len(t, backoffs, 6)
	for i := 1; i < len(backoffs); i++ {
		assert.Greater(t, backoffs[i], backoffs[i-1])
		assert.Equal(t, time.Duration(i+1)*p.BackoffUnit, backoffs[i])
	}
}

func TestDo_AuthFailureNotRetried(t *testing.T) {
	rec := &recordingSleep{}
	attempts := 0
	authErr := Tag("embedding", "embed", AuthFailure, errors.New("401 unauthorized"))

	_, err := Do(context.Background(), testPolicy(rec), "embed", func(ctx context.Context) ([]float32, error) {
		attempts++
		return nil, authErr
	})
	require.Error(t, err)
	assert.Equal(t, authErr, err)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recordingSleep{}
	attempts := 0

	_, err := Do(ctx, testPolicy(rec), "embed", func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return 0, errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts, "should stop when context is canceled")
}

func TestDo_ContextTimeoutDuringSleep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := DefaultPolicy()
	p.Pacing = time.Millisecond
	p.BackoffUnit = time.Hour
	attempts := 0

	start := time.Now()
	_, err := Do(ctx, p, "generate", func(ctx context.Context) (int, error) {
		attempts++
		return 0, Tag("chat", "generate", RateLimited, errors.New("429"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second, "backoff sleep should observe cancellation")
}

func TestDo_ZeroMaxAttempts(t *testing.T) {
	attempts := 0
	p := DefaultPolicy()
	p.MaxAttempts = 0

	_, err := Do(context.Background(), p, "embed", func(ctx context.Context) (int, error) {
		attempts++
		return 0, nil
	})
	require.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Equal(t, 0, attempts, "should not attempt with MaxAttempts=0")
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))
	require.NoError(t, SleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

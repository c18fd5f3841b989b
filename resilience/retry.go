// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy controls how Do paces and retries an operation.
type Policy struct {
	// MaxAttempts is the number of times the operation is tried (must be > 0).
	MaxAttempts int

	// Pacing is slept before every attempt, including the first.
	Pacing time.Duration

	// BackoffUnit is multiplied by the attempt number after a rate-limited attempt.
	BackoffUnit time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger receives retry diagnostics. Nil uses the default logger.
	Logger *slog.Logger
}

// DefaultPolicy returns the policy applied to every external call:
// three attempts, 500ms pacing, 10s backoff unit.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Pacing:      500 * time.Millisecond,
		BackoffUnit: 10 * time.Second,
	}
}

// Validate checks that the policy can run at least one attempt.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.Pacing < 0 || p.BackoffUnit < 0 {
		return fmt.Errorf("resilience policy: durations cannot be negative")
	}
	return nil
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default().With("component", "resilience")
}

// Do runs fn under the policy and returns its first successful result.
//
// Before every attempt Do sleeps Pacing. A RateLimited failure sleeps
// attempt*BackoffUnit before the next attempt, and also after the final
// one. An AuthFailure is returned immediately. Any other failure is logged
// and retried. When every attempt fails the result wraps ErrRetriesExhausted
// and the last error. Context cancellation aborts and returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}
	logger := p.logger()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.sleep(ctx, p.Pacing); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "op", op, "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		switch KindOf(err) {
		case AuthFailure:
			logger.Error("authentication failed, not retrying", "op", op, "attempt", attempt, "err", err)
			return zero, err
		case RateLimited:
			delay := time.Duration(attempt) * p.BackoffUnit
			logger.Warn("rate limited, backing off", "op", op, "attempt", attempt, "delay", delay)
			if err := p.sleep(ctx, delay); err != nil {
				return zero, err
			}
		default:
			logger.Warn("operation failed", "op", op, "attempt", attempt, "maxAttempts", p.MaxAttempts, "err", err)
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

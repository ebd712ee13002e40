package ai

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// SleepFunc pauses for d or returns early when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how often a retryable backend failure is attempted again.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       SleepFunc
}

// DefaultRetryPolicy returns three attempts spaced one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay, Sleep: ContextSleep}
}

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Sleep == nil {
		p.Sleep = ContextSleep
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. It reports the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, retry func(error) bool, fn func(attempt int) error) (int, error) {
	p = p.normalized()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !retry(err) || attempt == p.MaxAttempts {
			return attempt, err
		}
		if sleepErr := p.Sleep(ctx, p.Delay); sleepErr != nil {
			return attempt, sleepErr
		}
	}
	return p.MaxAttempts, err
}

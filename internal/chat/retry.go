package chat

import (
	"context"
	"time"
)

// RetryPolicy bounds the attempts of one Ask call
type RetryPolicy struct {
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number before the next try
	BaseDelay time.Duration
	// RetryOn lists the failure classes worth another attempt
	RetryOn []FailureClass
}

// DefaultRetryPolicy makes three attempts, waiting 1s then 2s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		RetryOn:     []FailureClass{ClassTransient},
	}
}

// Delay returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

// ShouldRetry reports whether a failure of this class gets another attempt
func (p RetryPolicy) ShouldRetry(class FailureClass) bool {
	for _, c := range p.RetryOn {
		if c == class {
			return true
		}
	}
	return false
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package retry runs calls to flaky collaborators under a bounded
// exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop. MaxRetries of zero runs the call exactly once.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsed:      20 * time.Second,
	}
}

// Permanent stops the retry loop and returns err as is.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, the policy is
// exhausted or ctx is done. notify, if set, sees every failed attempt that
// will be retried.
func Do(ctx context.Context, p Policy, op func() error, notify func(err error, next time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	b.MaxElapsedTime = p.MaxElapsed

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
	return backoff.RetryNotify(op, policy, notify)
}

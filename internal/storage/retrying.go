package storage

import (
	"context"
	"time"

	"talknote-go/internal/failure"
	"talknote-go/internal/logger"
	"talknote-go/internal/retry"
)

// Retrying repeats failed calls of an ObjectStore under a retry policy.
// Validation and not-found failures are returned at once.
type Retrying struct {
	next   ObjectStore
	policy retry.Policy
	log    *logger.Logger
}

func NewRetrying(next ObjectStore, policy retry.Policy, log *logger.Logger) *Retrying {
	if log == nil {
		log = logger.Nop()
	}
	return &Retrying{next: next, policy: policy, log: log.Component("storage")}
}

func (r *Retrying) Upload(ctx context.Context, u Upload) (Object, error) {
	var obj Object
	err := r.do(ctx, "upload", func() error {
		var err error
		obj, err = r.next.Upload(ctx, u)
		return err
	})
	return obj, err
}

func (r *Retrying) Fetch(ctx context.Context, publicID string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "fetch", func() error {
		var err error
		data, err = r.next.Fetch(ctx, publicID)
		return err
	})
	return data, err
}

func (r *Retrying) Delete(ctx context.Context, publicID string) error {
	return r.do(ctx, "delete", func() error {
		return r.next.Delete(ctx, publicID)
	})
}

func (r *Retrying) do(ctx context.Context, op string, call func() error) error {
	return retry.Do(ctx, r.policy, func() error {
		err := call()
		if err != nil && (failure.Is(err, failure.Validation) || failure.Is(err, failure.NotFound)) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, next time.Duration) {
		r.log.WithField("op", op).WithField("retry_in", next.String()).WithError(err).Warn("storage call failed, retrying")
	})
}

var _ ObjectStore = (*Retrying)(nil)

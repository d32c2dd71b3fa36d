package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// pollError marks a failure of the polling loop itself, as opposed to a
// job the backend reported as failed.
type pollError struct {
	err error
}

func (e *pollError) Error() string { return "poll operation: " + e.err.Error() }
func (e *pollError) Unwrap() error { return e.err }

// longRunning submits the job and waits for it under a ceiling measured from
// submission. If polling breaks, it falls back once to a blocking wait
// bounded by the same deadline.
func (c *Client) longRunning(ctx context.Context, req Request, rc RecognitionConfig, log *logrus.Entry) ([]Segment, error) {
	submitted := c.clock.Now()
	deadline := submitted.Add(c.cfg.Ceiling)

	op, err := c.backend.SubmitLongRunning(ctx, req.Audio, rc)
	if err != nil {
		return nil, fmt.Errorf("submit long-running recognition: %w", err)
	}
	log = log.WithField("operation", op.Name())
	log.Info("long-running operation started")

	segments, err := c.poll(ctx, op, submitted, deadline, req.OnProgress, log)
	var pe *pollError
	if !errors.As(err, &pe) {
		return segments, err
	}

	log.WithField("error", pe.err.Error()).Warn("polling failed, falling back to blocking wait")
	c.metrics.RecordFallback()
	return c.wait(ctx, op, deadline)
}

func (c *Client) poll(ctx context.Context, op Operation, submitted, deadline time.Time,
	onProgress func(int, time.Duration), log *logrus.Entry) ([]Segment, error) {
	lastProgress := 0
	for {
		now := c.clock.Now()
		if !now.Before(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Ceiling)
		}

		st, err := op.Poll(ctx)
		c.metrics.RecordPoll()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &pollError{err: err}
		}
		if st.Done {
			if st.Err != nil {
				return nil, fmt.Errorf("%w: %v", ErrOperationFailed, st.Err)
			}
			return st.Segments, nil
		}

		elapsed := now.Sub(submitted)
		if st.HasProgress && st.ProgressPercent > lastProgress {
			lastProgress = st.ProgressPercent
			log.WithFields(logrus.Fields{
				"progress_percent": lastProgress,
				"elapsed_s":        int(elapsed.Seconds()),
			}).Info("long-running recognition progress")
			if onProgress != nil {
				onProgress(lastProgress, elapsed)
			}
		} else {
			log.WithField("elapsed_s", int(elapsed.Seconds())).Debug("long-running recognition processing")
		}

		sleep := c.cfg.PollInterval
		if remaining := deadline.Sub(now); remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(sleep):
		}
	}
}

func (c *Client) wait(ctx context.Context, op Operation, deadline time.Time) ([]Segment, error) {
	remaining := deadline.Sub(c.clock.Now())
	if remaining <= 0 {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Ceiling)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		segments []Segment
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		segments, err := op.Wait(waitCtx)
		done <- outcome{segments, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", ErrOperationFailed, o.err)
		}
		return o.segments, nil
	case <-c.clock.After(remaining):
		return nil, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Ceiling)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

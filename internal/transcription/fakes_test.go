package transcription

import (
	"context"
	"sync"
	"time"
)

// fakeClock advances its time by d on every After call and fires at once,
// unless hold is set, in which case After never fires.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	hold  bool
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, d)
	if f.hold {
		return make(chan time.Time)
	}
	f.now = f.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- f.now
	return ch
}

type pollStep struct {
	status OperationStatus
	err    error
}

type fakeOperation struct {
	mu    sync.Mutex
	steps []pollStep
	polls int

	waitSegments []Segment
	waitErr      error
	waitBlocks   bool
	waitCalls    int
}

func (o *fakeOperation) Name() string { return "operations/fake-1" }

// Poll replays steps in order and repeats the last one forever.
func (o *fakeOperation) Poll(context.Context) (OperationStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.polls
	o.polls++
	if i >= len(o.steps) {
		i = len(o.steps) - 1
	}
	return o.steps[i].status, o.steps[i].err
}

func (o *fakeOperation) Wait(ctx context.Context) ([]Segment, error) {
	o.mu.Lock()
	o.waitCalls++
	blocks := o.waitBlocks
	o.mu.Unlock()
	if blocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return o.waitSegments, o.waitErr
}

type fakeBackend struct {
	mu             sync.Mutex
	segments       []Segment
	err            error
	submitErr      error
	op             *fakeOperation
	recognizeCalls int
	submitCalls    int
	lastConfig     RecognitionConfig
}

func (b *fakeBackend) Recognize(_ context.Context, _ []byte, cfg RecognitionConfig) ([]Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recognizeCalls++
	b.lastConfig = cfg
	return b.segments, b.err
}

func (b *fakeBackend) SubmitLongRunning(_ context.Context, _ []byte, cfg RecognitionConfig) (Operation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitCalls++
	b.lastConfig = cfg
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return b.op, nil
}

func running(progress int) pollStep {
	return pollStep{status: OperationStatus{HasProgress: progress >= 0, ProgressPercent: progress}}
}

func finished(segments ...Segment) pollStep {
	return pollStep{status: OperationStatus{Done: true, Segments: segments}}
}

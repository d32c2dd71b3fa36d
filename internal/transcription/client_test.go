package transcription

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"talknote-go/internal/encoding"
	"talknote-go/internal/logger"
)

func newTestClient(t *testing.T, backend Backend, clock Clock) *Client {
	t.Helper()
	c, err := NewClient(backend, Config{}, WithClock(clock), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func halfMegabyte() []byte { return make([]byte, 512*1024) }
func twoMegabytes() []byte { return make([]byte, 2*1024*1024) }

func TestSyncPathConcatenatesResults(t *testing.T) {
	backend := &fakeBackend{segments: []Segment{
		{Transcript: "Buy milk.", Confidence: 0.92},
		{Transcript: "Call the bank.", Confidence: 0.71},
	}}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: halfMegabyte(), Locator: "memo.mp3"})

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Mode != ModeSync {
		t.Fatalf("mode = %s, want sync", res.Mode)
	}
	if res.Transcript != "Buy milk.\nCall the bank." {
		t.Fatalf("transcript = %q", res.Transcript)
	}
	if res.Confidence == nil || *res.Confidence < 0.919 || *res.Confidence > 0.921 {
		t.Fatalf("confidence = %v, want first alternative's 0.92", res.Confidence)
	}
	if res.WordCount != 5 {
		t.Fatalf("word count = %d", res.WordCount)
	}
	if backend.recognizeCalls != 1 || backend.submitCalls != 0 {
		t.Fatalf("calls: recognize=%d submit=%d", backend.recognizeCalls, backend.submitCalls)
	}
	if backend.lastConfig.Encoding != encoding.MP3 || backend.lastConfig.LanguageCode != "en-US" {
		t.Fatalf("unexpected config %+v", backend.lastConfig)
	}
	if !backend.lastConfig.EnableAutomaticPunctuation {
		t.Fatal("automatic punctuation should be on")
	}
}

func TestSyncPathNoSpeechIsNotATransportFailure(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: halfMegabyte(), Locator: "memo.mp3"})

	if res.Success {
		t.Fatal("expected success=false")
	}
	if !errors.Is(res.Err, ErrNoSpeech) {
		t.Fatalf("Err = %v, want ErrNoSpeech", res.Err)
	}
	if res.Error != "no speech detected in audio" {
		t.Fatalf("Error = %q", res.Error)
	}
}

func TestSyncPathBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("rpc error: code = InvalidArgument desc = bad encoding")}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: halfMegabyte(), Locator: "memo.mp3"})

	if res.Success || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Error, "bad encoding") {
		t.Fatalf("backend message lost: %q", res.Error)
	}
}

func TestEmptyAudio(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Locator: "memo.mp3"})
	if !errors.Is(res.Err, ErrEmptyAudio) {
		t.Fatalf("Err = %v", res.Err)
	}
	if backend.recognizeCalls+backend.submitCalls != 0 {
		t.Fatal("backend must not be called for empty audio")
	}
}

func TestLargeFileAlwaysLongRunning(t *testing.T) {
	for _, loc := range []string{"a.wav", "a.mp3", "a.ogg", "a.webm", "a.bin"} {
		op := &fakeOperation{steps: []pollStep{finished(Segment{Transcript: "ok"})}}
		backend := &fakeBackend{op: op}
		c := newTestClient(t, backend, newFakeClock())

		res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: loc})
		if res.Mode != ModeLongRunning {
			t.Errorf("%s: mode = %s", loc, res.Mode)
		}
		if backend.submitCalls != 1 || backend.recognizeCalls != 0 {
			t.Errorf("%s: recognize=%d submit=%d", loc, backend.recognizeCalls, backend.submitCalls)
		}
		if backend.lastConfig.MaxAlternatives != 1 {
			t.Errorf("%s: long-running request should ask for one alternative", loc)
		}
	}
}

func TestLongRunningSucceedsOnThirdPoll(t *testing.T) {
	op := &fakeOperation{steps: []pollStep{
		running(10),
		running(45),
		finished(
			Segment{Transcript: "First part.", Confidence: 0.8},
			Segment{Transcript: "Second part."},
			Segment{Transcript: "Third part."},
		),
	}}
	clock := newFakeClock()
	c := newTestClient(t, &fakeBackend{op: op}, clock)

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})

	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Transcript != "First part.\nSecond part.\nThird part." {
		t.Fatalf("transcript = %q", res.Transcript)
	}
	if op.polls != 3 {
		t.Fatalf("polls = %d, want 3", op.polls)
	}
	if !slices.Equal(clock.waits, []time.Duration{10 * time.Second, 10 * time.Second}) {
		t.Fatalf("waits = %v", clock.waits)
	}
	if res.ProcessingTimeSeconds != 20 {
		t.Fatalf("processing time = %v, want 20", res.ProcessingTimeSeconds)
	}
	if op.waitCalls != 0 {
		t.Fatal("fallback wait must not run on a clean poll")
	}
}

func TestLongRunningBackendFailure(t *testing.T) {
	op := &fakeOperation{steps: []pollStep{
		running(20),
		{status: OperationStatus{Done: true, Err: errors.New("audio channel count mismatch")}},
	}}
	c := newTestClient(t, &fakeBackend{op: op}, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})

	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrOperationFailed) {
		t.Fatalf("Err = %v, want ErrOperationFailed", res.Err)
	}
	if errors.Is(res.Err, ErrTimeout) {
		t.Fatal("backend failure must be distinct from timeout")
	}
	if !strings.Contains(res.Error, "audio channel count mismatch") {
		t.Fatalf("backend message lost: %q", res.Error)
	}
	if op.waitCalls != 0 {
		t.Fatal("backend-reported failure must not trigger the fallback wait")
	}
}

func TestLongRunningTimesOutAtCeiling(t *testing.T) {
	op := &fakeOperation{steps: []pollStep{running(-1)}}
	clock := newFakeClock()
	c := newTestClient(t, &fakeBackend{op: op}, clock)

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}
	if errors.Is(res.Err, ErrOperationFailed) {
		t.Fatal("timeout must be distinct from a backend failure")
	}
	if op.polls != 180 {
		t.Fatalf("polls = %d, want 180 (30m / 10s)", op.polls)
	}
	if res.ProcessingTimeSeconds != (30 * time.Minute).Seconds() {
		t.Fatalf("processing time = %v", res.ProcessingTimeSeconds)
	}
}

func TestPollErrorFallsBackToWait(t *testing.T) {
	op := &fakeOperation{
		steps:        []pollStep{{err: errors.New("connection reset by peer")}},
		waitSegments: []Segment{{Transcript: "recovered"}},
	}
	clock := newFakeClock()
	clock.hold = true
	c := newTestClient(t, &fakeBackend{op: op}, clock)

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})

	if !res.Success || res.Transcript != "recovered" {
		t.Fatalf("expected fallback success, got %+v", res)
	}
	if op.waitCalls != 1 {
		t.Fatalf("wait calls = %d, want 1", op.waitCalls)
	}
	if len(clock.waits) != 1 || clock.waits[0] != 30*time.Minute {
		t.Fatalf("fallback should be bounded by the remaining ceiling, waits = %v", clock.waits)
	}
}

func TestFallbackWaitTimesOut(t *testing.T) {
	op := &fakeOperation{
		steps:      []pollStep{{err: errors.New("unavailable")}},
		waitBlocks: true,
	}
	c := newTestClient(t, &fakeBackend{op: op}, newFakeClock())

	done := make(chan Result, 1)
	go func() {
		done <- c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})
	}()

	select {
	case res := <-done:
		if !errors.Is(res.Err, ErrTimeout) {
			t.Fatalf("Err = %v, want ErrTimeout", res.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fallback wait hung")
	}
}

func TestFallbackWaitFailure(t *testing.T) {
	op := &fakeOperation{
		steps:   []pollStep{{err: errors.New("unavailable")}},
		waitErr: errors.New("internal error"),
	}
	clock := newFakeClock()
	clock.hold = true
	c := newTestClient(t, &fakeBackend{op: op}, clock)

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})
	if !errors.Is(res.Err, ErrOperationFailed) || !strings.Contains(res.Error, "internal error") {
		t.Fatalf("Err = %v", res.Err)
	}
}

func TestSubmitFailure(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("quota exhausted")}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})
	if res.Success || !strings.Contains(res.Error, "quota exhausted") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProgressIsReportedMonotonically(t *testing.T) {
	op := &fakeOperation{steps: []pollStep{
		running(10),
		running(10),
		running(5),
		running(-1),
		running(30),
		running(75),
		finished(Segment{Transcript: "done"}),
	}}
	c := newTestClient(t, &fakeBackend{op: op}, newFakeClock())

	var reported []int
	res := c.Transcribe(context.Background(), Request{
		Audio:      twoMegabytes(),
		Locator:    "long.wav",
		OnProgress: func(p int, _ time.Duration) { reported = append(reported, p) },
	})
	if !res.Success {
		t.Fatalf("unexpected failure %q", res.Error)
	}
	if !slices.Equal(reported, []int{10, 30, 75}) {
		t.Fatalf("progress = %v, want [10 30 75]", reported)
	}
}

func TestLongRunningNoSpeech(t *testing.T) {
	op := &fakeOperation{steps: []pollStep{finished()}}
	c := newTestClient(t, &fakeBackend{op: op}, newFakeClock())

	res := c.Transcribe(context.Background(), Request{Audio: twoMegabytes(), Locator: "long.wav"})
	if !errors.Is(res.Err, ErrNoSpeech) {
		t.Fatalf("Err = %v, want ErrNoSpeech", res.Err)
	}
}

func TestOverrides(t *testing.T) {
	backend := &fakeBackend{segments: []Segment{{Transcript: "hola"}}}
	c := newTestClient(t, backend, newFakeClock())

	res := c.Transcribe(context.Background(), Request{
		Audio:    twoMegabytes(),
		Locator:  "memo.mp3",
		Language: "es-ES",
		Overrides: &Overrides{
			Encoding:        encoding.OggOpus,
			Model:           "default",
			SampleRateHertz: 48000,
			Mode:            ModeSync,
		},
	})
	if !res.Success || res.Mode != ModeSync {
		t.Fatalf("mode override ignored: %+v", res)
	}
	got := backend.lastConfig
	if got.Encoding != encoding.OggOpus || got.LanguageCode != "es-ES" || got.Model != "default" || got.SampleRateHertz != 48000 {
		t.Fatalf("overrides not applied: %+v", got)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(nil, Config{}); err == nil {
		t.Fatal("nil backend accepted")
	}
	_, err := NewClient(&fakeBackend{}, Config{PollInterval: time.Minute, Ceiling: time.Second})
	if err == nil {
		t.Fatal("ceiling shorter than poll interval accepted")
	}
}

func TestMockBackend(t *testing.T) {
	c := newTestClient(t, MockBackend{Transcript: "hello there"}, newFakeClock())
	for _, audio := range [][]byte{halfMegabyte(), twoMegabytes()} {
		res := c.Transcribe(context.Background(), Request{Audio: audio, Locator: "a.mp3"})
		if !res.Success || res.Transcript != "hello there" {
			t.Fatalf("mock transcription failed: %+v", res)
		}
	}
}

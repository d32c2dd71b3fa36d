package transcription

import "context"

// MockBackend returns a fixed transcript without calling any service.
// Enabled with USE_MOCK_TRANSCRIBE=true for offline demos.
type MockBackend struct {
	Transcript string
}

func (m MockBackend) text() string {
	if m.Transcript != "" {
		return m.Transcript
	}
	return "MOCK TRANSCRIPT: Reminder to send the quarterly budget to finance by Friday and book the team offsite."
}

func (m MockBackend) Recognize(context.Context, []byte, RecognitionConfig) ([]Segment, error) {
	return []Segment{{Transcript: m.text(), Confidence: 0.9}}, nil
}

func (m MockBackend) SubmitLongRunning(context.Context, []byte, RecognitionConfig) (Operation, error) {
	return mockOperation{segments: []Segment{{Transcript: m.text(), Confidence: 0.9}}}, nil
}

type mockOperation struct {
	segments []Segment
}

func (mockOperation) Name() string { return "mock-operation" }

func (o mockOperation) Poll(context.Context) (OperationStatus, error) {
	return OperationStatus{Done: true, Segments: o.segments}, nil
}

func (o mockOperation) Wait(context.Context) ([]Segment, error) {
	return o.segments, nil
}

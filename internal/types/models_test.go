package types

import (
	"errors"
	"testing"
)

func TestNoteValidate(t *testing.T) {
	full := NoteRecord{RawTranscript: "t", StyledContent: "s", Summary: "m", Status: NoteStatusComplete}
	if err := full.Validate(); err != nil {
		t.Fatalf("complete note rejected: %v", err)
	}

	half := full
	half.Summary = "  "
	if err := half.Validate(); !errors.Is(err, ErrIncompleteNote) {
		t.Fatalf("expected ErrIncompleteNote, got %v", err)
	}

	half.Status = NoteStatusIncomplete
	if err := half.Validate(); err != nil {
		t.Fatalf("incomplete note flagged as such should pass: %v", err)
	}
}

func TestComposeTextNote(t *testing.T) {
	got := ComposeTextNote("body", "short", "- call Bob")
	want := "body\n\n--- SUMMARY ---\nshort\n\n--- ACTION ITEMS ---\n- call Bob"
	if got != want {
		t.Fatalf("ComposeTextNote = %q, want %q", got, want)
	}
	if got := ComposeTextNote("body", "", ""); got != "body" {
		t.Fatalf("ComposeTextNote without sections = %q", got)
	}
}

func TestAudioAssetHeader(t *testing.T) {
	a := AudioAsset{Content: []byte("RIFF....WAVEfmt ")}
	if string(a.Header()) != "RIFF....WAVE" {
		t.Fatalf("Header = %q", a.Header())
	}
	short := AudioAsset{Content: []byte{0xFF}}
	if len(short.Header()) != 1 {
		t.Fatalf("short header length = %d", len(short.Header()))
	}
}

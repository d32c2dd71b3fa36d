package types

import (
	"errors"
	"strings"
	"time"
)

// AudioAsset is one uploaded recording. It is not modified once a run starts.
type AudioAsset struct {
	Content     []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
	Source      string `json:"source"` // original file name, local path or URL
}

// Header returns the first 12 bytes of the content, or fewer when the asset is shorter.
func (a AudioAsset) Header() []byte {
	if len(a.Content) < 12 {
		return a.Content
	}
	return a.Content[:12]
}

type StyleDescriptor struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Description string    `json:"description" msgpack:"description"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" msgpack:"updated_at"`
}

type NoteStatus string

const (
	NoteStatusPending    NoteStatus = "pending"
	NoteStatusIncomplete NoteStatus = "incomplete"
	NoteStatusComplete   NoteStatus = "complete"
)

type NoteRecord struct {
	ID            string     `json:"id" msgpack:"id"`
	Title         string     `json:"title" msgpack:"title"`
	RawTranscript string     `json:"raw_transcript,omitempty" msgpack:"raw_transcript"`
	StyledContent string     `json:"styled_content,omitempty" msgpack:"styled_content"`
	Summary       string     `json:"summary,omitempty" msgpack:"summary"`
	ActionItems   string     `json:"action_items,omitempty" msgpack:"action_items"`
	TextNote      string     `json:"text_note,omitempty" msgpack:"text_note"`
	AudioURL      string     `json:"audio_url,omitempty" msgpack:"audio_url"`
	AudioPublicID string     `json:"audio_public_id,omitempty" msgpack:"audio_public_id"`
	StyleID       string     `json:"style_id,omitempty" msgpack:"style_id"`
	StyleName     string     `json:"style_name,omitempty" msgpack:"style_name"`
	Status        NoteStatus `json:"status" msgpack:"status"`
	CreatedAt     time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" msgpack:"updated_at"`
}

// HasRequiredContent reports whether transcript, styled content and summary are all set.
func (n NoteRecord) HasRequiredContent() bool {
	return strings.TrimSpace(n.RawTranscript) != "" &&
		strings.TrimSpace(n.StyledContent) != "" &&
		strings.TrimSpace(n.Summary) != ""
}

var ErrIncompleteNote = errors.New("note marked complete without transcript, styled content and summary")

// Validate rejects a record claiming completeness it does not have.
func (n NoteRecord) Validate() error {
	if n.Status == NoteStatusComplete && !n.HasRequiredContent() {
		return ErrIncompleteNote
	}
	return nil
}

// ComposeTextNote joins the generated sections into the plain text body of a note.
func ComposeTextNote(styled, summary, actions string) string {
	var sb strings.Builder
	sb.WriteString(styled)
	if summary != "" {
		sb.WriteString("\n\n--- SUMMARY ---\n")
		sb.WriteString(summary)
	}
	if actions != "" {
		sb.WriteString("\n\n--- ACTION ITEMS ---\n")
		sb.WriteString(actions)
	}
	return sb.String()
}

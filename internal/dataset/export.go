package dataset

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"talknote-go/internal/types"
)

const (
	notesSheet   = "Notes"
	summarySheet = "Summary"
)

var noteColumns = []any{
	"ID", "Title", "Status", "Style", "Created", "Updated",
	"Audio URL", "Transcript", "Styled Content", "Summary", "Action Items",
}

// NotesSummary is the aggregate written to the summary sheet.
type NotesSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByStyle  map[string]int `json:"by_style"`
}

// Summarize counts notes by status and style name.
func Summarize(notes []types.NoteRecord) NotesSummary {
	s := NotesSummary{
		Total:    len(notes),
		ByStatus: map[string]int{},
		ByStyle:  map[string]int{},
	}
	for _, n := range notes {
		s.ByStatus[string(n.Status)]++
		style := n.StyleName
		if style == "" {
			style = "(none)"
		}
		s.ByStyle[style]++
	}
	return s
}

// ExportNotes writes one row per note plus a summary sheet.
func ExportNotes(w io.Writer, notes []types.NoteRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", notesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(notesSheet, "A1", &noteColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, n := range notes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			n.ID, n.Title, string(n.Status), n.StyleName,
			formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
			n.AudioURL, n.RawTranscript, n.StyledContent, n.Summary, n.ActionItems,
		}
		if err := f.SetSheetRow(notesSheet, cell, &row); err != nil {
			return fmt.Errorf("write note %s: %w", n.ID, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	sum := Summarize(notes)
	rows := [][]any{{"Total notes", sum.Total}, {}, {"Status", "Count"}}
	rows = append(rows, countRows(sum.ByStatus)...)
	rows = append(rows, []any{}, []any{"Style", "Count"})
	rows = append(rows, countRows(sum.ByStyle)...)
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func countRows(m map[string]int) [][]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, []any{k, m[k]})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

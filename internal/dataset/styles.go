// Package dataset moves style catalogs and notes in and out of xlsx
// workbooks for admin tooling.
package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"talknote-go/internal/logger"
	"talknote-go/internal/types"
)

// StyleRow is one catalog row before it reaches the registry.
type StyleRow struct {
	Row         int
	Name        string
	Description string
}

// ReadStyles reads the first sheet of a workbook. Name and description
// columns are found by header; without a match the first two columns are used.
func ReadStyles(r io.Reader) ([]StyleRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	nameIdx, descIdx := -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case descIdx == -1 && (strings.Contains(l, "desc") || strings.Contains(l, "instruction") || strings.Contains(l, "prompt")):
			descIdx = i
		case nameIdx == -1 && (strings.Contains(l, "name") || strings.Contains(l, "style")):
			nameIdx = i
		}
	}
	if nameIdx == -1 {
		nameIdx = 0
	}
	if descIdx == -1 {
		descIdx = 1
		if nameIdx == 1 {
			descIdx = 0
		}
	}

	var out []StyleRow
	for i, r := range rows[1:] {
		row := StyleRow{Row: i + 2}
		if nameIdx < len(r) {
			row.Name = strings.TrimSpace(r[nameIdx])
		}
		if descIdx < len(r) {
			row.Description = strings.TrimSpace(r[descIdx])
		}
		if row.Name == "" && row.Description == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Upserter is the part of the style registry an import needs.
type Upserter interface {
	Upsert(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, bool, error)
}

// ImportReport counts what an import did. Errors holds one message per
// rejected row.
type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportStyles upserts every row by name. Rows missing a name or description
// are skipped; a registry failure stops the import.
func ImportStyles(ctx context.Context, reg Upserter, rows []StyleRow, log *logger.Logger) (ImportReport, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("dataset.styles")

	var rep ImportReport
	for _, row := range rows {
		if row.Name == "" || row.Description == "" {
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("row %d: name and description are required", row.Row))
			continue
		}
		_, created, err := reg.Upsert(ctx, types.StyleDescriptor{Name: row.Name, Description: row.Description})
		if err != nil {
			return rep, fmt.Errorf("row %d (%s): %w", row.Row, row.Name, err)
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	log.WithField("created", rep.Created).
		WithField("updated", rep.Updated).
		WithField("skipped", rep.Skipped).
		Info("style catalog imported")
	return rep, nil
}

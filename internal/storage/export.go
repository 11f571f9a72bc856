package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// ExportHeader is the first row of every export.
var ExportHeader = []string{
	"id", "amount_in", "amount_out", "date_in", "date_out",
	"type_ref", "type_label", "note", "created_at",
}

// ExportRows returns the header plus one row per entry matching opts.
// Paging is ignored.
func (r *EntryRepository) ExportRows(ctx context.Context, opts core.ListOptions) ([][]string, error) {
	opts.All = true
	entries, err := r.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}

	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, ExportHeader)
	for _, e := range entries {
		rows = append(rows, entryRecord(e))
	}
	return rows, nil
}

// Export writes the matching entries to w as CSV and returns the number of
// data rows written.
func (r *EntryRepository) Export(ctx context.Context, w io.Writer, opts core.ListOptions) (int, error) {
	rows, err := r.ExportRows(ctx, opts)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, rows); err != nil {
		r.logger.LogError(ctx, "Error writing export", err, log.OpExport, nil)
		return 0, err
	}
	return len(rows) - 1, nil
}

// WriteCSV writes rows with CRLF line endings. Fields containing the
// delimiter, quotes or line breaks are quoted with inner quotes doubled.
// UseCRLF also rewrites a bare LF inside a quoted field as CRLF, so a
// multi-line note does not round-trip byte for byte.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func entryRecord(e core.Entry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.AmountIn.String(),
		e.AmountOut.String(),
		dateField(e.DateIn),
		dateField(e.DateOut),
		intField(e.TypeRef),
		stringField(e.TypeLabel),
		stringField(e.Note),
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func dateField(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intField(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func stringField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

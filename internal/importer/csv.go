// Package importer parses CSV exports and reconciles their rows
// against the catalog.
package importer

import (
	"fmt"
	"strings"

	"github.com/starford/vitrine/internal/apperr"
)

// Table is a parsed CSV: a header row and the data rows, every row
// normalized to the header's width.
type Table struct {
	Header []string
	Rows   [][]string
}

// DetectDelimiter inspects the first line: a semicolon anywhere in it
// wins, otherwise comma. Spreadsheet exports in many locales use
// semicolons.
func DetectDelimiter(raw string) rune {
	line := raw
	if i := strings.IndexAny(raw, "\r\n"); i >= 0 {
		line = raw[:i]
	}
	if strings.ContainsRune(line, ';') {
		return ';'
	}
	return ','
}

// ParseCSV parses raw CSV text. Fields may be quoted; a doubled quote
// inside a quoted field is a literal quote. An unterminated quote runs
// to the end of input rather than failing. CRLF and bare LF line
// endings both work.
func ParseCSV(raw string) (Table, error) {
	raw = strings.TrimPrefix(raw, "\uFEFF")
	if strings.TrimSpace(raw) == "" {
		return Table{}, fmt.Errorf("importer: empty input: %w", apperr.ErrValidation)
	}
	delim := DetectDelimiter(raw)

	var rows [][]string
	var row []string
	var cell strings.Builder
	inQuotes := false

	flushCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	flushRow := func() {
		flushCell()
		rows = append(rows, row)
		row = nil
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inQuotes:
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cell.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cell.WriteRune(ch)
			}
		case ch == '"' && cell.Len() == 0:
			inQuotes = true
		case ch == delim:
			flushCell()
		case ch == '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			flushRow()
		case ch == '\n':
			flushRow()
		default:
			cell.WriteRune(ch)
		}
	}
	if cell.Len() > 0 || len(row) > 0 {
		flushRow()
	}

	// Drop rows that are entirely empty (blank lines).
	compact := rows[:0]
	for _, r := range rows {
		empty := true
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if !empty {
			compact = append(compact, r)
		}
	}
	rows = compact
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("importer: no data rows: %w", apperr.ErrValidation)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	width := len(header)

	data := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		normalized := make([]string, width)
		for i := 0; i < width && i < len(r); i++ {
			normalized[i] = strings.TrimSpace(r[i])
		}
		data = append(data, normalized)
	}
	return Table{Header: header, Rows: data}, nil
}

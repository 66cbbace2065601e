package core

// convert.go handles the messy cell values that come out of the source
// spreadsheets. Date cells may hold an Excel serial number or text in one
// of several layouts; day counts are only sometimes numeric. Anything
// unparseable becomes nil rather than an error, matching how the source
// registers fill these columns.

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order for text date cells. ISO first, then the
// day-first forms the registers use.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"2-1-2006",
}

// CleanCell trims surrounding whitespace from a raw cell value.
func CleanCell(s string) string {
	return strings.TrimSpace(s)
}

// ParseCellDate converts a raw cell value to a calendar date.
// Numeric values are treated as Excel serial dates (the cell held a
// date/time value); text is parsed against the known layouts. Returns nil
// when the cell is empty or unparseable.
func ParseCellDate(raw string) *time.Time {
	raw = CleanCell(raw)
	if raw == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	return nil
}

// ParseCellDays converts a raw cell value to a day count. Only strings
// consisting entirely of digits count; everything else (including "15.0"
// and negatives) becomes nil.
func ParseCellDays(raw string) *int {
	raw = CleanCell(raw)
	if raw == "" || !isDigits(raw) {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

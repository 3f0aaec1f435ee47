package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/xuri/excelize/v2"
)

var ErrUnparseableDate = errors.New("unparseable date")

// layouts seen in the order, sales and ledger sheets; tried in order
var sheetDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// spreadsheet serials above this are past 9999-12-31
const maxSpreadsheetSerial = 2958465

// ParseSheetDate reads a spreadsheet cell as a calendar date in loc and returns midnight of that day.
// Blank cells return nil without error.
// Timestamps carrying an offset are first converted into loc, so the calendar day never
// depends on the machine's local zone.
func ParseSheetDate(value any, loc *time.Location) (*time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := utils.ConvertToDate(v, loc)
		return &d, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		d := utils.ConvertToDate(*v, loc)
		return &d, nil
	case string:
		return parseDateString(v, loc)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnparseableDate, v.String())
		}
		return serialToDate(f, loc)
	case float64:
		return serialToDate(v, loc)
	case int:
		return serialToDate(float64(v), loc)
	case int64:
		return serialToDate(float64(v), loc)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrUnparseableDate, value)
	}
}

func parseDateString(raw string, loc *time.Location) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if isBlankCell(s) {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d := utils.ConvertToDate(t, loc)
			return &d, nil
		}
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			d := utils.ConvertToDate(t, loc)
			return &d, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToDate(f, loc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

func serialToDate(serial float64, loc *time.Location) (*time.Time, error) {
	if serial <= 0 || serial > maxSpreadsheetSerial {
		return nil, fmt.Errorf("%w: serial %v out of range", ErrUnparseableDate, serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableDate, err)
	}
	// the serial names a wall-clock day, not an instant
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return &d, nil
}

func isBlankCell(s string) bool {
	switch strings.ToLower(s) {
	case "", "-", "null", "nil", "n/a", "na", "none", "tbd", "tba":
		return true
	}
	return false
}

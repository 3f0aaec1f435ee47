package models

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/shopspring/decimal"
)

// RawRecord is one spreadsheet row as delivered by the data API.
type RawRecord map[string]any

// RawSnapshot holds the five collections of one data refresh, before normalization.
type RawSnapshot struct {
	Orders          []RawRecord `json:"orders"`
	SerializedUnits []RawRecord `json:"serializedUnits"`
	Sales           []RawRecord `json:"sales"`
	Inventory       []RawRecord `json:"inventory"`
	PriceList       []RawRecord `json:"priceList"`
}

// DecodeRawSnapshot keeps numbers as json.Number so money is never routed through float64.
func DecodeRawSnapshot(r io.Reader) (RawSnapshot, error) {
	var snap RawSnapshot
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return RawSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Lookup finds a cell by its canonical name, then by any alias, then by a
// header-insensitive match ("Sales Order" == "salesOrder" == "sales_order").
func (r RawRecord) Lookup(key string, aliases ...string) (any, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := r[k]; ok {
			return v, true
		}
	}
	want := make(map[string]bool, len(aliases)+1)
	for _, k := range append([]string{key}, aliases...) {
		want[foldHeader(k)] = true
	}
	// sorted so two headers folding to the same name always resolve the same way
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if want[foldHeader(k)] {
			return r[k], true
		}
	}
	return nil, false
}

// String returns the trimmed text of a cell, "" when absent.
func (r RawRecord) String(key string, aliases ...string) string {
	v, ok := r.Lookup(key, aliases...)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// Decimal reads a numeric cell. present is false for absent or blank cells.
func (r RawRecord) Decimal(key string, aliases ...string) (d decimal.Decimal, present bool, err error) {
	v, ok := r.Lookup(key, aliases...)
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}
	switch n := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, true, fmt.Errorf("%w: %q", utils.ErrorInvalidValue, n.String())
		}
		return d, true, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, true, utils.ErrorInvalidValue
		}
		return decimal.NewFromFloat(n), true, nil
	case int:
		return decimal.NewFromInt(int64(n)), true, nil
	case int64:
		return decimal.NewFromInt(n), true, nil
	case decimal.Decimal:
		return n, true, nil
	case string:
		if isBlankCell(strings.TrimSpace(n)) {
			return decimal.Zero, false, nil
		}
		d, err = utils.ParseFormattedDecimal(n)
		if err != nil {
			return decimal.Zero, true, err
		}
		return d, true, nil
	default:
		return decimal.Zero, true, fmt.Errorf("%w: unsupported type %T", utils.ErrorInvalidValue, v)
	}
}

// Int reads a whole-number cell; fractional values are an error.
func (r RawRecord) Int(key string, aliases ...string) (n int, present bool, err error) {
	d, present, err := r.Decimal(key, aliases...)
	if err != nil || !present {
		return 0, present, err
	}
	if !d.IsInteger() {
		return 0, true, fmt.Errorf("%w: %s is not a whole number", utils.ErrorInvalidValue, d.String())
	}
	return int(d.IntPart()), true, nil
}

func foldHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

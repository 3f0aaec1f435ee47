package models

import (
	"errors"
	"strings"
)

type Granularity string

const (
	GranularityDaily     Granularity = "daily"
	GranularityWeekly    Granularity = "weekly"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

var ErrInvalidGranularity = errors.New("granularity must be one of daily, weekly, monthly, quarterly, yearly")

func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly, GranularityQuarterly, GranularityYearly:
		return true
	}
	return false
}

// ParseGranularity is case-insensitive.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", ErrInvalidGranularity
	}
	return g, nil
}

func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ShipmentStatus is free text from the order sheet ("Shipped", "In Transit", ...).
// Only blank values are normalized.
type ShipmentStatus string

const ShipmentStatusUnknown ShipmentStatus = ""

func NewShipmentStatus(s string) ShipmentStatus {
	return ShipmentStatus(strings.Join(strings.Fields(s), " "))
}

type IssueKind string

const (
	IssueKindMalformedInput  IssueKind = "malformed_input"
	IssueKindMissingKey      IssueKind = "missing_key"
	IssueKindDuplicateSerial IssueKind = "duplicate_serial"
)

type Collection string

const (
	CollectionOrders          Collection = "orders"
	CollectionSerializedUnits Collection = "serializedUnits"
	CollectionSales           Collection = "sales"
	CollectionInventory       Collection = "inventory"
	CollectionPriceList       Collection = "priceList"
)

// TrendSeries names a date-stamped metric of a snapshot.
type TrendSeries string

const (
	TrendSeriesSalesRevenue TrendSeries = "sales_revenue"
	TrendSeriesSalesUnits   TrendSeries = "sales_units"
	TrendSeriesOrderValue   TrendSeries = "order_value"
	TrendSeriesOrderUnits   TrendSeries = "order_units"
	TrendSeriesArrivalUnits TrendSeries = "arrival_units"
)

var ErrInvalidTrendSeries = errors.New("series must be one of sales_revenue, sales_units, order_value, order_units, arrival_units")

func ParseTrendSeries(s string) (TrendSeries, error) {
	switch t := TrendSeries(strings.ToLower(strings.TrimSpace(s))); t {
	case TrendSeriesSalesRevenue, TrendSeriesSalesUnits, TrendSeriesOrderValue, TrendSeriesOrderUnits, TrendSeriesArrivalUnits:
		return t, nil
	}
	return "", ErrInvalidTrendSeries
}

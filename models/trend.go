package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendPoint is one calendar bucket. SortKey orders chronologically as a plain string.
type TrendPoint struct {
	SortKey string          `json:"sortKey"`
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
}

// TrendStatistics summarizes a bucketed series. Nil means not computable.
type TrendStatistics struct {
	Min    *decimal.Decimal `json:"min"`
	Max    *decimal.Decimal `json:"max"`
	Mean   *decimal.Decimal `json:"mean"`
	Median *decimal.Decimal `json:"median"`
	Growth *decimal.Decimal `json:"growth"`

	MovingAveragePeriod int                `json:"movingAveragePeriod"`
	MovingAverage       []*decimal.Decimal `json:"movingAverage"`
	PeriodGrowth        []*decimal.Decimal `json:"periodGrowth"`
}

// DatedValue is a free-standing metric sample, used when a caller posts its own series.
type DatedValue struct {
	Date  *time.Time      `json:"date"`
	Value decimal.Decimal `json:"value"`
}

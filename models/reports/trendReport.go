package reports

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultMonthlyLimit   = 24
	DefaultQuarterlyLimit = 12
	DefaultYearlyLimit    = 10
)

// TrendOptions carries the reference instant and zone every bucket is computed against.
type TrendOptions struct {
	// AsOf decides the "current year" of daily and weekly series.
	AsOf     time.Time
	Location *time.Location

	// most recent buckets kept; zero means the default
	MonthlyLimit   int
	QuarterlyLimit int
	YearlyLimit    int
}

func DefaultTrendOptions(asOf time.Time, loc *time.Location) TrendOptions {
	return TrendOptions{
		AsOf:           asOf,
		Location:       loc,
		MonthlyLimit:   DefaultMonthlyLimit,
		QuarterlyLimit: DefaultQuarterlyLimit,
		YearlyLimit:    DefaultYearlyLimit,
	}
}

func (o TrendOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

type trendBucket struct {
	point models.TrendPoint
	// calendar years the bucket touches; an ISO week can straddle two
	firstYear, lastYear int
}

func (b *trendBucket) overlapsYear(year int) bool {
	return b.firstYear <= year && year <= b.lastYear
}

// trendPeriod maps a calendar day to its bucket at granularity g.
func trendPeriod(d time.Time, g models.Granularity) (sortKey, label string, firstYear, lastYear int) {
	switch g {
	case models.GranularityDaily:
		return d.Format("2006-01-02"), d.Format("02 Jan 2006"), d.Year(), d.Year()
	case models.GranularityWeekly:
		isoYear, week := d.ISOWeek()
		monday := d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
		sunday := monday.AddDate(0, 0, 6)
		return fmt.Sprintf("%04d-W%02d", isoYear, week), fmt.Sprintf("W%02d %d", week, isoYear), monday.Year(), sunday.Year()
	case models.GranularityMonthly:
		return d.Format("2006-01"), d.Format("Jan 2006"), d.Year(), d.Year()
	case models.GranularityQuarterly:
		q := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", d.Year(), q), fmt.Sprintf("Q%d %d", q, d.Year()), d.Year(), d.Year()
	default:
		return fmt.Sprintf("%04d", d.Year()), fmt.Sprintf("%d", d.Year()), d.Year(), d.Year()
	}
}

// AggregateTrend sums value per calendar bucket and returns the buckets in chronological order.
// Records whose date selector returns nil are skipped.
// Daily and weekly series keep only buckets overlapping the calendar year of opts.AsOf; monthly, quarterly and
// yearly series keep the most recent 24, 12 and 10 buckets by default.
func AggregateTrend[T any](
	records []T,
	value func(T) decimal.Decimal,
	date func(T) *time.Time,
	g models.Granularity,
	opts TrendOptions,
) ([]models.TrendPoint, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidGranularity, g)
	}
	loc := opts.location()

	buckets := make(map[string]*trendBucket)
	for _, r := range records {
		at := date(r)
		if at == nil {
			continue
		}
		day := utils.ConvertToDate(*at, loc)
		key, label, firstYear, lastYear := trendPeriod(day, g)
		b, ok := buckets[key]
		if !ok {
			b = &trendBucket{
				point:     models.TrendPoint{SortKey: key, Label: label, Value: decimal.Zero},
				firstYear: firstYear,
				lastYear:  lastYear,
			}
			buckets[key] = b
		}
		b.point.Value = b.point.Value.Add(value(r))
	}

	keys := sortedKeys(buckets)
	points := make([]models.TrendPoint, 0, len(keys))

	switch g {
	case models.GranularityDaily, models.GranularityWeekly:
		current := opts.AsOf.In(loc).Year()
		for _, k := range keys {
			if buckets[k].overlapsYear(current) {
				points = append(points, buckets[k].point)
			}
		}
		return points, nil
	case models.GranularityMonthly:
		keys = lastN(keys, limitOr(opts.MonthlyLimit, DefaultMonthlyLimit))
	case models.GranularityQuarterly:
		keys = lastN(keys, limitOr(opts.QuarterlyLimit, DefaultQuarterlyLimit))
	case models.GranularityYearly:
		keys = lastN(keys, limitOr(opts.YearlyLimit, DefaultYearlyLimit))
	}
	for _, k := range keys {
		points = append(points, buckets[k].point)
	}
	return points, nil
}

func lastN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// AggregateDatedValues buckets caller-supplied samples.
func AggregateDatedValues(values []models.DatedValue, g models.Granularity, opts TrendOptions) ([]models.TrendPoint, error) {
	return AggregateTrend(values,
		func(v models.DatedValue) decimal.Decimal { return v.Value },
		func(v models.DatedValue) *time.Time { return v.Date },
		g, opts)
}

// BuildSeriesTrend buckets one named metric of a normalized snapshot.
func BuildSeriesTrend(snap models.NormalizedSnapshot, series models.TrendSeries, g models.Granularity, opts TrendOptions) ([]models.TrendPoint, error) {
	saleDate := func(s models.SaleTransaction) *time.Time { return s.InvoiceDate }
	orderDate := func(o models.Order) *time.Time { return o.DateIssuePI }
	orderUnits := func(o models.Order) decimal.Decimal { return decimal.NewFromInt(int64(o.Qty)) }

	switch series {
	case models.TrendSeriesSalesRevenue:
		return AggregateTrend(snap.Sales, func(s models.SaleTransaction) decimal.Decimal { return s.TotalRevenue }, saleDate, g, opts)
	case models.TrendSeriesSalesUnits:
		return AggregateTrend(snap.Sales, func(s models.SaleTransaction) decimal.Decimal { return decimal.NewFromInt(int64(s.Quantity)) }, saleDate, g, opts)
	case models.TrendSeriesOrderValue:
		return AggregateTrend(snap.Orders, func(o models.Order) decimal.Decimal { return o.OrderValue }, orderDate, g, opts)
	case models.TrendSeriesOrderUnits:
		return AggregateTrend(snap.Orders, orderUnits, orderDate, g, opts)
	case models.TrendSeriesArrivalUnits:
		return AggregateTrend(snap.Orders, orderUnits, func(o models.Order) *time.Time { return o.ActualArrival }, g, opts)
	}
	return nil, fmt.Errorf("%w: %q", models.ErrInvalidTrendSeries, series)
}


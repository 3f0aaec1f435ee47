package reports

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/shopspring/decimal"
)

const DefaultMovingAveragePeriod = 3

// mean, growth and moving averages are rounded half away from zero to this many places
const trendPlaces = 2

var ErrInvalidMovingAveragePeriod = errors.New("moving average period must be at least 1")

// ComputeTrendStatistics summarizes a chronologically sorted series.
//
// Median is the lower-middle value when the count is even.
// MovingAverage[i] is nil for i < period-1, else the mean of points[i-period+1..i].
// Growth and PeriodGrowth are nil whenever the base value is not positive.
func ComputeTrendStatistics(points []models.TrendPoint, period int) (*models.TrendStatistics, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMovingAveragePeriod, period)
	}
	n := len(points)
	stats := &models.TrendStatistics{
		MovingAveragePeriod: period,
		MovingAverage:       make([]*decimal.Decimal, n),
		PeriodGrowth:        make([]*decimal.Decimal, n),
	}
	if n == 0 {
		return stats, nil
	}

	values := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i, p := range points {
		values[i] = p.Value
		sum = sum.Add(p.Value)
	}

	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	lo, hi, median := sorted[0], sorted[n-1], sorted[(n-1)/2]
	mean := sum.Div(decimal.NewFromInt(int64(n))).Round(trendPlaces)
	stats.Min, stats.Max, stats.Median, stats.Mean = &lo, &hi, &median, &mean

	if n >= 2 {
		stats.Growth = percentChange(values[0], values[n-1], trendPlaces)
	}

	divisor := decimal.NewFromInt(int64(period))
	window := decimal.Zero
	for i, v := range values {
		window = window.Add(v)
		if i >= period {
			window = window.Sub(values[i-period])
		}
		if i >= period-1 {
			avg := window.Div(divisor).Round(trendPlaces)
			stats.MovingAverage[i] = &avg
		}
		if i > 0 {
			stats.PeriodGrowth[i] = percentChange(values[i-1], v, trendPlaces)
		}
	}
	return stats, nil
}

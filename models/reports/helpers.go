package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// percentChange returns (to - from) / from * 100, nil when from is not positive.
func percentChange(from, to decimal.Decimal, places int32) *decimal.Decimal {
	if !from.IsPositive() {
		return nil
	}
	pct := to.Sub(from).Div(from).Mul(hundred).Round(places)
	return &pct
}

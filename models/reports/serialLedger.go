package reports

import "github.com/mmdatafocus/distributor_backend/models"

// SerialLedger classifies every serialized unit of a snapshot against the sales and the orders.
// All sets are built before any unit is classified and never change afterwards.
type SerialLedger struct {
	// serial numbers that appear on at least one sale
	SoldSerials map[string]struct{}
	// keys with at least one arrived order
	Arrived map[models.CompositeKey]struct{}

	// per arrived key: units not sold, units sold, all units
	OnHand       map[models.CompositeKey]int
	Sold         map[models.CompositeKey]int
	ArrivedUnits map[models.CompositeKey]int

	// Colors lists the distinct unit colors per key, sorted.
	Colors map[models.CompositeKey][]string
}

func (l *SerialLedger) IsSold(serial string) bool {
	_, ok := l.SoldSerials[serial]
	return ok
}

func (l *SerialLedger) IsArrived(key models.CompositeKey) bool {
	_, ok := l.Arrived[key]
	return ok
}

// MatchSerialLedger runs the two-pass on-hand classification.
// Units whose key has no arrived order are in transit and are not counted here.
// A serial listed more than once is attributed to one unit only, see ownsBefore.
func MatchSerialLedger(orders []models.Order, units []models.SerializedUnit, sales []models.SaleTransaction) *SerialLedger {
	ledger := &SerialLedger{
		SoldSerials:  make(map[string]struct{}),
		Arrived:      make(map[models.CompositeKey]struct{}),
		OnHand:       make(map[models.CompositeKey]int),
		Sold:         make(map[models.CompositeKey]int),
		ArrivedUnits: make(map[models.CompositeKey]int),
		Colors:       make(map[models.CompositeKey][]string),
	}

	for _, s := range sales {
		if s.SerialNumber != nil && *s.SerialNumber != "" {
			ledger.SoldSerials[*s.SerialNumber] = struct{}{}
		}
	}
	for _, o := range orders {
		if o.HasArrived() {
			ledger.Arrived[o.Key()] = struct{}{}
		}
	}

	owner := make(map[string]models.SerializedUnit, len(units))
	for _, u := range units {
		if cur, ok := owner[u.SerialNumber]; !ok || ownsBefore(u, cur) {
			owner[u.SerialNumber] = u
		}
	}

	colors := make(map[models.CompositeKey]map[string]struct{})
	for _, u := range owner {
		key := u.Key()
		if u.Color != "" {
			if colors[key] == nil {
				colors[key] = make(map[string]struct{})
			}
			colors[key][u.Color] = struct{}{}
		}
		if !ledger.IsArrived(key) {
			continue
		}
		ledger.ArrivedUnits[key]++
		if ledger.IsSold(u.SerialNumber) {
			ledger.Sold[key]++
		} else {
			ledger.OnHand[key]++
		}
	}
	for key, set := range colors {
		ledger.Colors[key] = sortedKeys(set)
	}

	return ledger
}

// ownsBefore orders duplicate listings of one serial: fully keyed units first,
// then the smallest key, then the smallest color.
func ownsBefore(u, cur models.SerializedUnit) bool {
	uk, ck := u.Key(), cur.Key()
	uFull := uk.SalesOrder != "" && uk.Mtm != ""
	cFull := ck.SalesOrder != "" && ck.Mtm != ""
	if uFull != cFull {
		return uFull
	}
	if uk != ck {
		return uk.Less(ck)
	}
	return u.Color < cur.Color
}

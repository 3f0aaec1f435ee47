package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/shopspring/decimal"
)

// ReconcileSnapshot runs Reconcile over a normalized snapshot.
func ReconcileSnapshot(snap models.NormalizedSnapshot, asOf time.Time) []*models.AugmentedSkuGroup {
	return Reconcile(snap.Orders, snap.SerializedUnits, snap.Sales, snap.Inventory, snap.PriceList, asOf)
}

// Reconcile joins orders, the serial ledger, sales, inventory snapshots and the price list
// into one AugmentedSkuGroup per mtm, sorted by mtm.
//
// asOf is the reference day for ageing and the trailing sales window; pass it in the
// same location the snapshot dates were normalized in. The result depends only on the
// inputs, not on their order.
func Reconcile(
	orders []models.Order,
	units []models.SerializedUnit,
	sales []models.SaleTransaction,
	inventory []models.InventorySnapshot,
	priceList []models.PriceListEntry,
	asOf time.Time,
) []*models.AugmentedSkuGroup {
	asOfDate := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	ledger := MatchSerialLedger(orders, units, sales)

	mtms := make(map[string]struct{})
	salesOrders := make(map[string]map[string]struct{})
	addSalesOrder := func(mtm, so string) {
		mtms[mtm] = struct{}{}
		if so == "" {
			return
		}
		if salesOrders[mtm] == nil {
			salesOrders[mtm] = make(map[string]struct{})
		}
		salesOrders[mtm][so] = struct{}{}
	}

	// price list: first entry in canonical order wins the scalar fields
	prices := make(map[string]models.PriceListEntry)
	priceColors := make(map[models.CompositeKey]string)
	for _, p := range canonicalPriceList(priceList) {
		if _, ok := prices[p.Mtm]; !ok {
			prices[p.Mtm] = p
		}
		addSalesOrder(p.Mtm, p.SalesOrder)
		key := models.NewCompositeKey(p.SalesOrder, p.Mtm)
		if _, ok := priceColors[key]; !ok && p.Color != "" {
			priceColors[key] = p.Color
		}
	}

	shipped := make(map[models.CompositeKey]int)
	onTheWay := make(map[models.CompositeKey]int)
	arrivals := make(map[models.CompositeKey]time.Time)
	orderModels := make(map[string]models.Order)
	for _, o := range orders {
		key := o.Key()
		addSalesOrder(key.Mtm, key.SalesOrder)
		shipped[key] += o.Qty
		if !o.HasArrived() {
			onTheWay[key] += o.Qty
		}
		if o.ActualArrival != nil {
			if cur, ok := arrivals[key]; !ok || o.ActualArrival.After(cur) {
				arrivals[key] = *o.ActualArrival
			}
		}
		if o.ModelName != "" {
			if cur, ok := orderModels[key.Mtm]; !ok || key.Less(cur.Key()) ||
				(key == cur.Key() && o.ModelName < cur.ModelName) {
				orderModels[key.Mtm] = o
			}
		}
	}

	serialMtm := make(map[string]string, len(units))
	for _, u := range units {
		key := u.Key()
		if key.Mtm == "" {
			continue
		}
		addSalesOrder(key.Mtm, key.SalesOrder)
		if cur, ok := serialMtm[u.SerialNumber]; !ok || key.Mtm < cur {
			serialMtm[u.SerialNumber] = key.Mtm
		}
	}

	snapshots := aggregateInventory(inventory)
	for mtm := range snapshots {
		mtms[mtm] = struct{}{}
	}

	weekly := trailingWeeklySales(sales, serialMtm, asOfDate)

	groups := make([]*models.AugmentedSkuGroup, 0, len(mtms))
	for _, mtm := range sortedKeys(mtms) {
		if mtm == "" {
			continue
		}
		g := &models.AugmentedSkuGroup{Mtm: mtm}

		if p, ok := prices[mtm]; ok {
			g.ModelName = p.ModelName
			g.Description = p.Description
			g.Sdp = p.Sdp
			g.Srp = p.Srp
		}
		if g.ModelName == "" {
			g.ModelName = orderModels[mtm].ModelName
		}

		if inv, ok := snapshots[mtm]; ok {
			g.HasSnapshot = true
			g.ProductLine = inv.ProductLine
			g.OnHandQty = inv.OnHandQty
			g.OnTheWayQty = inv.OnTheWayQty
			g.OnHandValue = inv.OnHandValue
			g.OnTheWayValue = inv.OnTheWayValue
			g.AverageLandingCost = inv.AverageLandingCost
			g.WeeksOfInventory = inv.WeeksOfInventory
		}
		g.Oversold = g.OnHandQty < 0 || g.OnTheWayQty < 0

		profit := ComputeProfitability(g.Sdp, g.Srp, g.AverageLandingCost)
		g.SdpMargin = profit.SdpMargin
		g.SrpMargin = profit.SrpMargin
		g.SdpProfit = profit.SdpProfit
		g.SrpProfit = profit.SrpProfit

		if w, ok := weekly[mtm]; ok {
			g.WeeklySales = w
			for _, qty := range w {
				g.Sales90d += qty
			}
		}

		g.SalesOrders = make([]models.SalesOrderDetail, 0, len(salesOrders[mtm]))
		for _, so := range sortedKeys(salesOrders[mtm]) {
			key := models.NewCompositeKey(so, mtm)
			detail := models.SalesOrderDetail{
				SalesOrder:  so,
				ShippedQty:  shipped[key],
				OnHandQty:   ledger.OnHand[key],
				SoldQty:     ledger.Sold[key],
				OnTheWayQty: onTheWay[key],
				Color:       strings.Join(ledger.Colors[key], ", "),
			}
			if detail.Color == "" {
				detail.Color = priceColors[key]
			}
			if arrived, ok := arrivals[key]; ok {
				arrivalDate := arrived
				ageing := utils.DaysBetween(arrivalDate, asOfDate)
				detail.ArrivalDate = &arrivalDate
				detail.AgeingDays = &ageing
			}
			// more serials sold than the orders on this key ever shipped
			detail.Oversold = detail.SoldQty > detail.ShippedQty
			if detail.Oversold {
				g.Oversold = true
			}
			g.LedgerOnHandQty += detail.OnHandQty
			g.LedgerOnTheWayQty += detail.OnTheWayQty
			g.SalesOrders = append(g.SalesOrders, detail)
		}

		groups = append(groups, g)
	}
	return groups
}

// trailingWeeklySales buckets unit sales of the last SalesWindowDays days (asOf included)
// into WeeksInSalesWindow weekly slots per mtm. Undated and out-of-window sales are dropped.
// A sale without a product id is attributed through its serial when the ledger knows it.
func trailingWeeklySales(sales []models.SaleTransaction, serialMtm map[string]string, asOfDate time.Time) map[string][models.WeeksInSalesWindow]int {
	windowStart := asOfDate.AddDate(0, 0, -(models.SalesWindowDays - 1))
	weekly := make(map[string][models.WeeksInSalesWindow]int)
	for _, s := range sales {
		if s.InvoiceDate == nil {
			continue
		}
		mtm := s.ProductId
		if mtm == "" && s.SerialNumber != nil {
			mtm = serialMtm[*s.SerialNumber]
		}
		if mtm == "" {
			continue
		}
		offset := utils.DaysBetween(windowStart, *s.InvoiceDate)
		if offset < 0 || utils.DaysBetween(*s.InvoiceDate, asOfDate) < 0 {
			continue
		}
		idx := offset / 7
		if idx < 0 || idx >= models.WeeksInSalesWindow {
			continue
		}
		w := weekly[mtm]
		w[idx] += s.Quantity
		weekly[mtm] = w
	}
	return weekly
}

// aggregateInventory merges snapshots per mtm: quantities and values are summed,
// the other fields come from the first snapshot in canonical order.
func aggregateInventory(inventory []models.InventorySnapshot) map[string]models.InventorySnapshot {
	sorted := append([]models.InventorySnapshot(nil), inventory...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Mtm != b.Mtm {
			return a.Mtm < b.Mtm
		}
		if a.ProductLine != b.ProductLine {
			return a.ProductLine < b.ProductLine
		}
		if c := a.AverageLandingCost.Cmp(b.AverageLandingCost); c != 0 {
			return c < 0
		}
		if a.OnHandQty != b.OnHandQty {
			return a.OnHandQty < b.OnHandQty
		}
		if a.OnTheWayQty != b.OnTheWayQty {
			return a.OnTheWayQty < b.OnTheWayQty
		}
		if c := a.OnHandValue.Cmp(b.OnHandValue); c != 0 {
			return c < 0
		}
		if c := a.OnTheWayValue.Cmp(b.OnTheWayValue); c != 0 {
			return c < 0
		}
		// nil weeks of inventory first
		if a.WeeksOfInventory == nil || b.WeeksOfInventory == nil {
			return a.WeeksOfInventory == nil && b.WeeksOfInventory != nil
		}
		return a.WeeksOfInventory.LessThan(*b.WeeksOfInventory)
	})

	out := make(map[string]models.InventorySnapshot, len(sorted))
	for _, inv := range sorted {
		cur, ok := out[inv.Mtm]
		if !ok {
			out[inv.Mtm] = inv
			continue
		}
		cur.OnHandQty += inv.OnHandQty
		cur.OnTheWayQty += inv.OnTheWayQty
		cur.OnHandValue = cur.OnHandValue.Add(inv.OnHandValue)
		cur.OnTheWayValue = cur.OnTheWayValue.Add(inv.OnTheWayValue)
		out[inv.Mtm] = cur
	}
	return out
}

func canonicalPriceList(priceList []models.PriceListEntry) []models.PriceListEntry {
	sorted := append([]models.PriceListEntry(nil), priceList...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.Mtm != b.Mtm:
			return a.Mtm < b.Mtm
		case a.SalesOrder != b.SalesOrder:
			return a.SalesOrder < b.SalesOrder
		case a.ModelName != b.ModelName:
			return a.ModelName < b.ModelName
		case a.Description != b.Description:
			return a.Description < b.Description
		case !a.Sdp.Equal(b.Sdp):
			return a.Sdp.LessThan(b.Sdp)
		case !a.Srp.Equal(b.Srp):
			return a.Srp.LessThan(b.Srp)
		}
		return a.Color < b.Color
	})
	return sorted
}

// Summarize totals a reconciled view.
func Summarize(groups []*models.AugmentedSkuGroup) models.ReconciliationSummary {
	sum := models.ReconciliationSummary{
		OnHandValue:   decimal.Zero,
		OnTheWayValue: decimal.Zero,
	}
	for _, g := range groups {
		sum.SkuCount++
		sum.SalesOrderCount += len(g.SalesOrders)
		sum.OnHandQty += g.OnHandQty
		sum.OnTheWayQty += g.OnTheWayQty
		sum.OnHandValue = sum.OnHandValue.Add(g.OnHandValue)
		sum.OnTheWayValue = sum.OnTheWayValue.Add(g.OnTheWayValue)
		sum.LedgerOnHandQty += g.LedgerOnHandQty
		sum.LedgerOnTheWayQty += g.LedgerOnTheWayQty
		sum.Sales90d += g.Sales90d
		if g.Oversold {
			sum.OversoldSkuCount++
		}
		if !g.HasSnapshot {
			sum.MissingSnapshotSku++
		}
		for _, d := range g.SalesOrders {
			if d.AgeingDays != nil && (sum.OldestAgeingDays == nil || *d.AgeingDays > *sum.OldestAgeingDays) {
				ageing := *d.AgeingDays
				sum.OldestAgeingDays = &ageing
			}
		}
	}
	return sum
}

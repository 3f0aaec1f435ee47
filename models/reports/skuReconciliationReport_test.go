package reports

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/shopspring/decimal"
)

var reconcileAsOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

type reconcileFixture struct {
	orders    []models.Order
	units     []models.SerializedUnit
	sales     []models.SaleTransaction
	inventory []models.InventorySnapshot
	priceList []models.PriceListEntry
}

func (f reconcileFixture) run() []*models.AugmentedSkuGroup {
	return Reconcile(f.orders, f.units, f.sales, f.inventory, f.priceList, reconcileAsOf)
}

func newReconcileFixture() reconcileFixture {
	d := decimal.RequireFromString
	return reconcileFixture{
		orders: []models.Order{
			arrivedOrder("SO1", "M1", 10, day(2024, 5, 1)),
			arrivedOrder("SO1", "M1", 2, day(2024, 6, 1)),
			arrivedOrder("SO2", "M1", 5, nil),
			arrivedOrder("SO3", "M1", 3, nil),
			arrivedOrder("SO4", "M2", 2, day(2024, 6, 20)),
		},
		units: []models.SerializedUnit{
			{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "A", Color: "Black"},
			{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "B", Color: "Silver"},
			{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "C", Color: "Black"},
			{SalesOrder: "SO4", Mtm: "M2", SerialNumber: "D"},
			{SalesOrder: "SO4", Mtm: "M2", SerialNumber: "E"},
		},
		sales: []models.SaleTransaction{
			{ProductId: "M1", Quantity: 1, InvoiceDate: day(2024, 6, 30), SerialNumber: strPtr("A")},
			{ProductId: "M1", Quantity: 2, InvoiceDate: day(2024, 4, 2)},
			{ProductId: "M1", Quantity: 3, InvoiceDate: day(2024, 4, 9)},
			{ProductId: "M1", Quantity: 4, InvoiceDate: day(2024, 4, 1)},
			{ProductId: "M1", Quantity: 8, InvoiceDate: day(2024, 7, 1)},
			{ProductId: "M1", Quantity: 16},
			// serial-only sales are attributed through the ledger
			{Quantity: 1, InvoiceDate: day(2024, 6, 25), SerialNumber: strPtr("D")},
			{Quantity: 1, InvoiceDate: day(2024, 6, 26), SerialNumber: strPtr("E")},
		},
		inventory: []models.InventorySnapshot{
			{Mtm: "M1", OnHandQty: 2, OnTheWayQty: 8, OnHandValue: d("160"), OnTheWayValue: d("640"), AverageLandingCost: d("80"), ProductLine: "ThinkPad"},
			{Mtm: "M2", OnHandQty: -2, AverageLandingCost: d("0")},
			{Mtm: "M3", OnHandQty: 4, OnHandValue: d("40"), AverageLandingCost: d("10"), ProductLine: "Accessories"},
		},
		priceList: []models.PriceListEntry{
			{Mtm: "M1", SalesOrder: "SO9", ModelName: "A-model", Sdp: d("90"), Srp: d("100"), Color: "Red"},
			{Mtm: "M1", ModelName: "B-model", Description: "14in", Sdp: d("100"), Srp: d("125")},
		},
	}
}

func groupByMtm(t *testing.T, groups []*models.AugmentedSkuGroup, mtm string) *models.AugmentedSkuGroup {
	t.Helper()
	for _, g := range groups {
		if g.Mtm == mtm {
			return g
		}
	}
	t.Fatalf("group %s not found", mtm)
	return nil
}

func detailBySO(t *testing.T, g *models.AugmentedSkuGroup, so string) models.SalesOrderDetail {
	t.Helper()
	for _, d := range g.SalesOrders {
		if d.SalesOrder == so {
			return d
		}
	}
	t.Fatalf("sales order %s not found under %s", so, g.Mtm)
	return models.SalesOrderDetail{}
}

func TestReconcile_OnTheWayAggregatesUnarrivedOrders(t *testing.T) {
	orders := []models.Order{
		arrivedOrder("SO2", "M1", 5, nil),
		arrivedOrder("SO3", "M1", 3, nil),
	}
	groups := Reconcile(orders, nil, nil, nil, nil, reconcileAsOf)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	g := groups[0]
	if g.LedgerOnTheWayQty != 8 {
		t.Fatalf("expected on-the-way 8, got %d", g.LedgerOnTheWayQty)
	}
	if detailBySO(t, g, "SO2").OnTheWayQty != 5 || detailBySO(t, g, "SO3").OnTheWayQty != 3 {
		t.Fatalf("unexpected details %+v", g.SalesOrders)
	}
	// no snapshot and no price list
	if g.HasSnapshot || g.OnHandQty != 0 || !g.OnHandValue.IsZero() || g.WeeksOfInventory != nil {
		t.Fatalf("expected defaults without snapshot, got %+v", g)
	}
	if g.SdpMargin != nil || g.SrpMargin != nil || g.SdpProfit != nil || g.SrpProfit != nil {
		t.Fatalf("expected nil profitability without prices")
	}
	if len(g.WeeklySales) != models.WeeksInSalesWindow {
		t.Fatalf("expected %d weekly slots, got %d", models.WeeksInSalesWindow, len(g.WeeklySales))
	}
}

func TestReconcile_FullFixture(t *testing.T) {
	groups := newReconcileFixture().run()
	if len(groups) != 3 || groups[0].Mtm != "M1" || groups[1].Mtm != "M2" || groups[2].Mtm != "M3" {
		t.Fatalf("expected groups M1, M2, M3 in order, got %d", len(groups))
	}

	m1 := groupByMtm(t, groups, "M1")
	// first price entry in canonical order wins; SO9 still lists
	if m1.ModelName != "B-model" || m1.Description != "14in" || m1.Sdp.String() != "100" || m1.Srp.String() != "125" {
		t.Fatalf("unexpected price fields %+v", m1)
	}
	if decStr(m1.SdpMargin) != "20" || decStr(m1.SrpMargin) != "20" || decStr(m1.SdpProfit) != "20" || decStr(m1.SrpProfit) != "25" {
		t.Fatalf("unexpected margins %s %s %s %s", decStr(m1.SdpMargin), decStr(m1.SrpMargin), decStr(m1.SdpProfit), decStr(m1.SrpProfit))
	}
	if !m1.HasSnapshot || m1.OnHandQty != 2 || m1.OnTheWayQty != 8 || m1.ProductLine != "ThinkPad" || m1.Oversold {
		t.Fatalf("unexpected snapshot fields %+v", m1)
	}

	so := []string{}
	for _, d := range m1.SalesOrders {
		so = append(so, d.SalesOrder)
	}
	if len(so) != 4 || so[0] != "SO1" || so[1] != "SO2" || so[2] != "SO3" || so[3] != "SO9" {
		t.Fatalf("expected SO1, SO2, SO3, SO9, got %v", so)
	}

	so1 := detailBySO(t, m1, "SO1")
	if so1.ShippedQty != 12 || so1.OnHandQty != 2 || so1.SoldQty != 1 || so1.OnTheWayQty != 0 {
		t.Fatalf("unexpected SO1 detail %+v", so1)
	}
	if so1.Color != "Black, Silver" {
		t.Fatalf("expected ledger colors, got %q", so1.Color)
	}
	if so1.ArrivalDate == nil || so1.ArrivalDate.Format("2006-01-02") != "2024-06-01" {
		t.Fatalf("expected latest arrival 2024-06-01, got %v", so1.ArrivalDate)
	}
	if so1.AgeingDays == nil || *so1.AgeingDays != 29 {
		t.Fatalf("expected ageing 29, got %v", so1.AgeingDays)
	}
	so2 := detailBySO(t, m1, "SO2")
	if so2.ArrivalDate != nil || so2.AgeingDays != nil || so2.OnTheWayQty != 5 {
		t.Fatalf("unexpected SO2 detail %+v", so2)
	}
	if so9 := detailBySO(t, m1, "SO9"); so9.Color != "Red" || so9.ShippedQty != 0 {
		t.Fatalf("expected price-list color for SO9, got %+v", so9)
	}
	if m1.LedgerOnHandQty != 2 || m1.LedgerOnTheWayQty != 8 {
		t.Fatalf("unexpected ledger totals %d %d", m1.LedgerOnHandQty, m1.LedgerOnTheWayQty)
	}

	// window 2024-04-02..2024-06-30; 04-01 and 07-01 and undated sales drop out
	want := [models.WeeksInSalesWindow]int{2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if m1.WeeklySales != want {
		t.Fatalf("expected weekly %v, got %v", want, m1.WeeklySales)
	}
	if m1.Sales90d != 6 {
		t.Fatalf("expected sales90d 6, got %d", m1.Sales90d)
	}

	m2 := groupByMtm(t, groups, "M2")
	if !m2.Oversold || m2.OnHandQty != -2 {
		t.Fatalf("expected oversold M2 with negative on hand, got %+v", m2)
	}
	if m2.SdpMargin != nil || m2.SdpProfit != nil {
		t.Fatalf("expected nil margins without price or cost")
	}
	if m2.Sales90d != 2 {
		t.Fatalf("expected serial-only sales attributed to M2, got %d", m2.Sales90d)
	}
	if so4 := detailBySO(t, m2, "SO4"); so4.SoldQty != 2 || so4.OnHandQty != 0 || so4.Oversold || *so4.AgeingDays != 10 {
		t.Fatalf("unexpected SO4 detail %+v", so4)
	}

	m3 := groupByMtm(t, groups, "M3")
	if len(m3.SalesOrders) != 0 || m3.OnHandQty != 4 || m3.ModelName != "" {
		t.Fatalf("expected snapshot-only group, got %+v", m3)
	}
}

func TestReconcile_WeeklySalesNeverExceedTotal(t *testing.T) {
	f := newReconcileFixture()
	groups := f.run()
	for _, g := range groups {
		total := 0
		for _, s := range f.sales {
			if s.ProductId == g.Mtm {
				total += s.Quantity
			}
		}
		sum := 0
		for _, q := range g.WeeklySales {
			sum += q
		}
		if sum != g.Sales90d || (g.Mtm == "M1" && sum > total) {
			t.Fatalf("%s: weekly sum %d, sales90d %d, total %d", g.Mtm, sum, g.Sales90d, total)
		}
	}
}

func TestReconcile_DetailOversoldWhenMoreSoldThanShipped(t *testing.T) {
	orders := []models.Order{arrivedOrder("SO1", "M1", 1, day(2024, 6, 1))}
	units := []models.SerializedUnit{
		{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "A"},
		{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "B"},
	}
	sales := []models.SaleTransaction{
		{ProductId: "M1", Quantity: 1, SerialNumber: strPtr("A")},
		{ProductId: "M1", Quantity: 1, SerialNumber: strPtr("B")},
	}
	groups := Reconcile(orders, units, sales, nil, nil, reconcileAsOf)
	if !groups[0].Oversold || !groups[0].SalesOrders[0].Oversold {
		t.Fatalf("expected oversold detail, got %+v", groups[0].SalesOrders[0])
	}
	if sum := Summarize(groups); sum.OversoldSkuCount != 1 {
		t.Fatalf("expected one oversold sku in summary, got %d", sum.OversoldSkuCount)
	}
}

func TestReconcile_DuplicateInventorySnapshotsAreSummed(t *testing.T) {
	d := decimal.RequireFromString
	inventory := []models.InventorySnapshot{
		{Mtm: "M1", OnHandQty: 3, OnHandValue: d("30"), AverageLandingCost: d("12"), ProductLine: "B"},
		{Mtm: "M1", OnHandQty: 2, OnHandValue: d("20"), AverageLandingCost: d("10"), ProductLine: "A"},
	}
	g := Reconcile(nil, nil, nil, inventory, nil, reconcileAsOf)[0]
	if g.OnHandQty != 5 || g.OnHandValue.String() != "50" {
		t.Fatalf("expected summed quantities, got %d %s", g.OnHandQty, g.OnHandValue)
	}
	if g.ProductLine != "A" || g.AverageLandingCost.String() != "10" {
		t.Fatalf("expected scalar fields from first canonical snapshot, got %s %s", g.ProductLine, g.AverageLandingCost)
	}
}

func TestReconcile_OrderWithArrivalDateOnly(t *testing.T) {
	arrival := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{{SalesOrder: "SO1", Mtm: "M1", Qty: 10, ActualArrival: &arrival}}
	units := []models.SerializedUnit{
		{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "A"},
		{SalesOrder: "SO1", Mtm: "M1", SerialNumber: "B"},
	}
	sales := []models.SaleTransaction{{ProductId: "M1", Quantity: 1, SerialNumber: strPtr("A")}}

	groups := Reconcile(orders, units, sales, nil, nil, reconcileAsOf)
	if len(groups) != 1 || len(groups[0].SalesOrders) != 1 {
		t.Fatalf("expected one group with one sales order, got %+v", groups)
	}
	g, d := groups[0], groups[0].SalesOrders[0]
	if d.OnHandQty != 1 || d.OnTheWayQty != 0 || g.LedgerOnHandQty != 1 || g.LedgerOnTheWayQty != 0 {
		t.Fatalf("expected 1 on hand and nothing on the way, got detail %+v group %d/%d", d, g.LedgerOnHandQty, g.LedgerOnTheWayQty)
	}
	if d.AgeingDays == nil || *d.AgeingDays != 172 {
		t.Fatalf("expected ageing 172, got %v", d.AgeingDays)
	}
}

func TestReconcile_DuplicateInventoryScalarsIndependentOfOrder(t *testing.T) {
	d := decimal.RequireFromString
	low, high := d("1"), d("9")
	a := models.InventorySnapshot{Mtm: "M1", OnHandQty: 1, AverageLandingCost: d("10"), WeeksOfInventory: &low}
	b := a
	b.WeeksOfInventory = &high
	c := a
	c.WeeksOfInventory = nil

	for _, inventory := range [][]models.InventorySnapshot{{a, b, c}, {b, c, a}, {c, b, a}} {
		g := Reconcile(nil, nil, nil, inventory, nil, reconcileAsOf)[0]
		if g.WeeksOfInventory != nil || g.OnHandQty != 3 {
			t.Fatalf("expected nil weeks of inventory first and summed quantity, got %v %d", g.WeeksOfInventory, g.OnHandQty)
		}
	}
	g := Reconcile(nil, nil, nil, []models.InventorySnapshot{b, a}, nil, reconcileAsOf)[0]
	if g.WeeksOfInventory == nil || g.WeeksOfInventory.String() != "1" {
		t.Fatalf("expected the smallest weeks of inventory, got %v", g.WeeksOfInventory)
	}
}

func reconcileJSON(t *testing.T, groups []*models.AugmentedSkuGroup) string {
	t.Helper()
	b, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func shuffled[T any](r *rand.Rand, s []T) []T {
	out := append([]T(nil), s...)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestReconcile_IdempotentAndOrderInvariant(t *testing.T) {
	f := newReconcileFixture()
	// duplicate rows that differ only in weeks of inventory
	woiLow, woiHigh := decimal.NewFromInt(1), decimal.NewFromInt(9)
	dupLow, dupHigh := f.inventory[2], f.inventory[2]
	dupLow.WeeksOfInventory, dupHigh.WeeksOfInventory = &woiLow, &woiHigh
	f.inventory = append(f.inventory, dupLow, dupHigh)
	want := reconcileJSON(t, f.run())
	if again := reconcileJSON(t, f.run()); again != want {
		t.Fatalf("reconcile is not idempotent")
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		g := reconcileFixture{
			orders:    shuffled(r, f.orders),
			units:     shuffled(r, f.units),
			sales:     shuffled(r, f.sales),
			inventory: shuffled(r, f.inventory),
			priceList: shuffled(r, f.priceList),
		}
		if got := reconcileJSON(t, g.run()); got != want {
			t.Fatalf("shuffle %d changed the result:\n got %s\nwant %s", i, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(newReconcileFixture().run())
	if sum.SkuCount != 3 || sum.SalesOrderCount != 5 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	if sum.OnHandQty != 4 || sum.OnHandValue.String() != "200" || sum.OnTheWayQty != 8 {
		t.Fatalf("unexpected snapshot totals %+v", sum)
	}
	if sum.LedgerOnTheWayQty != 8 || sum.Sales90d != 8 || sum.OversoldSkuCount != 1 || sum.MissingSnapshotSku != 0 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if sum.OldestAgeingDays == nil || *sum.OldestAgeingDays != 29 {
		t.Fatalf("expected oldest ageing 29, got %v", sum.OldestAgeingDays)
	}

	empty := Summarize(nil)
	if empty.SkuCount != 0 || empty.OldestAgeingDays != nil || !empty.OnHandValue.IsZero() {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/shopspring/decimal"
)

// RecordIssue describes one problem found while normalizing a raw row.
// Dropped is true when the whole row was excluded.
type RecordIssue struct {
	Collection Collection `json:"collection"`
	Index      int        `json:"index"`
	Field      string     `json:"field,omitempty"`
	Kind       IssueKind  `json:"kind"`
	Value      any        `json:"value,omitempty"`
	Message    string     `json:"message"`
	Dropped    bool       `json:"dropped"`
}

// NormalizedSnapshot is the typed, validated form of a RawSnapshot.
type NormalizedSnapshot struct {
	Orders          []Order             `json:"orders"`
	SerializedUnits []SerializedUnit    `json:"serializedUnits"`
	Sales           []SaleTransaction   `json:"sales"`
	Inventory       []InventorySnapshot `json:"inventory"`
	PriceList       []PriceListEntry    `json:"priceList"`
	Issues          []RecordIssue       `json:"issues"`
}

// IssueCounts tallies issues per kind.
func (n NormalizedSnapshot) IssueCounts() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, is := range n.Issues {
		counts[is.Kind]++
	}
	return counts
}

type rowNormalizer struct {
	collection Collection
	index      int
	row        RawRecord
	loc        *time.Location
	issues     []RecordIssue
}

func (rn *rowNormalizer) report(field string, kind IssueKind, value any, msg string) {
	rn.issues = append(rn.issues, RecordIssue{
		Collection: rn.collection,
		Index:      rn.index,
		Field:      field,
		Kind:       kind,
		Value:      value,
		Message:    msg,
	})
}

func (rn *rowNormalizer) str(field string, aliases ...string) string {
	return rn.row.String(field, aliases...)
}

func (rn *rowNormalizer) optStr(field string, aliases ...string) *string {
	return utils.NilIfEmpty(rn.row.String(field, aliases...))
}

// non-numeric values are reported and read as zero
func (rn *rowNormalizer) dec(field string, aliases ...string) (decimal.Decimal, bool) {
	d, present, err := rn.row.Decimal(field, aliases...)
	if err != nil {
		v, _ := rn.row.Lookup(field, aliases...)
		rn.report(field, IssueKindMalformedInput, v, err.Error())
		return decimal.Zero, false
	}
	return d, present
}

func (rn *rowNormalizer) optDec(field string, aliases ...string) *decimal.Decimal {
	d, present := rn.dec(field, aliases...)
	if !present {
		return nil
	}
	return &d
}

func (rn *rowNormalizer) integer(field string, aliases ...string) int {
	n, _, err := rn.row.Int(field, aliases...)
	if err != nil {
		v, _ := rn.row.Lookup(field, aliases...)
		rn.report(field, IssueKindMalformedInput, v, err.Error())
		return 0
	}
	return n
}

// date returns the parsed date and whether the cell was non-blank.
func (rn *rowNormalizer) date(field string, aliases ...string) (*time.Time, bool) {
	v, ok := rn.row.Lookup(field, aliases...)
	if !ok {
		return nil, false
	}
	d, err := ParseSheetDate(v, rn.loc)
	if err != nil {
		rn.report(field, IssueKindMalformedInput, v, err.Error())
		return nil, true
	}
	return d, d != nil
}

// validate drops the row when any `validate` tag fails.
func (rn *rowNormalizer) validate(entity any) bool {
	err := utils.ValidateStruct(entity)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		rn.report("", IssueKindMalformedInput, nil, err.Error())
		rn.markDropped()
		return false
	}
	fields := utils.ProcessValidationErrors(err)
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		kind := IssueKindMalformedInput
		if tag := fields[f]; tag == "required" || tag == "required_without" {
			kind = IssueKindMissingKey
		}
		rn.report(f, kind, nil, fmt.Sprintf("failed %q check", fields[f]))
	}
	rn.markDropped()
	return false
}

func (rn *rowNormalizer) markDropped() {
	for i := range rn.issues {
		rn.issues[i].Dropped = true
	}
}

// NormalizeSnapshot coerces every raw row into its canonical entity.
// Rows that cannot be attributed to a key are dropped; rows with bad numbers or dates
// are kept with the bad field zeroed or nil. Every problem is listed in Issues.
// Dates are read as calendar days in loc.
func NormalizeSnapshot(raw RawSnapshot, loc *time.Location) NormalizedSnapshot {
	if loc == nil {
		loc = time.UTC
	}
	var out NormalizedSnapshot

	each := func(c Collection, rows []RawRecord, fn func(rn *rowNormalizer)) {
		for i, row := range rows {
			rn := &rowNormalizer{collection: c, index: i, row: row, loc: loc}
			fn(rn)
			out.Issues = append(out.Issues, rn.issues...)
		}
	}

	each(CollectionOrders, raw.Orders, func(rn *rowNormalizer) {
		if o, ok := normalizeOrder(rn); ok {
			out.Orders = append(out.Orders, o)
		}
	})
	serials := make(map[string]CompositeKey, len(raw.SerializedUnits))
	each(CollectionSerializedUnits, raw.SerializedUnits, func(rn *rowNormalizer) {
		u := SerializedUnit{
			SalesOrder:   rn.str("salesOrder", "so"),
			Mtm:          rn.str("mtm"),
			SerialNumber: rn.str("serialNumber", "serial", "sn"),
			Color:        rn.str("color", "colour"),
		}
		if !rn.validate(u) {
			return
		}
		if first, dup := serials[u.SerialNumber]; dup {
			rn.report("serialNumber", IssueKindDuplicateSerial, u.SerialNumber,
				fmt.Sprintf("serial listed under %s and %s", first, u.Key()))
		} else {
			serials[u.SerialNumber] = u.Key()
		}
		out.SerializedUnits = append(out.SerializedUnits, u)
	})
	each(CollectionSales, raw.Sales, func(rn *rowNormalizer) {
		s := SaleTransaction{
			ProductId:    rn.str("productId", "mtm"),
			Quantity:     rn.integer("quantity", "qty"),
			SerialNumber: rn.optStr("serialNumber", "serial", "sn"),
			SalesOrder:   rn.optStr("salesOrder", "so"),
		}
		s.TotalRevenue, _ = rn.dec("totalRevenue", "revenue")
		s.InvoiceDate, _ = rn.date("invoiceDate", "date")
		if !rn.validate(s) {
			return
		}
		out.Sales = append(out.Sales, s)
	})
	each(CollectionInventory, raw.Inventory, func(rn *rowNormalizer) {
		inv := InventorySnapshot{
			Mtm:              rn.str("mtm"),
			OnHandQty:        rn.integer("onHandQty", "onHand"),
			OnTheWayQty:      rn.integer("onTheWayQty", "otwQty", "onTheWay"),
			WeeksOfInventory: rn.optDec("weeksOfInventory", "woi"),
			ProductLine:      rn.str("productLine"),
		}
		inv.OnHandValue, _ = rn.dec("onHandValue")
		inv.OnTheWayValue, _ = rn.dec("onTheWayValue", "otwValue")
		inv.AverageLandingCost, _ = rn.dec("averageLandingCost", "landingCost", "alc")
		if !rn.validate(inv) {
			return
		}
		out.Inventory = append(out.Inventory, inv)
	})
	each(CollectionPriceList, raw.PriceList, func(rn *rowNormalizer) {
		p := PriceListEntry{
			Mtm:         rn.str("mtm"),
			ModelName:   rn.str("modelName", "model"),
			Description: rn.str("description"),
			SalesOrder:  rn.str("salesOrder", "so"),
			Color:       rn.str("color", "colour"),
		}
		p.Sdp, _ = rn.dec("sdp", "standardDealerPrice")
		p.Srp, _ = rn.dec("srp", "suggestedRetailPrice")
		if !rn.validate(p) {
			return
		}
		out.PriceList = append(out.PriceList, p)
	})

	return out
}

func normalizeOrder(rn *rowNormalizer) (Order, bool) {
	o := Order{
		SalesOrder:         rn.str("salesOrder", "so"),
		Mtm:                rn.str("mtm"),
		Qty:                rn.integer("qty", "quantity"),
		FactoryToSgpStatus: NewShipmentStatus(rn.str("factoryToSgpStatus")),
		SgpToKhStatus:      NewShipmentStatus(rn.str("sgpToKhStatus")),
		DeliveryNumber:     rn.str("deliveryNumber"),
		ModelName:          rn.str("modelName", "model"),
		Specification:      rn.str("specification", "spec"),
	}
	o.FobUnitPrice, _ = rn.dec("fobUnitPrice", "fob")
	var hasValue bool
	o.OrderValue, hasValue = rn.dec("orderValue")
	if !hasValue {
		o.OrderValue = o.FobUnitPrice.Mul(decimal.NewFromInt(int64(o.Qty)))
	}
	o.DateIssuePI, _ = rn.date("dateIssuePI", "piDate")
	o.ScheduledShipDate, _ = rn.date("scheduledShipDate")
	o.Eta, _ = rn.date("eta")
	o.ActualArrival, o.Arrived = rn.date("actualArrival", "arrivalDate")
	if !rn.validate(o) {
		return Order{}, false
	}
	return o, true
}

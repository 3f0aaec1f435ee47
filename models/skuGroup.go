package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeeksInSalesWindow is the number of weekly slots in the trailing sales window.
const WeeksInSalesWindow = 13

// SalesWindowDays is the length of the trailing sales window, today included.
const SalesWindowDays = 90

// AugmentedSkuGroup is the reconciled view of one mtm.
type AugmentedSkuGroup struct {
	Mtm         string          `json:"mtm"`
	ModelName   string          `json:"modelName"`
	Description string          `json:"description"`
	ProductLine string          `json:"productLine"`
	Sdp         decimal.Decimal `json:"sdp"`
	Srp         decimal.Decimal `json:"srp"`

	// from the inventory snapshot
	OnHandQty          int              `json:"onHandQty"`
	OnTheWayQty        int              `json:"onTheWayQty"`
	OnHandValue        decimal.Decimal  `json:"onHandValue"`
	OnTheWayValue      decimal.Decimal  `json:"onTheWayValue"`
	AverageLandingCost decimal.Decimal  `json:"averageLandingCost"`
	WeeksOfInventory   *decimal.Decimal `json:"weeksOfInventory"`
	HasSnapshot        bool             `json:"hasSnapshot"`

	// sums over SalesOrders, derived from the ledger and the orders
	LedgerOnHandQty   int `json:"ledgerOnHandQty"`
	LedgerOnTheWayQty int `json:"ledgerOnTheWayQty"`

	// Oversold is set when the snapshot reports a negative on-hand or on-the-way quantity,
	// or when any sales order sold more serials than it shipped.
	Oversold bool `json:"oversold"`

	SdpMargin *decimal.Decimal `json:"sdpMargin"`
	SrpMargin *decimal.Decimal `json:"srpMargin"`
	SdpProfit *decimal.Decimal `json:"sdpProfit"`
	SrpProfit *decimal.Decimal `json:"srpProfit"`

	Sales90d int `json:"sales90d"`
	// WeeklySales runs oldest to newest.
	WeeklySales [WeeksInSalesWindow]int `json:"weeklySales"`

	SalesOrders []SalesOrderDetail `json:"salesOrders"`
}

type SalesOrderDetail struct {
	SalesOrder  string     `json:"salesOrder"`
	ShippedQty  int        `json:"shippedQty"`
	OnHandQty   int        `json:"onHandQty"`
	SoldQty     int        `json:"soldQty"`
	OnTheWayQty int        `json:"onTheWayQty"`
	Color       string     `json:"color"`
	ArrivalDate *time.Time `json:"arrivalDate"`
	AgeingDays  *int       `json:"ageingDays"`
	Oversold    bool       `json:"oversold"`
}

// ReconciliationSummary totals a reconciled view for dashboard KPIs.
type ReconciliationSummary struct {
	SkuCount           int             `json:"skuCount"`
	SalesOrderCount    int             `json:"salesOrderCount"`
	OnHandQty          int             `json:"onHandQty"`
	OnTheWayQty        int             `json:"onTheWayQty"`
	OnHandValue        decimal.Decimal `json:"onHandValue"`
	OnTheWayValue      decimal.Decimal `json:"onTheWayValue"`
	LedgerOnHandQty    int             `json:"ledgerOnHandQty"`
	LedgerOnTheWayQty  int             `json:"ledgerOnTheWayQty"`
	Sales90d           int             `json:"sales90d"`
	OversoldSkuCount   int             `json:"oversoldSkuCount"`
	MissingSnapshotSku int             `json:"missingSnapshotSku"`
	OldestAgeingDays   *int            `json:"oldestAgeingDays"`
}

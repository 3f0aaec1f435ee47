package models

import "github.com/shopspring/decimal"

// InventorySnapshot is the stock position per mtm as reported by the inventory sheet.
// Quantities may be negative; that is an oversold position, not an input error.
type InventorySnapshot struct {
	Mtm                string           `json:"mtm" validate:"required"`
	OnHandQty          int              `json:"onHandQty"`
	OnTheWayQty        int              `json:"onTheWayQty"`
	OnHandValue        decimal.Decimal  `json:"onHandValue"`
	OnTheWayValue      decimal.Decimal  `json:"onTheWayValue"`
	AverageLandingCost decimal.Decimal  `json:"averageLandingCost"`
	WeeksOfInventory   *decimal.Decimal `json:"weeksOfInventory"`
	ProductLine        string           `json:"productLine"`
}

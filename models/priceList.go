package models

import "github.com/shopspring/decimal"

type PriceListEntry struct {
	Mtm         string          `json:"mtm" validate:"required"`
	ModelName   string          `json:"modelName"`
	Description string          `json:"description"`
	Sdp         decimal.Decimal `json:"sdp"`
	Srp         decimal.Decimal `json:"srp"`
	// optional: rows tied to a sales order also list that order under the mtm
	SalesOrder string `json:"salesOrder"`
	Color      string `json:"color"`
}

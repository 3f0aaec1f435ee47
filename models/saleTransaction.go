package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleTransaction struct {
	InvoiceDate  *time.Time      `json:"invoiceDate"`
	ProductId    string          `json:"productId" validate:"required_without=SerialNumber"`
	Quantity     int             `json:"quantity"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	SerialNumber *string         `json:"serialNumber"`
	SalesOrder   *string         `json:"salesOrder"`
}

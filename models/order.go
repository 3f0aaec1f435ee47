package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one purchase-order line: a quantity of one mtm under one sales order.
type Order struct {
	SalesOrder        string          `json:"salesOrder" validate:"required"`
	Mtm               string          `json:"mtm" validate:"required"`
	Qty               int             `json:"qty" validate:"gte=0"`
	FobUnitPrice      decimal.Decimal `json:"fobUnitPrice"`
	OrderValue        decimal.Decimal `json:"orderValue"`
	DateIssuePI       *time.Time      `json:"dateIssuePI"`
	ScheduledShipDate *time.Time      `json:"scheduledShipDate"`
	Eta               *time.Time      `json:"eta"`
	// ActualArrival is nil both when the order has not arrived and when the
	// arrival cell could not be parsed; Arrived tells the two apart.
	ActualArrival      *time.Time     `json:"actualArrival"`
	Arrived            bool           `json:"arrived"`
	FactoryToSgpStatus ShipmentStatus `json:"factoryToSgpStatus"`
	SgpToKhStatus      ShipmentStatus `json:"sgpToKhStatus"`
	DeliveryNumber     string         `json:"deliveryNumber"`
	ModelName          string         `json:"modelName"`
	Specification      string         `json:"specification"`
}

func (o Order) Key() CompositeKey {
	return NewCompositeKey(o.SalesOrder, o.Mtm)
}

// HasArrived reports an arrival date or a non-blank arrival cell.
func (o Order) HasArrived() bool {
	return o.Arrived || o.ActualArrival != nil
}

package models

// SerializedUnit is one physical unit in the serial ledger.
type SerializedUnit struct {
	SalesOrder   string `json:"salesOrder"`
	Mtm          string `json:"mtm"`
	SerialNumber string `json:"serialNumber" validate:"required"`
	Color        string `json:"color"`
}

func (u SerializedUnit) Key() CompositeKey {
	return NewCompositeKey(u.SalesOrder, u.Mtm)
}

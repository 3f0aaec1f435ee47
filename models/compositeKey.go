package models

import "strings"

// CompositeKey joins orders, serialized units and ledger counts on salesOrder+mtm.
// Build it through NewCompositeKey so every producer trims the same way.
type CompositeKey struct {
	SalesOrder string
	Mtm        string
}

func NewCompositeKey(salesOrder string, mtm string) CompositeKey {
	return CompositeKey{
		SalesOrder: strings.TrimSpace(salesOrder),
		Mtm:        strings.TrimSpace(mtm),
	}
}

// String renders the key as "salesOrder|mtm".
func (k CompositeKey) String() string {
	return k.SalesOrder + "|" + k.Mtm
}

// Less orders keys by salesOrder, then mtm.
func (k CompositeKey) Less(other CompositeKey) bool {
	if k.SalesOrder != other.SalesOrder {
		return k.SalesOrder < other.SalesOrder
	}
	return k.Mtm < other.Mtm
}

func (k CompositeKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

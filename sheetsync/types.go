package sheetsync

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mmdatafocus/distributor_backend/models"
)

// SnapshotSource delivers one raw snapshot of the five sheet collections.
type SnapshotSource interface {
	Name() string
	FetchSnapshot(ctx context.Context) (models.RawSnapshot, error)
}

var (
	ErrNotConfigured = errors.New("sheet api base url is not set")
	ErrEmptyAPIKey   = errors.New("sheet api key is empty")
)

// collectionPaths maps each collection to its endpoint under the API base url.
var collectionPaths = map[models.Collection]string{
	models.CollectionOrders:          "/orders",
	models.CollectionSerializedUnits: "/serialized-units",
	models.CollectionSales:           "/sales",
	models.CollectionInventory:       "/inventory",
	models.CollectionPriceList:       "/price-list",
}

// sheetListResponse is the enveloped list shape; some endpoints return a bare array instead.
type sheetListResponse struct {
	Data  []json.RawMessage `json:"data"`
	Items []json.RawMessage `json:"items"`
}

func setCollection(snap *models.RawSnapshot, c models.Collection, rows []models.RawRecord) {
	switch c {
	case models.CollectionOrders:
		snap.Orders = rows
	case models.CollectionSerializedUnits:
		snap.SerializedUnits = rows
	case models.CollectionSales:
		snap.Sales = rows
	case models.CollectionInventory:
		snap.Inventory = rows
	case models.CollectionPriceList:
		snap.PriceList = rows
	}
}

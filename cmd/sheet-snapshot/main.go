package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/sheetsync"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/sirupsen/logrus"
)

// sheet-snapshot downloads the five sheet collections and saves them as one raw snapshot,
// the input format of sku-report and trend-report.
//
// Example:
//
//	SHEET_API_BASE_URL=https://... SHEET_API_KEY=... go run ./cmd/sheet-snapshot --out=snapshot.json
func main() {
	settings := config.GetSettings()
	var (
		out     = flag.String("out", "-", "output file, - for stdout")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall fetch timeout")
	)
	flag.Parse()

	client, err := sheetsync.NewClientFromSettings(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet api: %v\n", err)
		os.Exit(2)
	}

	logger := config.GetLogger()
	// stdout carries the report
	logger.SetOutput(os.Stderr)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	started := time.Now()
	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		config.LogError(logger, "sheet-snapshot", "main", "FetchSnapshot", nil, err)
		os.Exit(1)
	}
	if err := utils.WriteJSONFile(*out, snap); err != nil {
		config.LogError(logger, "sheet-snapshot", "main", "WriteJSONFile", *out, err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"orders":          len(snap.Orders),
		"serializedUnits": len(snap.SerializedUnits),
		"sales":           len(snap.Sales),
		"inventory":       len(snap.Inventory),
		"priceList":       len(snap.PriceList),
		"ms":              time.Since(started).Milliseconds(),
	}).Info("snapshot saved")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/mmdatafocus/distributor_backend/models/reports"
	"github.com/mmdatafocus/distributor_backend/sheetsync"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/sirupsen/logrus"

	_ "time/tzdata"
)

type skuReport struct {
	AsOf    string                       `json:"asOf"`
	Groups  []*models.AugmentedSkuGroup  `json:"groups"`
	Summary models.ReconciliationSummary `json:"summary"`
	Issues  []models.RecordIssue         `json:"issues"`
}

// sku-report reconciles one snapshot and prints the per-SKU view.
//
// Example:
//
//	go run ./cmd/sku-report --snapshot=snapshot.json --as_of=2024-06-30
//	go run ./cmd/sku-report --format=xlsx --out=sku.xlsx   # snapshot from SHEET_API_BASE_URL
func main() {
	settings := config.GetSettings()
	var (
		snapshotPath = flag.String("snapshot", "", "raw snapshot JSON file (default: fetch from the sheet API)")
		asOfStr      = flag.String("as_of", "", "reference day YYYY-MM-DD (default: today)")
		tz           = flag.String("tz", settings.ReferenceTimezone, "reference timezone")
		format       = flag.String("format", "json", "json or xlsx")
		out          = flag.String("out", "-", "output file, - for stdout (json only)")
	)
	flag.Parse()

	if *format != "json" && *format != "xlsx" {
		fmt.Fprintln(os.Stderr, "--format must be json or xlsx")
		os.Exit(2)
	}
	if *format == "xlsx" && (*out == "" || *out == "-") {
		fmt.Fprintln(os.Stderr, "--out is required for xlsx")
		os.Exit(2)
	}

	loc, err := utils.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --tz: %v\n", err)
		os.Exit(2)
	}
	asOf := utils.ConvertToDate(time.Now(), loc)
	if *asOfStr != "" {
		if asOf, err = time.ParseInLocation("2006-01-02", *asOfStr, loc); err != nil {
			fmt.Fprintf(os.Stderr, "invalid --as_of: %v\n", err)
			os.Exit(2)
		}
	}

	source, err := sheetsync.SourceFor(*snapshotPath, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot source: %v\n", err)
		os.Exit(2)
	}

	logger := config.GetLogger()
	// stdout carries the report
	logger.SetOutput(os.Stderr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	raw, err := source.FetchSnapshot(ctx)
	if err != nil {
		config.LogError(logger, "sku-report", "main", "FetchSnapshot", source.Name(), err)
		os.Exit(1)
	}
	snap := models.NormalizeSnapshot(raw, loc)
	if len(snap.Issues) > 0 {
		logger.WithFields(logrus.Fields{"issues": snap.IssueCounts()}).Warn("snapshot normalization issues")
	}
	groups := reports.ReconcileSnapshot(snap, asOf)
	summary := reports.Summarize(groups)

	if *format == "xlsx" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		if err := reports.ExportSkuReconciliation(f, groups, summary); err != nil {
			config.LogError(logger, "sku-report", "main", "ExportSkuReconciliation", *out, err)
			os.Exit(1)
		}
		return
	}

	report := skuReport{
		AsOf:    asOf.Format("2006-01-02"),
		Groups:  groups,
		Summary: summary,
		Issues:  snap.Issues,
	}
	if err := utils.WriteJSONFile(*out, report); err != nil {
		config.LogError(logger, "sku-report", "main", "WriteJSONFile", *out, err)
		os.Exit(1)
	}
}

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

	_ "time/tzdata"
)

type trendReport struct {
	Series      models.TrendSeries      `json:"series"`
	Granularity models.Granularity      `json:"granularity"`
	AsOf        string                  `json:"asOf"`
	Points      []models.TrendPoint     `json:"points"`
	Statistics  *models.TrendStatistics `json:"statistics"`
}

// trend-report buckets one snapshot series and prints points with statistics.
//
// Example:
//
//	go run ./cmd/trend-report --snapshot=snapshot.json --series=sales_revenue --granularity=weekly --period=4
func main() {
	settings := config.GetSettings()
	var (
		snapshotPath   = flag.String("snapshot", "", "raw snapshot JSON file (default: fetch from the sheet API)")
		seriesStr      = flag.String("series", string(models.TrendSeriesSalesRevenue), "sales_revenue, sales_units, order_value, order_units, arrival_units")
		granularityStr = flag.String("granularity", string(models.GranularityMonthly), "daily, weekly, monthly, quarterly, yearly")
		period         = flag.Int("period", settings.MovingAveragePeriod, "moving average period")
		asOfStr        = flag.String("as_of", "", "reference day YYYY-MM-DD (default: today)")
		tz             = flag.String("tz", settings.ReferenceTimezone, "reference timezone")
		format         = flag.String("format", "json", "json or xlsx")
		out            = flag.String("out", "-", "output file, - for stdout (json only)")
	)
	flag.Parse()

	series, err := models.ParseTrendSeries(*seriesStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	granularity, err := models.ParseGranularity(*granularityStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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
		config.LogError(logger, "trend-report", "main", "FetchSnapshot", source.Name(), err)
		os.Exit(1)
	}
	snap := models.NormalizeSnapshot(raw, loc)
	points, err := reports.BuildSeriesTrend(snap, series, granularity, reports.DefaultTrendOptions(asOf, loc))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	stats, err := reports.ComputeTrendStatistics(points, *period)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *format == "xlsx" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		if err := reports.ExportTrend(f, string(series), points, stats); err != nil {
			config.LogError(logger, "trend-report", "main", "ExportTrend", *out, err)
			os.Exit(1)
		}
		return
	}

	report := trendReport{
		Series:      series,
		Granularity: granularity,
		AsOf:        asOf.Format("2006-01-02"),
		Points:      points,
		Statistics:  stats,
	}
	if err := utils.WriteJSONFile(*out, report); err != nil {
		config.LogError(logger, "trend-report", "main", "WriteJSONFile", *out, err)
		os.Exit(1)
	}
}

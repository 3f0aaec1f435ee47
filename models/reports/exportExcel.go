package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSku         = "SKU"
	SheetSalesOrders = "Sales Orders"
	SheetSummary     = "Summary"
	SheetTrend       = "Trend"

	XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

var skuHeader = []interface{}{
	"MTM", "Model", "Description", "Product Line", "SDP", "SRP",
	"On Hand", "On The Way", "On Hand Value", "On The Way Value", "Avg Landing Cost", "WOI",
	"Ledger On Hand", "Ledger On The Way", "SDP Margin %", "SRP Margin %", "SDP Profit", "SRP Profit",
	"Sales 90d", "Oversold",
}

type skuRow struct{ g *models.AugmentedSkuGroup }

func (r skuRow) GetCellValues() []interface{} {
	g := r.g
	return []interface{}{
		g.Mtm, g.ModelName, g.Description, g.ProductLine, decimalCell(&g.Sdp), decimalCell(&g.Srp),
		g.OnHandQty, g.OnTheWayQty, decimalCell(&g.OnHandValue), decimalCell(&g.OnTheWayValue),
		decimalCell(&g.AverageLandingCost), decimalCell(g.WeeksOfInventory),
		g.LedgerOnHandQty, g.LedgerOnTheWayQty, decimalCell(g.SdpMargin), decimalCell(g.SrpMargin),
		decimalCell(g.SdpProfit), decimalCell(g.SrpProfit),
		g.Sales90d, g.Oversold,
	}
}

var salesOrderHeader = []interface{}{
	"MTM", "Sales Order", "Shipped", "On Hand", "Sold", "On The Way", "Color", "Arrival Date", "Ageing Days", "Oversold",
}

type salesOrderRow struct {
	mtm string
	d   models.SalesOrderDetail
}

func (r salesOrderRow) GetCellValues() []interface{} {
	var arrival, ageing interface{} = "", ""
	if r.d.ArrivalDate != nil {
		arrival = r.d.ArrivalDate.Format("2006-01-02")
	}
	if r.d.AgeingDays != nil {
		ageing = *r.d.AgeingDays
	}
	return []interface{}{
		r.mtm, r.d.SalesOrder, r.d.ShippedQty, r.d.OnHandQty, r.d.SoldQty, r.d.OnTheWayQty,
		r.d.Color, arrival, ageing, r.d.Oversold,
	}
}

var trendHeader = []interface{}{"Period", "Label", "Value", "Moving Average", "Period Growth %"}

type trendRow struct {
	p      models.TrendPoint
	ma, pg *decimal.Decimal
}

func (r trendRow) GetCellValues() []interface{} {
	return []interface{}{r.p.SortKey, r.p.Label, decimalCell(&r.p.Value), decimalCell(r.ma), decimalCell(r.pg)}
}

// decimalCell writes a number cell, or an empty cell for a missing value.
func decimalCell(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows []ExcelExporter) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row.GetCellValues()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// newWorkbook creates a workbook whose sheets are named in order; the default sheet is renamed.
func newWorkbook(sheets ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		f.Close()
		return nil, err
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ExportSkuReconciliation writes the reconciled view as an xlsx workbook.
func ExportSkuReconciliation(w io.Writer, groups []*models.AugmentedSkuGroup, summary models.ReconciliationSummary) error {
	f, err := newWorkbook(SheetSku, SheetSalesOrders, SheetSummary)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	skuRows := make([]ExcelExporter, 0, len(groups))
	var soRows []ExcelExporter
	for _, g := range groups {
		skuRows = append(skuRows, skuRow{g})
		for _, d := range g.SalesOrders {
			soRows = append(soRows, salesOrderRow{mtm: g.Mtm, d: d})
		}
	}
	if err := writeSheet(f, SheetSku, skuHeader, skuRows); err != nil {
		return fmt.Errorf("write %s sheet: %w", SheetSku, err)
	}
	if err := writeSheet(f, SheetSalesOrders, salesOrderHeader, soRows); err != nil {
		return fmt.Errorf("write %s sheet: %w", SheetSalesOrders, err)
	}

	// weekly sales columns, oldest first
	weekCols := make([]interface{}, 0, models.WeeksInSalesWindow)
	for i := 0; i < models.WeeksInSalesWindow; i++ {
		weekCols = append(weekCols, fmt.Sprintf("W%d", i+1))
	}
	startCol := len(skuHeader) + 1
	cell, _ := excelize.CoordinatesToCellName(startCol, 1)
	if err := f.SetSheetRow(SheetSku, cell, &weekCols); err != nil {
		return fmt.Errorf("write weekly header: %w", err)
	}
	for i, g := range groups {
		weekly := make([]interface{}, 0, models.WeeksInSalesWindow)
		for _, qty := range g.WeeklySales {
			weekly = append(weekly, qty)
		}
		cell, _ := excelize.CoordinatesToCellName(startCol, i+2)
		if err := f.SetSheetRow(SheetSku, cell, &weekly); err != nil {
			return fmt.Errorf("write weekly sales: %w", err)
		}
	}

	oldest := interface{}("")
	if summary.OldestAgeingDays != nil {
		oldest = *summary.OldestAgeingDays
	}
	summaryRows := [][]interface{}{
		{"SKUs", summary.SkuCount},
		{"Sales Orders", summary.SalesOrderCount},
		{"On Hand", summary.OnHandQty},
		{"On The Way", summary.OnTheWayQty},
		{"On Hand Value", decimalCell(&summary.OnHandValue)},
		{"On The Way Value", decimalCell(&summary.OnTheWayValue)},
		{"Ledger On Hand", summary.LedgerOnHandQty},
		{"Ledger On The Way", summary.LedgerOnTheWayQty},
		{"Sales 90d", summary.Sales90d},
		{"Oversold SKUs", summary.OversoldSkuCount},
		{"SKUs Without Snapshot", summary.MissingSnapshotSku},
		{"Oldest Ageing Days", oldest},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write %s sheet: %w", SheetSummary, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportTrend writes one bucketed series and its statistics as an xlsx workbook.
func ExportTrend(w io.Writer, title string, points []models.TrendPoint, stats *models.TrendStatistics) error {
	f, err := newWorkbook(SheetTrend, SheetSummary)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	rows := make([]ExcelExporter, 0, len(points))
	for i, p := range points {
		row := trendRow{p: p}
		if stats != nil && i < len(stats.MovingAverage) {
			row.ma = stats.MovingAverage[i]
			row.pg = stats.PeriodGrowth[i]
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, SheetTrend, trendHeader, rows); err != nil {
		return fmt.Errorf("write %s sheet: %w", SheetTrend, err)
	}

	summaryRows := [][]interface{}{{"Series", strings.TrimSpace(title)}}
	if stats != nil {
		summaryRows = append(summaryRows,
			[]interface{}{"Min", decimalCell(stats.Min)},
			[]interface{}{"Max", decimalCell(stats.Max)},
			[]interface{}{"Mean", decimalCell(stats.Mean)},
			[]interface{}{"Median", decimalCell(stats.Median)},
			[]interface{}{"Growth %", decimalCell(stats.Growth)},
			[]interface{}{"Moving Average Period", stats.MovingAveragePeriod},
		)
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write %s sheet: %w", SheetSummary, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

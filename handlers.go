package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/mmdatafocus/distributor_backend/models/reports"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	sourceRequest = "request"
	asOfLayout    = "2006-01-02"
)

var errSourceNotConfigured = errors.New("sheet api is not configured")

type reconcileResponse struct {
	AsOf    string                       `json:"asOf"`
	Source  string                       `json:"source"`
	Groups  []*models.AugmentedSkuGroup  `json:"groups"`
	Summary models.ReconciliationSummary `json:"summary"`
	Issues  []models.RecordIssue         `json:"issues"`
	Counts  map[models.IssueKind]int     `json:"issueCounts"`
}

// trendRecord cells are read like sheet cells; a bad date or value drops only that record.
type trendRecord struct {
	Date  any `json:"date"`
	Value any `json:"value"`
}

type trendRequest struct {
	Granularity         models.Granularity `json:"granularity" binding:"required"`
	MovingAveragePeriod *int               `json:"movingAveragePeriod" binding:"omitempty,gte=1"`
	AsOf                string             `json:"asOf"`
	Records             []trendRecord      `json:"records"`
}

type trendResponse struct {
	Series      string                  `json:"series,omitempty"`
	Granularity models.Granularity      `json:"granularity"`
	AsOf        string                  `json:"asOf"`
	Points      []models.TrendPoint     `json:"points"`
	Statistics  *models.TrendStatistics `json:"statistics"`
	Dropped     int                     `json:"dropped"`
}

// asOf reads an optional YYYY-MM-DD reference day; the default is today in the reference zone.
func (s *apiServer) asOf(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return utils.ConvertToDate(s.now(), s.loc), nil
	}
	t, err := time.ParseInLocation(asOfLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("asOf must be YYYY-MM-DD: %w", utils.ErrorInvalidValue)
	}
	return t, nil
}

func (s *apiServer) movingAveragePeriod(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.settings.MovingAveragePeriod, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, reports.ErrInvalidMovingAveragePeriod
	}
	return n, nil
}

func (s *apiServer) fetchSnapshot(ctx context.Context) (models.RawSnapshot, error) {
	if s.source == nil {
		return models.RawSnapshot{}, errSourceNotConfigured
	}
	return s.source.FetchSnapshot(ctx)
}

func (s *apiServer) sourceError(c *gin.Context, funcName string, err error) {
	if errors.Is(err, errSourceNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	config.LogError(s.logger, "handlers.go", funcName, "FetchSnapshot", nil, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch snapshot"})
}

// normalize logs issue counts; issues are never fatal.
func (s *apiServer) normalize(ctx context.Context, raw models.RawSnapshot) models.NormalizedSnapshot {
	snap := models.NormalizeSnapshot(raw, s.loc)
	if len(snap.Issues) > 0 {
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		source, _ := utils.GetSnapshotSourceFromContext(ctx)
		s.logger.WithFields(logrus.Fields{
			"module":         "handlers.go",
			"correlation_id": cid,
			"source":         source,
			"issues":         snap.IssueCounts(),
		}).Warn("snapshot normalization issues")
	}
	return snap
}

func (s *apiServer) reconcile(ctx context.Context, raw models.RawSnapshot, asOf time.Time) reconcileResponse {
	ctx, span := tracer.Start(ctx, "reconcile")
	defer span.End()
	started := time.Now()

	snap := s.normalize(ctx, raw)
	groups := reports.ReconcileSnapshot(snap, asOf)
	summary := reports.Summarize(groups)
	source, _ := utils.GetSnapshotSourceFromContext(ctx)

	span.SetAttributes(
		attribute.Int("sku_count", summary.SkuCount),
		attribute.Int("issue_count", len(snap.Issues)),
		attribute.String("source", source),
	)
	s.logSlowReport(ctx, "reconcile", started, map[string]any{"sku_count": summary.SkuCount})

	issues := snap.Issues
	if issues == nil {
		issues = []models.RecordIssue{}
	}
	return reconcileResponse{
		AsOf:    asOf.Format(asOfLayout),
		Source:  source,
		Groups:  groups,
		Summary: summary,
		Issues:  issues,
		Counts:  snap.IssueCounts(),
	}
}

func (s *apiServer) logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < s.settings.ReportSlowMs {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	s.logger.WithFields(logrus.Fields{
		"name":           name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow_report")
}

func (s *apiServer) reconcileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, err := s.asOf(c.Query("asOf"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := models.DecodeRawSnapshot(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := utils.SetSnapshotSourceInContext(c.Request.Context(), sourceRequest)
		c.JSON(http.StatusOK, s.reconcile(ctx, raw, asOf))
	}
}

func (s *apiServer) reconcileExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, err := s.asOf(c.Query("asOf"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := models.DecodeRawSnapshot(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := utils.SetSnapshotSourceInContext(c.Request.Context(), sourceRequest)
		res := s.reconcile(ctx, raw, asOf)

		var buf bytes.Buffer
		if err := reports.ExportSkuReconciliation(&buf, res.Groups, res.Summary); err != nil {
			config.LogError(s.logger, "handlers.go", "reconcileExportHandler", "ExportSkuReconciliation", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=sku-reconciliation-%s.xlsx", res.AsOf))
		c.Data(http.StatusOK, reports.XlsxContentType, buf.Bytes())
	}
}

func (s *apiServer) trendsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		asOf, err := s.asOf(req.AsOf)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		period := utils.DereferencePtr(req.MovingAveragePeriod, s.settings.MovingAveragePeriod)

		values := make([]models.DatedValue, 0, len(req.Records))
		dropped := 0
		for _, r := range req.Records {
			d, err := models.ParseSheetDate(r.Date, s.loc)
			if err != nil || d == nil {
				dropped++
				continue
			}
			v, present, err := models.RawRecord{"value": r.Value}.Decimal("value")
			if err != nil || !present {
				dropped++
				continue
			}
			values = append(values, models.DatedValue{Date: d, Value: v})
		}

		ctx, span := tracer.Start(c.Request.Context(), "trends")
		defer span.End()
		res, err := s.trend(ctx, "", req.Granularity, asOf, period, func(opts reports.TrendOptions) ([]models.TrendPoint, error) {
			return reports.AggregateDatedValues(values, req.Granularity, opts)
		})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res.Dropped = dropped
		c.JSON(http.StatusOK, res)
	}
}

func (s *apiServer) trend(
	ctx context.Context,
	series string,
	g models.Granularity,
	asOf time.Time,
	period int,
	aggregate func(reports.TrendOptions) ([]models.TrendPoint, error),
) (trendResponse, error) {
	started := time.Now()
	points, err := aggregate(reports.DefaultTrendOptions(asOf, s.loc))
	if err != nil {
		return trendResponse{}, err
	}
	stats, err := reports.ComputeTrendStatistics(points, period)
	if err != nil {
		return trendResponse{}, err
	}
	s.logSlowReport(ctx, "trend", started, map[string]any{"series": series, "granularity": g, "points": len(points)})
	return trendResponse{
		Series:      series,
		Granularity: g,
		AsOf:        asOf.Format(asOfLayout),
		Points:      points,
		Statistics:  stats,
	}, nil
}

func (s *apiServer) dashboardSkuHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, err := s.asOf(c.Query("asOf"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := s.fetchSnapshot(c.Request.Context())
		if err != nil {
			s.sourceError(c, "dashboardSkuHandler", err)
			return
		}
		ctx := utils.SetSnapshotSourceInContext(c.Request.Context(), s.source.Name())
		c.JSON(http.StatusOK, s.reconcile(ctx, raw, asOf))
	}
}

func (s *apiServer) dashboardTrendsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		series, err := models.ParseTrendSeries(c.DefaultQuery("series", string(models.TrendSeriesSalesRevenue)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		g, err := models.ParseGranularity(c.DefaultQuery("granularity", string(models.GranularityMonthly)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		period, err := s.movingAveragePeriod(c.Query("period"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		asOf, err := s.asOf(c.Query("asOf"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		raw, err := s.fetchSnapshot(c.Request.Context())
		if err != nil {
			s.sourceError(c, "dashboardTrendsHandler", err)
			return
		}
		ctx := utils.SetSnapshotSourceInContext(c.Request.Context(), s.source.Name())
		ctx, span := tracer.Start(ctx, "dashboardTrends")
		defer span.End()
		span.SetAttributes(attribute.String("series", string(series)), attribute.String("granularity", string(g)))

		snap := s.normalize(ctx, raw)
		res, err := s.trend(ctx, string(series), g, asOf, period, func(opts reports.TrendOptions) ([]models.TrendPoint, error) {
			return reports.BuildSeriesTrend(snap, series, g, opts)
		})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if strings.EqualFold(c.Query("format"), "xlsx") {
			var buf bytes.Buffer
			if err := reports.ExportTrend(&buf, string(series), res.Points, res.Statistics); err != nil {
				config.LogError(s.logger, "handlers.go", "dashboardTrendsHandler", "ExportTrend", nil, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.xlsx", series, g))
			c.Data(http.StatusOK, reports.XlsxContentType, buf.Bytes())
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// snapshotInvalidator is implemented by cached sources.
type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// dashboardRefreshHandler drops the cached snapshot so the next dashboard read refetches.
func (s *apiServer) dashboardRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.source == nil {
			s.sourceError(c, "dashboardRefreshHandler", errSourceNotConfigured)
			return
		}
		inv, ok := s.source.(snapshotInvalidator)
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		if err := inv.Invalidate(c.Request.Context()); err != nil {
			config.LogError(s.logger, "handlers.go", "dashboardRefreshHandler", "Invalidate", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not drop cached snapshot"})
			return
		}
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogInfo(s.logger, "handlers.go", "dashboardRefreshHandler", "Invalidate", cid, "snapshot cache dropped")
		c.Status(http.StatusNoContent)
	}
}

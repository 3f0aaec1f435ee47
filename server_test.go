package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/mmdatafocus/distributor_backend/models/reports"
)

const testSnapshot = `{
	"orders": [
		{"salesOrder": "SO1", "mtm": "M1", "qty": 3, "fobUnitPrice": 100, "actualArrival": "2024-06-01", "dateIssuePI": "2024-05-02"},
		{"salesOrder": "SO2", "mtm": "M1", "qty": 2, "fobUnitPrice": 100, "dateIssuePI": "2024-06-10"}
	],
	"serializedUnits": [
		{"salesOrder": "SO1", "mtm": "M1", "serialNumber": "A", "color": "Black"},
		{"salesOrder": "SO1", "mtm": "M1", "serialNumber": "B", "color": "Black"}
	],
	"sales": [
		{"productId": "M1", "quantity": 1, "serialNumber": "A", "totalRevenue": "150", "invoiceDate": "2024-06-20"},
		{"productId": "M1", "quantity": 2, "totalRevenue": "300", "invoiceDate": "2024-05-20"}
	],
	"inventory": [
		{"mtm": "M1", "onHandQty": 1, "onTheWayQty": 2, "onHandValue": 80, "onTheWayValue": 160, "averageLandingCost": 80}
	],
	"priceList": [
		{"mtm": "M1", "modelName": "ThinkPad X1", "salesOrder": "SO1", "sdp": 100, "srp": 120}
	]
}`

type stubSource struct {
	body string
	err  error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchSnapshot(ctx context.Context) (models.RawSnapshot, error) {
	if s.err != nil {
		return models.RawSnapshot{}, s.err
	}
	return models.DecodeRawSnapshot(strings.NewReader(s.body))
}

func newTestRouter(t *testing.T, source *stubSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	settings := config.Settings{ReferenceTimezone: "UTC", MovingAveragePeriod: 3, ReportSlowMs: 60000}
	api, err := newAPIServer(settings, nil, config.GetLogger())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	if source != nil {
		api.source = *source
	}
	api.now = func() time.Time { return time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC) }
	return api.router()
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzAndNotFound(t *testing.T) {
	r := newTestRouter(t, nil)
	if w := doRequest(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w := doRequest(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w.Header().Get("x-correlation-id") == "" {
		t.Fatalf("expected a correlation id header")
	}
}

func TestReconcileHandler(t *testing.T) {
	r := newTestRouter(t, nil)
	w := doRequest(r, http.MethodPost, "/api/v1/reconcile?asOf=2024-06-30", testSnapshot)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res reconcileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.AsOf != "2024-06-30" || res.Source != sourceRequest {
		t.Fatalf("unexpected asOf/source %s/%s", res.AsOf, res.Source)
	}
	if len(res.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(res.Groups))
	}
	g := res.Groups[0]
	if g.Mtm != "M1" || g.ModelName != "ThinkPad X1" || g.LedgerOnHandQty != 1 || g.LedgerOnTheWayQty != 2 || g.Sales90d != 3 {
		t.Fatalf("unexpected group %+v", g)
	}
	if g.SdpMargin == nil || g.SdpMargin.String() != "20" {
		t.Fatalf("expected sdp margin 20, got %v", g.SdpMargin)
	}
	if len(res.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", res.Issues)
	}
}

func TestReconcileHandler_BadInput(t *testing.T) {
	r := newTestRouter(t, nil)
	if w := doRequest(r, http.MethodPost, "/api/v1/reconcile?asOf=30/06/2024", testSnapshot); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad asOf, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/reconcile", "{not json"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad body, got %d", w.Code)
	}
}

func TestReconcileExportHandler(t *testing.T) {
	r := newTestRouter(t, nil)
	w := doRequest(r, http.MethodPost, "/api/v1/reconcile/export", testSnapshot)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != reports.XlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "sku-reconciliation-2024-06-30.xlsx") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestTrendsHandler(t *testing.T) {
	r := newTestRouter(t, nil)
	body := `{
		"granularity": "daily",
		"asOf": "2024-01-03",
		"records": [
			{"date": "2024-01-01", "value": 100},
			{"date": "2024-01-02", "value": 120},
			{"date": "2024-01-03", "value": 90},
			{"date": "not a date", "value": 5},
			{"date": "2024-01-02", "value": "n/a"},
			{"date": "2024-01-02", "value": ""}
		]
	}`
	w := doRequest(r, http.MethodPost, "/api/v1/trends", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res trendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Points) != 3 || res.Dropped != 3 {
		t.Fatalf("expected 3 points and 3 dropped, got %d/%d", len(res.Points), res.Dropped)
	}
	if res.Points[1].Value.String() != "120" {
		t.Fatalf("a bad value must not touch its bucket, got %s", res.Points[1].Value)
	}
	if res.Statistics.Growth == nil || res.Statistics.Growth.String() != "-10" {
		t.Fatalf("expected growth -10, got %v", res.Statistics.Growth)
	}
	ma := res.Statistics.MovingAverage
	if ma[0] != nil || ma[1] != nil || ma[2] == nil || ma[2].String() != "103.33" {
		t.Fatalf("unexpected moving average %v", ma)
	}

	if w := doRequest(r, http.MethodPost, "/api/v1/trends", `{"granularity": "hourly", "records": []}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown granularity, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/trends", `{"granularity": "daily", "movingAveragePeriod": 0}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for period 0, got %d", w.Code)
	}
}

func TestDashboardHandlers(t *testing.T) {
	if w := doRequest(newTestRouter(t, nil), http.MethodGet, "/api/v1/dashboard/sku", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a source, got %d", w.Code)
	}
	failing := &stubSource{err: errors.New("upstream down")}
	if w := doRequest(newTestRouter(t, failing), http.MethodGet, "/api/v1/dashboard/sku", ""); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for a failing source, got %d", w.Code)
	}

	r := newTestRouter(t, &stubSource{body: testSnapshot})
	w := doRequest(r, http.MethodGet, "/api/v1/dashboard/sku", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var sku reconcileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sku); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sku.Source != "stub" || sku.AsOf != "2024-06-30" || sku.Summary.SkuCount != 1 {
		t.Fatalf("unexpected dashboard response %+v", sku)
	}

	w = doRequest(r, http.MethodGet, "/api/v1/dashboard/trends?series=sales_revenue&granularity=monthly&asOf=2024-06-30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var trend trendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &trend); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(trend.Points) != 2 || trend.Points[0].SortKey != "2024-05" || trend.Points[1].Value.String() != "150" {
		t.Fatalf("unexpected trend points %+v", trend.Points)
	}
	if trend.Statistics.Growth == nil || trend.Statistics.Growth.String() != "-50" {
		t.Fatalf("expected growth -50, got %v", trend.Statistics.Growth)
	}

	w = doRequest(r, http.MethodGet, "/api/v1/dashboard/trends?series=sales_units&granularity=weekly&format=xlsx", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != reports.XlsxContentType {
		t.Fatalf("expected an xlsx download, got %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	for _, q := range []string{"series=bogus", "granularity=hourly", "period=0", "asOf=yesterday"} {
		if w := doRequest(r, http.MethodGet, "/api/v1/dashboard/trends?"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

type invalidatingSource struct {
	stubSource
	invalidated *int
}

func (s invalidatingSource) Invalidate(ctx context.Context) error {
	*s.invalidated++
	return nil
}

func TestDashboardRefreshHandler(t *testing.T) {
	if w := doRequest(newTestRouter(t, nil), http.MethodPost, "/api/v1/dashboard/refresh", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a source, got %d", w.Code)
	}
	if w := doRequest(newTestRouter(t, &stubSource{body: testSnapshot}), http.MethodPost, "/api/v1/dashboard/refresh", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for an uncached source, got %d", w.Code)
	}

	gin.SetMode(gin.TestMode)
	api, err := newAPIServer(config.Settings{ReferenceTimezone: "UTC", MovingAveragePeriod: 3}, nil, config.GetLogger())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	count := 0
	api.source = invalidatingSource{stubSource: stubSource{body: testSnapshot}, invalidated: &count}
	if w := doRequest(api.router(), http.MethodPost, "/api/v1/dashboard/refresh", ""); w.Code != http.StatusNoContent || count != 1 {
		t.Fatalf("expected one invalidation and 204, got %d after %d calls", w.Code, count)
	}
}

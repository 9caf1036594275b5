package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/config"
	"erplens/internal/infrastructure"
	"erplens/internal/services"
	"erplens/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, metrics *infrastructure.Metrics) http.Handler {
	t.Helper()
	cfg := config.Default()
	service := services.NewAnalysisService(cfg.Analysis, metrics, testLogger())
	return NewRouter(&cfg, service, metrics, "test", testLogger())
}

const financialCSV = `period,revenue,cogs,operating_expenses,net_income
2024-01,100000,60000,20000,15000
2024-02,110000,64000,21000,18000
2024-03,121000,70000,22000,21000
`

const salesCSV = `order_id,product_id,quantity,total_amount,order_date,customer_id
SO-1,P-1,10,1000,2024-01-15,C-1
SO-2,P-2,5,800,2024-02-15,C-2
SO-3,P-1,8,900,2024-03-15,C-3
`

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, parts map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, part := range parts {
		fw, err := mw.CreateFormFile(field, part[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(part[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeJSON(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{
		"columns": ["period", "revenue", "cogs", "operating_expenses", "net_income"],
		"rows": [
			["2024-01", 100000, 60000, 20000, 15000],
			["2024-02", 110000, 64000, 21000, 18000],
			["2024-03", 121000, 70000, 22000, 21000]
		],
		"source": "q1"
	}`
	rec := postJSON(t, router, "/api/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.SingleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.Financial, report.DataType)
	assert.Equal(t, "q1", report.DataSource)
	assert.Equal(t, 331000.0, report.KPIs["total_revenue"])
	assert.NotEmpty(t, report.ExecutiveSummary)
}

func TestAnalyzeJSONDeclaredType(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{
		"columns": ["period", "revenue", "cogs"],
		"rows": [["2024-01", 50000, 30000], ["2024-02", 52000, 31000]],
		"data_type": "financial"
	}`
	rec := postJSON(t, router, "/api/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.SingleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.Financial, report.DataType)
	assert.Equal(t, "inline", report.DataSource)
}

func TestAnalyzeEmptyBody(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(t, router, "/api/analyze", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeValidationFailures(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"no columns", `{"columns": [], "rows": [["x"]]}`},
		{"no rows", `{"columns": ["revenue"], "rows": []}`},
		{"unknown data type", `{"columns": ["revenue"], "rows": [[100]], "data_type": "weather"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyzeUnusableData(t *testing.T) {
	router := newTestRouter(t, nil)

	// Detects as financial but is missing the required period column.
	body := `{"columns": ["revenue", "notes"], "rows": [[1000, "jan"], [1100, "feb"]]}`
	rec := postJSON(t, router, "/api/analyze", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "blocking_issues")
	assert.Contains(t, rec.Body.String(), "period")
}

func TestAnalyzeMultipartCSV(t *testing.T) {
	router := newTestRouter(t, nil)

	buf, contentType := multipartBody(t, map[string][2]string{
		"file": {"financial_q1.csv", financialCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.SingleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.Financial, report.DataType)
	assert.Equal(t, "financial_q1.csv", report.DataSource)
}

func TestAnalyzeMultipartRejectsBadFilename(t *testing.T) {
	router := newTestRouter(t, nil)

	buf, contentType := multipartBody(t, map[string][2]string{
		"file": {"notes.txt", "hello"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeMultiTwoDomains(t *testing.T) {
	router := newTestRouter(t, nil)

	buf, contentType := multipartBody(t, map[string][2]string{
		"financial": {"financial.csv", financialCSV},
		"sales":     {"sales_2024.csv", salesCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/multi", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"financial", "sales"}, report.EnabledDomains)
	assert.Equal(t, 2, report.FilesAnalyzed)
}

func TestAnalyzeMultiZeroDomains(t *testing.T) {
	router := newTestRouter(t, nil)

	buf, contentType := multipartBody(t, map[string][2]string{
		"stuff": {"mystery.csv", "alpha,beta\nx,y\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/multi", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled_domains":[]`)
	assert.Contains(t, rec.Body.String(), "No valid data detected")
	assert.Contains(t, rec.Body.String(), "skipped_files")
}

func TestAnalyzeMultiRequiresMultipart(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(t, router, "/api/analyze/multi", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownRouteReturnsProblem(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, infrastructure.NewMetrics())

	// Drive one analysis through so counters exist, then scrape.
	buf, contentType := multipartBody(t, map[string][2]string{
		"file": {"financial.csv", financialCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "erplens_files_analyzed_total")
}

func TestDomainForUpload(t *testing.T) {
	tests := []struct {
		field    string
		filename string
		want     domain.DataType
	}{
		{"financial", "whatever.csv", domain.Financial},
		{"data", "sales_2024.xlsx", domain.Sales},
		{"data", "Q3-inventory.csv", domain.Inventory},
		{"data", "mystery.csv", domain.Unknown},
		{"purchase", "orders.csv", domain.Purchase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainForUpload(tt.field, tt.filename), "%s/%s", tt.field, tt.filename)
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/middleware"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/service"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

type fakeReportSrv struct {
	result  *dto.ReportResult
	hit     bool
	err     error
	lastReq dto.ReportRequest
	calls   int
}

func (f *fakeReportSrv) Generate(_ context.Context, req dto.ReportRequest) (*dto.ReportResult, bool, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.hit, f.err
}

type fakeExportSrv struct {
	job       *dto.ExportJobResponse
	status    *dto.ExportStatusResponse
	download  *service.ExportDownload
	err       error
	lastActor string
	lastReq   dto.ExportRequest
}

func (f *fakeExportSrv) CreateJob(_ context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	f.lastReq = req
	f.lastActor = actorID
	return f.job, f.err
}

func (f *fakeExportSrv) GetStatus(_ context.Context, _ string, actorID string) (*dto.ExportStatusResponse, error) {
	f.lastActor = actorID
	return f.status, f.err
}

func (f *fakeExportSrv) ResolveDownload(context.Context, string) (*service.ExportDownload, error) {
	return f.download, f.err
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newJSONContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestReportHandlerGenerateRejectsMalformedBody(t *testing.T) {
	srv := &fakeReportSrv{}
	handler := NewReportHandler(srv, nil)

	c, rec := newJSONContext(http.MethodPost, "/api/reports/generate", `{"reportType":`)
	handler.Generate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, srv.calls)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestReportHandlerGenerateSuccess(t *testing.T) {
	srv := &fakeReportSrv{
		result: &dto.ReportResult{
			Type:      models.ReportTypeInventory,
			Inventory: []dto.InventoryReportRow{{ProductID: 1, ProductName: "Pen", FinalStock: 3}},
		},
		hit: true,
	}
	handler := NewReportHandler(srv, nil)

	body := `{"reportType":"inventory","startDate":"2024-01-01","endDate":"2024-01-31","parameters":{"minStock":"5"}}`
	c, rec := newJSONContext(http.MethodPost, "/api/reports/generate", body)
	handler.Generate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inventory", srv.lastReq.ReportType)
	assert.Equal(t, "5", srv.lastReq.Parameters["minStock"])
	require.NotNil(t, srv.lastReq.StartDate)

	env := decodeEnvelope(t, rec)
	var rows []dto.InventoryReportRow
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Pen", rows[0].ProductName)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "inventory", env.Meta["reportType"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestReportHandlerGenerateMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid range", appErrors.Clone(appErrors.ErrInvalidDateRange, "End date cannot be before the start date."), http.StatusBadRequest, appErrors.ErrInvalidDateRange.Code},
		{"invalid type", appErrors.Clone(appErrors.ErrInvalidReportType, "Invalid report type: weekly"), http.StatusBadRequest, appErrors.ErrInvalidReportType.Code},
		{"provider down", appErrors.Wrap(errors.New("dial tcp: refused"), appErrors.ErrProviderUnavailable.Code, appErrors.ErrProviderUnavailable.Status, appErrors.ErrProviderUnavailable.Message), http.StatusInternalServerError, appErrors.ErrProviderUnavailable.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewReportHandler(&fakeReportSrv{err: tc.err}, nil)
			c, rec := newJSONContext(http.MethodPost, "/api/reports/generate", `{"reportType":"order"}`)
			handler.Generate(c)

			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.NotContains(t, rec.Body.String(), "dial tcp")
		})
	}
}

func TestReportHandlerCreateExportUsesPrincipal(t *testing.T) {
	srv := &fakeExportSrv{job: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	handler := NewReportHandler(&fakeReportSrv{}, srv)

	c, rec := newJSONContext(http.MethodPost, "/api/reports/exports", `{"reportType":"supplier","format":"csv"}`)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "auditor"})
	handler.CreateExport(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "auditor", srv.lastActor)
	assert.Equal(t, "csv", srv.lastReq.Format)
	assert.Equal(t, "supplier", srv.lastReq.ReportType)
	assert.Contains(t, rec.Body.String(), "job-1")
}

func TestReportHandlerExportsDisabled(t *testing.T) {
	handler := NewReportHandler(&fakeReportSrv{}, nil)
	c, rec := newJSONContext(http.MethodPost, "/api/reports/exports", `{"reportType":"order","format":"pdf"}`)
	handler.CreateExport(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerExportStatus(t *testing.T) {
	url := "/api/reports/export/token"
	srv := &fakeExportSrv{status: &dto.ExportStatusResponse{ID: "job-2", Status: models.ExportStatusFinished, Progress: 100, ResultURL: &url}}
	handler := NewReportHandler(&fakeReportSrv{}, srv)

	c, rec := newJSONContext(http.MethodGet, "/api/reports/exports/job-2", "")
	c.Params = gin.Params{{Key: "id", Value: "job-2"}}
	handler.ExportStatus(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var status dto.ExportStatusResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &status))
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, url, *status.ResultURL)
}

func TestReportHandlerDownloadExportStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order_report.csv")
	require.NoError(t, os.WriteFile(path, []byte("Rank,Product\n1,Pen\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	srv := &fakeExportSrv{download: &service.ExportDownload{File: file, Filename: "order_report.csv", ContentType: "text/csv"}}
	handler := NewReportHandler(&fakeReportSrv{}, srv)

	c, rec := newJSONContext(http.MethodGet, "/api/reports/export/tok", "")
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.DownloadExport(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "order_report.csv")
	assert.Equal(t, "Rank,Product\n1,Pen\n", rec.Body.String())
}

func TestReportHandlerDownloadExportForbidden(t *testing.T) {
	srv := &fakeExportSrv{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")}
	handler := NewReportHandler(&fakeReportSrv{}, srv)

	c, rec := newJSONContext(http.MethodGet, "/api/reports/export/bad", "")
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.DownloadExport(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

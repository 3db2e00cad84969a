package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/pkg/middleware/requestid"
)

func TestLogDiagnosticsWritesWarnAndCounts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := NewMetricsService()
	sink := NewLogDiagnostics(zap.New(core), metrics)

	ctx := requestid.WithValue(context.Background(), "req-42")
	sink.Record(ctx, DiagnosticEvent{
		Kind:       DiagnosticLookupFailure,
		ReportType: models.ReportTypeSupplier,
		Entity:     "supplied_product_count",
		Key:        "30",
		Err:        errors.New("timeout"),
	})

	entries := logs.FilterMessage("report degraded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "lookup_failure", fields["kind"])
	assert.Equal(t, "supplier", fields["report_type"])
	assert.Equal(t, "30", fields["key"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "timeout", fields["error"])

	assert.Equal(t, uint64(1), metrics.Snapshot().Degradations)
}

func TestGenerateLogsJoinMissesThroughDefaultSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 5, Name: "Lonely"}}

	svc := NewReportService(ReportProviders{
		Products:  f.products,
		Stocks:    f.stocks,
		Orders:    f.orders,
		Suppliers: f.suppliers,
	}, nil, nil, nil, zap.New(core), ReportServiceConfig{})

	_, _, err := svc.Generate(context.Background(), reportRequest("inventory"))
	require.NoError(t, err)

	degraded := logs.FilterMessage("report degraded").All()
	require.Len(t, degraded, 1)
	assert.Equal(t, "record_join_miss", degraded[0].ContextMap()["kind"])
	assert.Equal(t, "5", degraded[0].ContextMap()["key"])
	assert.Equal(t, 1, logs.FilterMessage("report generated").Len())
}

func TestGenerateLogsFailedStage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newReportFixture()
	f.products.err = errors.New("connection refused")
	metrics := NewMetricsService()

	svc := NewReportService(ReportProviders{Products: f.products, Stocks: f.stocks}, nil, metrics, f.diag, zap.New(core), ReportServiceConfig{})
	_, _, err := svc.Generate(context.Background(), reportRequest("inventory"))
	require.Error(t, err)

	failed := logs.FilterMessage("report generation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "fetching", failed[0].ContextMap()["failed_stage"])
	assert.Equal(t, "failed", failed[0].ContextMap()["state"])
	assert.Equal(t, uint64(1), metrics.Snapshot().ReportsFailed)
}

func TestTeeDiagnosticsSkipsNilSinks(t *testing.T) {
	a, b := &RecordingDiagnostics{}, &RecordingDiagnostics{}
	sink := TeeDiagnostics(a, nil, b)
	sink.Record(context.Background(), DiagnosticEvent{Kind: DiagnosticRecordJoinMiss})
	assert.Equal(t, 1, a.Count(DiagnosticRecordJoinMiss))
	assert.Equal(t, 1, b.Count(DiagnosticRecordJoinMiss))
}

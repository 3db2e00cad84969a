package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/pkg/middleware/requestid"
)

// DiagnosticKind classifies a degradation absorbed while building a report.
type DiagnosticKind string

const (
	// DiagnosticRecordJoinMiss: an id referenced by one collection is absent from another.
	DiagnosticRecordJoinMiss DiagnosticKind = "record_join_miss"
	// DiagnosticParameterCoercionFailure: a filter value had the wrong type and was dropped.
	DiagnosticParameterCoercionFailure DiagnosticKind = "parameter_coercion_failure"
	// DiagnosticLookupFailure: a per-id provider call failed and the row fell back to zero.
	DiagnosticLookupFailure DiagnosticKind = "lookup_failure"
)

// DiagnosticEvent describes one degradation.
type DiagnosticEvent struct {
	Kind       DiagnosticKind
	ReportType models.ReportType
	Entity     string
	Key        string
	Detail     string
	Err        error
}

// Diagnostics receives degradation events. Implementations must be safe for concurrent use.
type Diagnostics interface {
	Record(ctx context.Context, event DiagnosticEvent)
}

type logDiagnostics struct {
	logger  *zap.Logger
	metrics *MetricsService
}

// NewLogDiagnostics returns a sink that logs each event at warn level and counts it.
func NewLogDiagnostics(logger *zap.Logger, metrics *MetricsService) Diagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logDiagnostics{logger: logger, metrics: metrics}
}

func (d *logDiagnostics) Record(ctx context.Context, event DiagnosticEvent) {
	fields := []zap.Field{
		zap.String("kind", string(event.Kind)),
		zap.String("report_type", string(event.ReportType)),
		zap.String("entity", event.Entity),
		zap.String("key", event.Key),
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	d.logger.Warn("report degraded", fields...)
	d.metrics.RecordDegradation(string(event.ReportType), event.Kind)
}

// RecordingDiagnostics keeps events in memory.
type RecordingDiagnostics struct {
	mu     sync.Mutex
	events []DiagnosticEvent
}

func (r *RecordingDiagnostics) Record(_ context.Context, event DiagnosticEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *RecordingDiagnostics) Events() []DiagnosticEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DiagnosticEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *RecordingDiagnostics) Count(kind DiagnosticKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type multiDiagnostics []Diagnostics

// TeeDiagnostics fans each event out to every non-nil sink.
func TeeDiagnostics(sinks ...Diagnostics) Diagnostics {
	out := make(multiDiagnostics, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiDiagnostics) Record(ctx context.Context, event DiagnosticEvent) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}

// reportDiagnostics stamps the report type onto every event of one run.
type reportDiagnostics struct {
	ctx        context.Context
	sink       Diagnostics
	reportType models.ReportType
}

func (d reportDiagnostics) record(event DiagnosticEvent) {
	if d.sink == nil {
		return
	}
	event.ReportType = d.reportType
	d.sink.Record(d.ctx, event)
}

func (d reportDiagnostics) joinMiss(entity, key, detail string) {
	d.record(DiagnosticEvent{Kind: DiagnosticRecordJoinMiss, Entity: entity, Key: key, Detail: detail})
}

func (d reportDiagnostics) lookupFailed(entity, key string, err error) {
	d.record(DiagnosticEvent{Kind: DiagnosticLookupFailure, Entity: entity, Key: key, Err: err})
}

func (d reportDiagnostics) coercionFailed(key string, err error) {
	d.record(DiagnosticEvent{Kind: DiagnosticParameterCoercionFailure, Entity: "parameter", Key: key, Err: err})
}

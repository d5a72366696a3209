package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "missing service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service name"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: "invalid trace exporter"},
		{name: "bad sampling", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: "sampling rate"},
		{name: "no listen address", mutate: func(c *Config) { c.Metrics.ListenAddress = "" }, wantErr: "listen address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFrom(zerolog.New(&buf)).
		NewComponentLogger("engine").
		WithScheme("make").
		WithURI("make:Button").
		WithBuildID("b-1")

	logger.WithError(errors.New("boom")).Error("failed")

	out := buf.String()
	for _, want := range []string{
		`"component":"engine"`,
		`"scheme":"make"`,
		`"uri":"make:Button"`,
		`"build_id":"b-1"`,
		`"error":"boom"`,
		`"message":"failed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a fallback logger")
	}

	logger := NewNopLogger()
	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Error("expected the stored logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"warn":     zerolog.WarnLevel,
		"disabled": zerolog.Disabled,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordDereference("make", "ok", time.Millisecond)
	m.RecordDereference("make", "ok", time.Millisecond)
	m.RecordError("unknown_scheme")
	m.ObserveProxyLookup("hit")
	m.RecordPolicyDecision("local", false)

	if got := counterValue(t, m, "urigraph_dereferences_total", map[string]string{"scheme": "make", "outcome": "ok"}); got != 2 {
		t.Errorf("dereferences = %v, want 2", got)
	}
	if got := counterValue(t, m, "urigraph_errors_by_kind_total", map[string]string{"kind": "unknown_scheme"}); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := counterValue(t, m, "urigraph_proxy_lookups_total", map[string]string{"result": "hit"}); got != 1 {
		t.Errorf("proxy lookups = %v, want 1", got)
	}
	if got := counterValue(t, m, "urigraph_policy_decisions_total", map[string]string{"scheme": "local", "decision": "deny"}); got != 1 {
		t.Errorf("policy decisions = %v, want 1", got)
	}
}

func TestMetrics_NilAndDisabledAreNoops(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordDereference("x", "ok", 0)
	nilMetrics.ObserveProxyLookup("miss")
	nilMetrics.RecordBuild("c", "ok", 0)

	cfg := DefaultConfig().Metrics
	cfg.Enabled = false
	disabled, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	disabled.RecordStoreOperation("get", "ok")
	disabled.RecordDocumentReload("ok")
	if disabled.Registry() != nil {
		t.Error("disabled metrics should have no registry")
	}
}

func TestTracer_DereferenceSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewTracerWithProvider(provider, "test")

	_, span := tracer.StartDereferenceSpan(context.Background(), "make", "make:Button", 2)
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one span, got %d", len(ended))
	}
	if ended[0].Name() != "uri.dereference" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["uri.scheme"] != "make" || attrs["uri.depth"] != "2" {
		t.Errorf("unexpected attributes %v", attrs)
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestStartOperation_WithoutTelemetry(t *testing.T) {
	op := StartOperation(context.Background(), "resolve")
	if op.Logger == nil || op.Timer == nil {
		t.Fatal("expected logger and timer")
	}
	op.End(nil)
}

func TestStartOperation_WithTelemetry(t *testing.T) {
	var buf bytes.Buffer
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tel := &Telemetry{
		Logger: NewLoggerFrom(zerolog.New(&buf)),
		Tracer: NewTracerWithProvider(provider, "test"),
	}

	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Fatal("expected telemetry in context")
	}

	op := StartOperation(ctx, "check")
	if FromContext(op.Ctx) != op.Logger {
		t.Error("expected the operation logger in the operation context")
	}
	op.Logger.Info("checking")
	op.End(errors.New("boom"))

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "check" {
		t.Fatalf("expected one check span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", ended[0].Status().Code)
	}
	out := buf.String()
	for _, want := range []string{`"operation":"check"`, `"trace_id":`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestMetrics_StartMetricsServer(t *testing.T) {
	cfg := DefaultConfig().Metrics
	cfg.Enabled = false
	disabled, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if server := disabled.StartMetricsServer("127.0.0.1:0", NewNopLogger()); server != nil {
		t.Error("disabled metrics should not serve")
	}

	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	server := m.StartMetricsServer("127.0.0.1:0", NewNopLogger())
	if server == nil {
		t.Fatal("expected a server")
	}
	if server.Addr != "127.0.0.1:0" {
		t.Errorf("addr = %q", server.Addr)
	}
	if err := server.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

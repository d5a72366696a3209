// Package telemetry provides logging, tracing and metrics for the resolver.
//
// Structured logging uses zerolog through Logger, tracing uses the
// OpenTelemetry SDK through Tracer, and metrics are Prometheus collectors
// registered on a private registry owned by Metrics.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger.WithScheme("make").WithURI(raw).Debug("dereferencing")
//
// FromContext returns a discarding logger when the context carries none, so
// library code can always log.
//
// # Metrics
//
// Every recording method is safe on a nil or disabled *Metrics. Exposed
// series:
//
//	urigraph_dereferences_total{scheme,outcome}
//	urigraph_dereference_duration_seconds{scheme}
//	urigraph_errors_by_kind_total{kind}
//	urigraph_proxy_lookups_total{result}
//	urigraph_builds_total{class,status}
//	urigraph_build_duration_seconds{class}
//	urigraph_local_store_operations_total{operation,status}
//	urigraph_document_reloads_total{status}
//	urigraph_policy_decisions_total{scheme,decision}
//
// # Tracing
//
// Exporters: stdout (pretty printed), otlp (gRPC) and none.
package telemetry

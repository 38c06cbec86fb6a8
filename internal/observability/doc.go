// Package observability provides structured logging and metrics for the
// inference routing core.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Prometheus-compatible metrics collection
//   - Per-backend request, retry, fallback, and circuit counters
//   - Latency and estimated-cost instrumentation
//
// Every routing outcome is instrumented; message content never reaches a
// log line or a metric label.
package observability

// Package tracing wires OpenTelemetry into groupwatch.
//
// InitProvider installs an SDK tracer provider so spans carry real trace
// ids; no exporter is attached, so spans are only visible through log
// correlation (trace_id) and the X-Trace-Id response header unless a
// caller registers a span processor. Middleware opens one server span per
// control request, and the scan engine opens scan.cycle, scan.discover and
// scan.check spans under GetTracer.
package tracing

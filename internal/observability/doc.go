// Package observability groups the logging, tracing and store metrics
// packages shared by the worker and the CLI.
package observability

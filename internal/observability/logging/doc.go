// Package logging builds the process slog.Logger from LOG_LEVEL and
// LOG_FORMAT and attaches request ids to per-request loggers.
package logging

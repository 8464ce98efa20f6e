// Package logging builds the slog loggers used across the compile pipeline.
//
// It provides a console handler for interactive runs (timestamp, level,
// component prefix, key=value attrs) and a JSON handler for log files, plus
// attr helpers and component loggers so stages emit uniformly shaped records.
package logging

// Package log records the terminal's access events.
//
// Access events are separate from operational logging (slog): they form a
// machine-readable audit trail of key presses, PIN submissions, door state
// changes and remote PIN writes. PIN digits are never recorded; key events
// carry only the key class and submissions only their length and outcome.
//
//	logger, err := log.NewFileLogger("/var/lib/impterm/access.alog")
//	...
//	term, err := terminal.New(cfg, hw, terminal.WithAccessLog(
//	    log.NewMultiLogger(logger, log.NewSlogAdapter(slog.Default())),
//	))
//
// # File Format
//
// Log files are a sequence of CBOR-encoded Event values with integer map
// keys, conventionally named *.alog. The impterm-log tool views, filters,
// exports and summarizes them.
package log

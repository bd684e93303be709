// Package logger provides the structured logging interface used across igfetch.
//
// It wraps zerolog. Output goes to a colored console writer when stdout is
// a terminal and to JSON lines otherwise; a log file, when configured,
// receives JSON as well.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("shortcode", "ABC123").Info("download started")
//	log.InfoWithFields("strategy finished", map[string]interface{}{
//	    "strategy": "direct_api",
//	    "duration": time.Since(start),
//	})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger

// Package log provides hyperkv's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records are routed through a slog
// handler that feeds the package's own formatter/output pipeline, so library
// code can interoperate with slog while output stays uniform.
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("store"), log.Str("dir", dir))
//	l.Info("store opened", log.Int("feeds", 2))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text or json
// format, console or null output). RedirectStdLog sends the standard
// library's log package (used by Pebble) through a Logger.
package log

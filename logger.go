package querystate

import "github.com/rs/zerolog"

// Logger is the logging capability consumed by the request engine. It is
// injected through Config rather than read from a package-level singleton,
// so hosts decide where warnings about retries and callback failures go.
//
// The engine never lets a logging failure escape: implementations may panic
// and the engine keeps working.
type Logger interface {
	// Warn records a recoverable condition such as a failed attempt that
	// will be retried or a caller callback that panicked.
	Warn(msg string, details ...any)

	// Error records a terminal failure.
	Error(msg string, details ...any)
}

// NopLogger discards everything. It is the default when no logger is
// configured.
type NopLogger struct{}

// Warn does nothing.
func (NopLogger) Warn(msg string, details ...any) {}

// Error does nothing.
func (NopLogger) Error(msg string, details ...any) {}

// ZerologLogger adapts a zerolog.Logger to the Logger capability. Wire it at
// the application boundary:
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	cfg := querystate.DefaultConfig().WithLogger(querystate.NewZerologLogger(zl))
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

// Warn logs at warn level with the extra details attached as a single field.
func (z *ZerologLogger) Warn(msg string, details ...any) {
	evt := z.log.Warn()
	if len(details) > 0 {
		evt = evt.Interface("details", details)
	}
	evt.Msg(msg)
}

// Error logs at error level with the extra details attached as a single field.
func (z *ZerologLogger) Error(msg string, details ...any) {
	evt := z.log.Error()
	if len(details) > 0 {
		evt = evt.Interface("details", details)
	}
	evt.Msg(msg)
}

// Package mlog decouples itemcore from any concrete logging backend,
// grounded on LerianStudio/midaz's common/mlog. The core logs at Debug on
// every adapter dispatch, Warn on adapter-reported conflicts, and Error on
// adapter-reported Internal/ServiceUnavailable failures; nothing in the
// core ever changes behavior based on a logging call.
package mlog

// Logger is the common interface the core logs through.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

// NoneLogger discards everything. It is the default when a host does not
// inject a Logger.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                    {}
func (l *NoneLogger) Infof(format string, args ...any)    {}
func (l *NoneLogger) Warn(args ...any)                    {}
func (l *NoneLogger) Warnf(format string, args ...any)    {}
func (l *NoneLogger) Error(args ...any)                   {}
func (l *NoneLogger) Errorf(format string, args ...any)   {}
func (l *NoneLogger) Debug(args ...any)                   {}
func (l *NoneLogger) Debugf(format string, args ...any)   {}
func (l *NoneLogger) WithFields(fields ...any) Logger     { return l }
func (l *NoneLogger) Sync() error                         { return nil }

package handlers

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger returns a console logger on stderr. verbosity n enables
// logr V(n) messages.
func newLogger(verbosity int) (logr.Logger, func()) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zc.DisableStacktrace = true
	zc.DisableCaller = verbosity < 2
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}

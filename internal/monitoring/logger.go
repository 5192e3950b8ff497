package monitoring

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to a zap sugared
// logger at info level but may be replaced by SetLogger. Tests or production
// code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultSugar().Infof

// Errorf reports failures that must not be silently dropped, such as a file
// whose cleaning pass could not converge.
var Errorf func(format string, v ...interface{}) = defaultSugar().Errorf

func defaultSugar() *zap.SugaredLogger {
	l, err := newLogger(zapcore.InfoLevel)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Configure rebuilds both loggers at the named level ("debug", "info",
// "warn", "error"). The returned sync function flushes buffered entries.
func Configure(level string) (func() error, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l, err := newLogger(lvl)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	sugar := l.Sugar()
	Logf = sugar.Infof
	Errorf = sugar.Errorf
	return l.Sync, nil
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
// Errorf follows Logf so a muted logger stays muted.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		Errorf = Logf
		return
	}
	Logf = f
	Errorf = f
}

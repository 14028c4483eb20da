package pkg

import (
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// sharedZapLevel enables zap entries at or above the shared log level, so
// SetLogLevel applies to zap-backed loggers too.
var sharedZapLevel = zap.LevelEnablerFunc(func(l zapcore.Level) bool {
	return l >= zapLevel(GetLogLevel())
})

// NewZapLogger returns an slog logger backed by a zap core writing to
// os.Stderr. It sets the shared level to level. The returned sync function
// flushes buffered entries and should be deferred by the caller.
func NewZapLogger(level slog.Level, json bool) (*slog.Logger, func() error) {
	SetLogLevel(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), sharedZapLevel)
	return newZapLogger(core), core.Sync
}

func newZapLogger(core zapcore.Core) *slog.Logger {
	return slog.New(zapslog.NewHandler(core, zapslog.WithCaller(false)))
}

// zapLevel maps a slog level onto zap's level scale.
func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

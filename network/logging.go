package network

import (
	"os"

	"github.com/ethkit/devnet/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the orchestrator logger: console output to stderr plus a
// rotating JSON log next to the network root. The file sits outside the
// network directory so it survives the per-run reset.
func NewLogger(cfg config.Config, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.NetworkDir + ".log",
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}),
		zapcore.DebugLevel,
	)

	return zap.New(zapcore.NewTee(console, file))
}

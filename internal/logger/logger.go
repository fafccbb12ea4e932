// Package logger holds the process-wide structured logger. Init is called
// once from main before any stage runs; everything else just uses Logger.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Init runs, so packages can log safely from any
// code path that might execute before configuration is loaded.
var Logger = zap.NewNop()

// Init builds the global logger. With an empty file the log goes to
// stderr in console encoding; with a file it appends JSON lines.
func Init(level string, file string) error {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	atom := zap.NewAtomicLevel()
	if level != "" {
		if err := atom.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
	}

	var core zapcore.Core
	if file == "" {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), atom)
	} else {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), atom)
	}
	Logger = zap.New(core, zap.AddCaller())
	return nil
}

// Sync flushes buffered entries. Called on shutdown.
func Sync() {
	_ = Logger.Sync()
}

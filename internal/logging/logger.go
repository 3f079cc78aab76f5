package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns the service logger: JSON lines in logDir/downdetector.log.
func NewLogger(logDir string) (*zap.Logger, error) {
	w, err := rotating(logDir, "downdetector.log")
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel)
	return zap.New(core), nil
}

// NewProbeLogger returns the sink for raw probe output. format is "txt"
// (one plain line per entry) or "json".
func NewProbeLogger(logDir, filename, format string) (*zap.Logger, error) {
	if filename == "" {
		filename = "probes.log"
	}
	w, err := rotating(logDir, filename)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format {
	case "", "json":
		enc = zapcore.NewJSONEncoder(cfg)
	case "txt":
		cfg.LevelKey = ""
		cfg.CallerKey = ""
		cfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown probe log format %q", format)
	}
	return zap.New(zapcore.NewCore(enc, w, zap.DebugLevel)), nil
}

func rotating(logDir, filename string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, filename),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}), nil
}

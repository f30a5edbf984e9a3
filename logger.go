package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is the process-wide structured logger. It defaults to a no-op
// so library code and tests never have to nil-check.
var logger = zap.NewNop().Sugar()

// InitLogger switches the global logger to a real one. With a file path
// it writes rotated files via lumberjack; without one it logs to stderr
// in development format.
func InitLogger(filePath string) error {
	if filePath == "" {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l.Sugar()
		return nil
	}

	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), zapcore.InfoLevel)
	logger = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// SyncLogger flushes any buffered log entries.
func SyncLogger() {
	_ = logger.Sync()
}

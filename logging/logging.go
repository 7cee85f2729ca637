// Package logging wraps go.uber.org/zap with the component/peer/session
// field conventions the rest of the stack expects.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	z *zap.Logger
}

func New(level string, component string) (*Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.With(zap.String("component", component))}, nil
}

// ForComponent builds a new development logger scoped to component,
// used where a *Config isn't available (tests, library defaults).
func ForComponent(component string) *Logger {
	z, _ := zap.NewDevelopment()
	return &Logger{z: z.With(zap.String("component", component))}
}

func (l *Logger) WithSession(id uint32) *Logger {
	return &Logger{z: l.z.With(zap.Uint32("session_id", id))}
}

func (l *Logger) WithPeer(addr string) *Logger {
	return &Logger{z: l.z.With(zap.String("peer", addr))}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

func (l *Logger) Sync() error { return l.z.Sync() }

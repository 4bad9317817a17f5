// Package logger implements output.LoggerPort on zap, writing JSON lines to a
// rotated file under ./log plus a console echo for warnings and errors.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"screen-agent/internal/application/port/output"
)

var _ output.LoggerPort = (*ZapAdapter)(nil)

type ZapAdapter struct {
	sugar *zap.SugaredLogger
	close func() error
}

type Options struct {
	// Dir is where log files land. Defaults to "log".
	Dir string
	// Name tags the log file, sanitized into the filename.
	Name string
	// Debug lowers the file threshold to debug level.
	Debug bool
}

func NewZapAdapter(opts Options) (*ZapAdapter, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(opts.Name))
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, filename),
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
	}

	fileLevel := zapcore.InfoLevel
	if opts.Debug {
		fileLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), fileLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), zapcore.WarnLevel),
	)
	base := zap.New(core)

	return &ZapAdapter{
		sugar: base.Sugar(),
		close: func() error {
			_ = base.Sync()
			return rotated.Close()
		},
	}, nil
}

func (l *ZapAdapter) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapAdapter) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapAdapter) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapAdapter) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *ZapAdapter) WithField(key string, value any) output.LoggerPort {
	return &ZapAdapter{
		sugar: l.sugar.With(key, value),
		close: l.close,
	}
}

func (l *ZapAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapAdapter{
		sugar: l.sugar.With(args...),
		close: l.close,
	}
}

func (l *ZapAdapter) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

func sanitize(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			result = append(result, r)
		case r == ' ':
			result = append(result, '_')
		}
	}
	if len(result) == 0 {
		return "run"
	}
	if len(result) > 40 {
		result = result[:40]
	}
	return string(result)
}

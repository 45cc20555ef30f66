package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu    sync.Mutex
	file  *os.File
	base  = zap.NewNop().Sugar()
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Options controls where log lines go.
type Options struct {
	Dir    string // log file directory; empty disables the file sink
	Level  string // debug, info, warn, error
	Pretty bool   // also write human-readable lines to stderr
}

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Safe to skip — all log calls become no-ops if not initialized.
func Init(opts Options) error {
	SetLevel(opts.Level)

	var cores []zapcore.Core
	var f *os.File
	if opts.Dir != "" {
		path := filepath.Join(opts.Dir, "readlater.log")
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}

		// Rotate if too large.
		if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
			os.Rename(path, path+".1")
		}

		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
	}
	if opts.Pretty {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level))
	}

	logger := zap.NewNop()
	if len(cores) > 0 {
		logger = zap.New(zapcore.NewTee(cores...))
	}

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	base = logger.Sugar()
	mu.Unlock()
	return nil
}

// SetLevel changes the minimum level at runtime. Unknown names are ignored.
func SetLevel(name string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return
	}
	level.SetLevel(l)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	base.Sync()
	if file != nil {
		file.Close()
		file = nil
	}
	base = zap.NewNop().Sugar()
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("sync.merged", "remote", 5, "pushed", 2)
func Info(event string, kv ...any) {
	logger().Infow(event, fields(kv)...)
}

// Debug logs a low-volume diagnostic event.
func Debug(event string, kv ...any) {
	logger().Debugw(event, fields(kv)...)
}

// Warn logs a degraded-but-handled event.
func Warn(event string, kv ...any) {
	logger().Warnw(event, fields(kv)...)
}

// Error logs an event with an error.
//
//	applog.Error("cloud.upsert", err, "id", id)
func Error(event string, err error, kv ...any) {
	if err != nil {
		kv = append([]any{"err", err.Error()}, kv...)
	}
	logger().Errorw(event, fields(kv)...)
}

func logger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// fields truncates long values so a runaway payload can't flood the log.
func fields(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, fmt.Sprint(kv[i]), truncate(kv[i+1]))
	}
	return out
}

func truncate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if len(s) > maxValueLen {
		return s[:maxValueLen] + truncSuffix
	}
	return s
}

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes the process logger. Zero value logs JSON to stdout only.
type Options struct {
	// File, when set, additionally writes rotated logs to this path.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	rotMu sync.Mutex
	rot   *lumberjack.Logger
)

// New returns a production-friendly structured logger.
// No business logic should depend on logging implementation details.
func New(appEnv string, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stdout
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		rotMu.Lock()
		rot = lj
		rotMu.Unlock()
		w = io.MultiWriter(os.Stdout, lj)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush closes the rotated file writer, if any, within timeout.
func ShutdownFlush(ctx context.Context, timeout time.Duration) error {
	rotMu.Lock()
	lj := rot
	rot = nil
	rotMu.Unlock()
	if lj == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- lj.Close() }()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// slogProvider satisfies core's logger provider contract on top of the
// standard library's structured logger, which is all a single-binary daemon
// needs. Library embedders bring their own provider instead.
type slogProvider struct {
	root *slog.Logger
}

func newSlogProvider(level string) *slogProvider {
	logLevel := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	return &slogProvider{root: slog.New(handler)}
}

func (p *slogProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.root == nil {
		return glog.Nop()
	}
	return &slogLogger{logger: p.root.With("logger", name)}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Trace(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug-4, msg, args...)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) Fatal(msg string, args ...any) {
	l.logger.Error(msg, args...)
	os.Exit(1)
}

func (l *slogLogger) WithContext(context.Context) glog.Logger { return l }

var (
	_ glog.LoggerProvider = (*slogProvider)(nil)
	_ glog.Logger         = (*slogLogger)(nil)
)

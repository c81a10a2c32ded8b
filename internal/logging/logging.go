// Package logging builds the per-component loggers. Every component gets a
// stdlib *log.Logger with a bracketed prefix; output goes to stderr or to a
// size-rotated file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"healthlog/internal/config"
)

// Factory hands out loggers sharing one destination.
type Factory struct {
	out    io.Writer
	closer io.Closer
	flags  int
}

// New creates a Factory for cfg. With no file configured, loggers write to
// stderr.
func New(cfg config.Log) *Factory {
	if cfg.File == "" {
		return &Factory{out: os.Stderr, flags: log.LstdFlags}
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return &Factory{out: rotator, closer: rotator, flags: log.LstdFlags}
}

// NewWriter creates a Factory writing to w, for tests.
func NewWriter(w io.Writer) *Factory {
	return &Factory{out: w}
}

// Logger returns a logger whose lines start with "[name] ".
func (f *Factory) Logger(name string) *log.Logger {
	return log.New(f.out, "["+name+"] ", f.flags)
}

// Close flushes and closes a rotating log file.
func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

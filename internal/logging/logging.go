// Package logging builds the component loggers used across daybook. Log
// output goes to a size-rotated file; daemon-style commands can mirror
// it to stderr.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the shared log destination.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console mirrors output to stderr in addition to the file.
	Console bool
}

// Factory hands out per-component loggers writing to one destination.
type Factory struct {
	out io.Writer
}

// NewFactory builds the shared destination. An empty file means
// stderr only.
func NewFactory(opts Options) *Factory {
	var writers []io.Writer
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   true,
		})
	}
	if opts.Console || opts.File == "" {
		writers = append(writers, os.Stderr)
	}
	return &Factory{out: io.MultiWriter(writers...)}
}

// For returns a logger tagged with the component name.
func (f *Factory) For(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags|log.Lmsgprefix)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

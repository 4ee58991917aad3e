// Package logger owns the process-wide zerolog logger of the taskboard API.
//
// main calls Init once with the configured level and service name. Services,
// the event dispatcher and the HTTP layer take child loggers from Component,
// so every line says which part of the system wrote it.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options is filled from LOG_LEVEL and LOG_PRETTY.
type Options struct {
	// Level accepts any zerolog level name plus "warning". Unknown or empty
	// values log at info.
	Level string
	// Pretty switches to the console writer for local development.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is stamped on every line as "service".
	Service string
}

var (
	mu     sync.RWMutex
	root   zerolog.Logger
	active bool
)

// Init builds the root logger. Only the first call after start (or after
// Reset) has any effect; later calls return the existing logger.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if active {
		return root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	root = newRoot(opts, lvl)
	active = true
	return root
}

func newRoot(opts Options, lvl zerolog.Level) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

// Get returns the root logger. It panics when Init has not run, which only
// happens through a wiring mistake in main or a test.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !active {
		panic("logger: Get() called before Init()")
	}
	return root
}

// Component returns a child logger tagged with "component".
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Level reports the level the root logger was built with.
func Level() zerolog.Level {
	return Get().GetLevel()
}

// Reset drops the root logger so tests can call Init again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	root = zerolog.Logger{}
	active = false
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

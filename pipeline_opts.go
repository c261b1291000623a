package tarcat

import (
	"log/slog"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFilter selects which entries are streamed.
// A nil or empty filter admits everything.
func WithFilter(f *Filter) Option {
	return func(p *Pipeline) {
		p.filter = f
	}
}

// WithProgress registers a callback receiving progress events from
// Run and Count.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithLogger sets the logger. Logging is disabled by default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithOpener replaces the archive opener. The default opener selects a
// backend by filename; tests substitute in-memory archives.
func WithOpener(open Opener) Option {
	return func(p *Pipeline) {
		p.open = open
	}
}

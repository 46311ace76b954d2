// Package logger adapts log/slog to the printf-style loggers third-party
// libraries expect.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Printf forwards printf-style calls to slog at a fixed level.
type Printf struct {
	logger *slog.Logger
	level  slog.Level
}

// New returns an adapter tagging every record with component.
func New(base *slog.Logger, component string, level slog.Level) *Printf {
	if base == nil {
		base = slog.Default()
	}
	return &Printf{logger: base.With("component", component), level: level}
}

// Printf formats the message and logs it.
func (p *Printf) Printf(format string, args ...any) {
	if p == nil {
		return
	}
	ctx := context.Background()
	if !p.logger.Enabled(ctx, p.level) {
		return
	}
	p.logger.Log(ctx, p.level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Logf is the method-value form used by libraries taking a func(string, ...any).
func (p *Printf) Logf(format string, args ...any) {
	p.Printf(format, args...)
}

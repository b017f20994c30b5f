// Package observe provides scoped timing spans for pipeline operations.
//
// An Observer is passed to each component that performs work worth timing;
// each operation opens a Span and ends it with its outcome. Implementations
// log, export metrics, or record spans for assertions in tests.
package observe

import (
	"context"
	"log/slog"
	"time"
)

type Observer interface {
	Start(ctx context.Context, op string, attrs ...any) Span
}

type Span interface {
	// End closes the span. A nil err marks the operation successful.
	End(err error, attrs ...any)
}

// Nop returns an Observer that discards every span.
func Nop() Observer {
	return nopObserver{}
}

type nopObserver struct{}

func (nopObserver) Start(context.Context, string, ...any) Span { return nopSpan{} }

type nopSpan struct{}

func (nopSpan) End(error, ...any) {}

// Multi fans each span out to all given observers.
func Multi(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Start(ctx context.Context, op string, attrs ...any) Span {
	spans := make(multiSpan, 0, len(m))
	for _, o := range m {
		spans = append(spans, o.Start(ctx, op, attrs...))
	}
	return spans
}

type multiSpan []Span

func (m multiSpan) End(err error, attrs ...any) {
	for _, s := range m {
		s.End(err, attrs...)
	}
}

// LogObserver writes one slog line per finished span.
type LogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogObserver(logger *slog.Logger, level slog.Level) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger, level: level}
}

func (o *LogObserver) Start(ctx context.Context, op string, attrs ...any) Span {
	return &logSpan{
		observer: o,
		ctx:      ctx,
		op:       op,
		attrs:    attrs,
		start:    time.Now(),
	}
}

type logSpan struct {
	observer *LogObserver
	ctx      context.Context
	op       string
	attrs    []any
	start    time.Time
}

func (s *logSpan) End(err error, attrs ...any) {
	args := make([]any, 0, len(s.attrs)+len(attrs)+6)
	args = append(args, "op", s.op, "duration", time.Since(s.start))
	args = append(args, s.attrs...)
	args = append(args, attrs...)

	if err != nil {
		args = append(args, "error", err)
		s.observer.logger.Log(s.ctx, slog.LevelWarn, "Operation failed", args...)
		return
	}
	s.observer.logger.Log(s.ctx, s.observer.level, "Operation completed", args...)
}

package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCapturesSpans(t *testing.T) {
	rec := NewRecorder()

	span := rec.Start(context.Background(), "fetch_feed", "url", "https://example.com/rss")
	span.End(nil, "entries", 3)

	failed := rec.Start(context.Background(), "fetch_page")
	failed.End(errors.New("boom"))

	spans := rec.Spans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	if spans[0].Op != "fetch_feed" {
		t.Errorf("Expected op 'fetch_feed', got '%s'", spans[0].Op)
	}
	if len(spans[0].Attrs) != 4 {
		t.Errorf("Expected start and end attrs to be merged, got %v", spans[0].Attrs)
	}
	if spans[0].Err != nil {
		t.Errorf("Expected no error, got %v", spans[0].Err)
	}
	if spans[0].Duration < 0 {
		t.Errorf("Expected non-negative duration, got %v", spans[0].Duration)
	}

	if got := rec.Find("fetch_page"); len(got) != 1 || got[0].Err == nil {
		t.Errorf("Expected one failed fetch_page span, got %v", got)
	}
}

func TestLogObserverWritesOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLogObserver(logger, slog.LevelInfo)

	obs.Start(context.Background(), "normalize").End(nil, "rows", 5)
	obs.Start(context.Background(), "load").End(errors.New("disk full"))

	out := buf.String()
	if !strings.Contains(out, "Operation completed") || !strings.Contains(out, "op=normalize") {
		t.Errorf("Expected completed normalize line, got: %s", out)
	}
	if !strings.Contains(out, "rows=5") {
		t.Errorf("Expected end attrs in log line, got: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "disk full") {
		t.Errorf("Expected failed load logged at warn, got: %s", out)
	}
}

func TestPromObserverCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPromObserver(reg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	obs.Start(context.Background(), "fetch_feed").End(nil)
	obs.Start(context.Background(), "fetch_feed").End(nil)
	obs.Start(context.Background(), "fetch_feed").End(errors.New("timeout"))

	if got := testutil.ToFloat64(obs.operations.WithLabelValues("fetch_feed", "success")); got != 2 {
		t.Errorf("Expected 2 successful operations, got %v", got)
	}
	if got := testutil.ToFloat64(obs.operations.WithLabelValues("fetch_feed", "error")); got != 1 {
		t.Errorf("Expected 1 failed operation, got %v", got)
	}

	if _, err := NewPromObserver(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestMultiFansOut(t *testing.T) {
	first := NewRecorder()
	second := NewRecorder()

	Multi(first, second, Nop()).Start(context.Background(), "run").End(nil)

	if len(first.Spans()) != 1 || len(second.Spans()) != 1 {
		t.Errorf("Expected both recorders to receive the span, got %d and %d", len(first.Spans()), len(second.Spans()))
	}
}

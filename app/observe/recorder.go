package observe

import (
	"context"
	"sync"
	"time"
)

type SpanRecord struct {
	Op       string
	Attrs    []any
	Duration time.Duration
	Err      error
}

// Recorder keeps finished spans in memory.
type Recorder struct {
	mu    sync.Mutex
	spans []SpanRecord
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Start(_ context.Context, op string, attrs ...any) Span {
	return &recordedSpan{recorder: r, op: op, attrs: attrs, start: time.Now()}
}

func (r *Recorder) Spans() []SpanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	spansCopy := make([]SpanRecord, len(r.spans))
	copy(spansCopy, r.spans)
	return spansCopy
}

// Find returns every recorded span for op.
func (r *Recorder) Find(op string) []SpanRecord {
	var found []SpanRecord
	for _, s := range r.Spans() {
		if s.Op == op {
			found = append(found, s)
		}
	}
	return found
}

type recordedSpan struct {
	recorder *Recorder
	op       string
	attrs    []any
	start    time.Time
}

func (s *recordedSpan) End(err error, attrs ...any) {
	record := SpanRecord{
		Op:       s.op,
		Attrs:    append(append([]any{}, s.attrs...), attrs...),
		Duration: time.Since(s.start),
		Err:      err,
	}

	s.recorder.mu.Lock()
	s.recorder.spans = append(s.recorder.spans, record)
	s.recorder.mu.Unlock()
}

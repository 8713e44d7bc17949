package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"adpilot/internal/domain"
	"adpilot/internal/infra/tracer"
)

// FileSink mirrors audit entries to a JSONL file, one entry per line.
// Append-only: existing lines are never rewritten in the hot path.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileSink opens (or creates, with 0600 permissions) the JSONL file at
// path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &FileSink{file: f, path: path}, nil
}

// Append writes one entry as a single JSON line. When a span is active the
// decision is also attached as a span event.
func (s *FileSink) Append(ctx context.Context, entry domain.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return domain.NewDomainError("FileSink.Append", domain.ErrAuditWrite, err.Error())
	}

	s.mu.Lock()
	_, err = s.file.Write(append(data, '\n'))
	s.mu.Unlock()
	if err != nil {
		return domain.NewDomainError("FileSink.Append", domain.ErrAuditWrite, err.Error())
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("audit."+string(entry.Result), trace.WithAttributes(
			tracer.StringAttr("audit.identity", string(entry.Identity)),
			tracer.StringAttr("audit.detail", entry.Detail),
		))
	}

	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

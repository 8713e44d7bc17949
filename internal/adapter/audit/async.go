package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adpilot/internal/domain"
)

// appendTimeout bounds one background write so a wedged sink cannot stall
// the drain loop forever.
const appendTimeout = 5 * time.Second

// AsyncSink decouples audit persistence from the request path: Append
// enqueues onto a bounded channel and a single background goroutine drains
// to the wrapped sink. When the queue is full the entry is dropped with an
// error log; the in-memory trail upstream still holds it.
type AsyncSink struct {
	inner  domain.AuditSink
	queue  chan domain.AuditEntry
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAsyncSink wraps inner with a bounded background writer.
func NewAsyncSink(inner domain.AuditSink, queueSize int, logger *slog.Logger) *AsyncSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &AsyncSink{
		inner:  inner,
		queue:  make(chan domain.AuditEntry, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

// Append enqueues the entry without blocking.
func (s *AsyncSink) Append(_ context.Context, entry domain.AuditEntry) error {
	select {
	case <-s.done:
		return domain.NewDomainError("AsyncSink.Append", domain.ErrAuditWrite, "sink closed")
	default:
	}

	select {
	case s.queue <- entry:
		return nil
	default:
		s.logger.Error("audit queue full, entry dropped",
			"entry_id", entry.ID,
			"identity", entry.Identity,
		)
		return domain.NewDomainError("AsyncSink.Append", domain.ErrAuditWrite, "queue full")
	}
}

func (s *AsyncSink) drain() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.queue:
			s.write(entry)
		case <-s.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case entry := <-s.queue:
					s.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) write(entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := s.inner.Append(ctx, entry); err != nil {
		s.logger.Error("audit background write failed",
			"entry_id", entry.ID,
			"error", err,
		)
	}
}

// Close stops accepting entries, flushes the queue and closes the wrapped
// sink. Idempotent.
func (s *AsyncSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.inner.Close()
	})
	return err
}

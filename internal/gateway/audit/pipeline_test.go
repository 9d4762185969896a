package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

type captureSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	writes int
	err    error
	closed bool
}

func (s *captureSink) Write(ctx context.Context, events []domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	s.writes++
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() ([]domain.AuditEvent, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...), s.writes
}

func event(id string) domain.AuditEvent {
	return domain.AuditEvent{RequestID: id, Timestamp: time.Now()}
}

func TestPipeline(t *testing.T) {
	t.Run("flush drains the buffer in one batch", func(t *testing.T) {
		sink := &captureSink{}
		p := audit.NewPipeline([]audit.Sink{sink}, 100, time.Hour, nil)

		p.Emit(event("a"))
		p.Emit(event("b"))
		p.Flush(context.Background())

		events, writes := sink.snapshot()
		require.Len(t, events, 2)
		require.Equal(t, 1, writes)

		// Nothing left for a second flush.
		p.Flush(context.Background())
		_, writes = sink.snapshot()
		require.Equal(t, 1, writes)
	})

	t.Run("overflow forces a flush without waiting for the ticker", func(t *testing.T) {
		sink := &captureSink{}
		p := audit.NewPipeline([]audit.Sink{sink}, 2, time.Hour, nil)
		p.Start()
		defer p.Stop()

		p.Emit(event("a"))
		p.Emit(event("b"))

		require.Eventually(t, func() bool {
			events, _ := sink.snapshot()
			return len(events) == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stop drains remaining events and closes sinks", func(t *testing.T) {
		sink := &captureSink{}
		p := audit.NewPipeline([]audit.Sink{sink}, 100, time.Hour, nil)
		p.Start()

		p.Emit(event("tail"))
		p.Stop()

		events, _ := sink.snapshot()
		require.Len(t, events, 1)
		require.True(t, sink.closed)
	})

	t.Run("sink failure drops the batch silently", func(t *testing.T) {
		broken := &captureSink{err: errors.New("disk full")}
		healthy := &captureSink{}
		p := audit.NewPipeline([]audit.Sink{broken, healthy}, 100, time.Hour, nil)

		p.Emit(event("a"))
		p.Flush(context.Background())

		events, _ := healthy.snapshot()
		require.Len(t, events, 1)
	})
}

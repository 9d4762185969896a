package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
)

// Pipeline buffers audit events and flushes them to the sinks in batches,
// keeping sink I/O off the request path. The buffer overflowing forces an
// immediate flush; otherwise the ticker drains it periodically.
type Pipeline struct {
	sinks         []Sink
	bufferSize    int
	flushInterval time.Duration
	logger        *slog.Logger

	mu  sync.Mutex
	buf []domain.AuditEvent

	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPipeline creates a Pipeline. bufferSize <= 0 defaults to 100 events,
// flushInterval <= 0 to ten seconds. Call Start to run the flusher and Stop
// on shutdown; Stop performs a final drain.
func NewPipeline(sinks []Sink, bufferSize int, flushInterval time.Duration, logger *slog.Logger) *Pipeline {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sinks:         sinks,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		logger:        logger,
		buf:           make([]domain.AuditEvent, 0, bufferSize),
		flushCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Emit queues one event. Never blocks the caller on sink I/O.
func (p *Pipeline) Emit(ev domain.AuditEvent) {
	p.mu.Lock()
	p.buf = append(p.buf, ev)
	full := len(p.buf) >= p.bufferSize
	p.mu.Unlock()

	if full {
		select {
		case p.flushCh <- struct{}{}:
		default: // a flush is already pending
		}
	}
}

// Start begins the background flusher. Non-blocking.
func (p *Pipeline) Start() {
	go p.run()
}

// Stop shuts the flusher down after a final drain.
func (p *Pipeline) Stop() {
	close(p.stopCh)
	<-p.doneCh

	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil {
			p.logger.Warn("audit sink close failed", "error", err)
		}
	}
}

func (p *Pipeline) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Flush(context.Background())
		case <-p.flushCh:
			p.Flush(context.Background())
		case <-p.stopCh:
			p.Flush(context.Background())
			return
		}
	}
}

// Flush drains the buffer into every sink. Sink failures are logged and the
// batch is dropped for that sink; auditing never fails a request.
func (p *Pipeline) Flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.buf) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.buf
	p.buf = make([]domain.AuditEvent, 0, p.bufferSize)
	p.mu.Unlock()

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			obs.AuditDropped()
			p.logger.Warn("audit sink write failed", "error", err, "events", len(batch))
		}
	}
}

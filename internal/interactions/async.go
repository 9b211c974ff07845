// internal/interactions/async.go
package interactions

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"banking-assistant/internal/models"
)

const writeTimeout = 5 * time.Second

// AsyncRecorder hands records to a background writer. Submit never blocks:
// when the buffer is full the record is dropped. Write errors are logged and
// never reach the caller.
type AsyncRecorder struct {
	next    Recorder
	queue   chan models.InteractionRecord
	logger  Logger
	dropped atomic.Uint64
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncRecorder(next Recorder, bufferSize int, log Logger) *AsyncRecorder {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	a := &AsyncRecorder{
		next:   next,
		queue:  make(chan models.InteractionRecord, bufferSize),
		logger: log,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AsyncRecorder) run() {
	defer a.wg.Done()
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := a.next.Record(ctx, rec); err != nil {
			a.logger.Warn("Interaction record failed", map[string]interface{}{
				"recordId":  rec.ID,
				"sessionId": rec.SessionID,
				"error":     err.Error(),
			})
		}
		cancel()
	}
}

// Submit queues rec and reports whether it was accepted.
func (a *AsyncRecorder) Submit(rec models.InteractionRecord) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- rec:
		return true
	default:
		n := a.dropped.Add(1)
		a.logger.Warn("Interaction buffer full, record dropped", map[string]interface{}{
			"sessionId": rec.SessionID,
			"dropped":   n,
		})
		return false
	}
}

// Record implements Recorder; it always succeeds.
func (a *AsyncRecorder) Record(_ context.Context, rec models.InteractionRecord) error {
	a.Submit(rec)
	return nil
}

// Dropped is the number of records discarded because the buffer was full.
func (a *AsyncRecorder) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written, or
// until ctx is done.
func (a *AsyncRecorder) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

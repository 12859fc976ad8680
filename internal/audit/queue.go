package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// writeTimeout bounds a single sink write.
const writeTimeout = 5 * time.Second

// Queue buffers audit events in a bounded channel and hands them to a Sink
// from a single worker goroutine. Record never blocks: when the buffer is
// full or the queue is closed the event is dropped and logged.
type Queue struct {
	sink Sink
	log  *slog.Logger
	now  func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan Event
}

// NewQueue constructs a Queue holding at most size pending events.
// Call Run to start delivery and Close to stop accepting events.
func NewQueue(sink Sink, size int, log *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		sink:   sink,
		log:    log,
		now:    time.Now,
		events: make(chan Event, size),
	}
}

// Record enqueues an event. It is safe for concurrent use and never returns
// an error to the caller.
func (q *Queue) Record(ctx context.Context, action string, actor domain.Actor, metadata map[string]any) {
	ev := Event{
		Action:     action,
		ActorID:    actor.UserID,
		IP:         actor.IP,
		UserAgent:  actor.UserAgent,
		Metadata:   metadata,
		OccurredAt: q.now().UTC(),
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.WarnContext(ctx, "audit event dropped: queue closed", "action", action)
		return
	}
	select {
	case q.events <- ev:
	default:
		q.log.WarnContext(ctx, "audit event dropped: queue full", "action", action, "capacity", cap(q.events))
	}
}

// Run delivers events until Close is called and the buffer is drained.
// Events still buffered when ctx is cancelled are delivered with a fresh
// timeout so a shutdown does not lose them.
func (q *Queue) Run(ctx context.Context) {
	for ev := range q.events {
		q.deliver(context.WithoutCancel(ctx), ev)
	}
}

// Close stops accepting events. Run returns once the buffer is empty.
// Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}

func (q *Queue) deliver(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.log.ErrorContext(ctx, "audit sink panicked", "action", ev.Action, "panic", fmt.Sprint(r))
		}
	}()

	if err := q.sink.Write(ctx, ev); err != nil {
		q.log.ErrorContext(ctx, "audit sink write failed", "action", ev.Action, "error", err)
	}
}

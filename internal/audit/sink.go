package audit

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Sink persists or forwards audit events. Implementations may fail; the
// Queue logs those failures and moves on.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

// LogSink writes every event as a structured log line.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink returns a Sink that logs events at info level.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, ev Event) error {
	s.log.InfoContext(ctx, "audit",
		"action", ev.Action,
		"actor_id", ev.ActorID,
		"ip", ev.IP,
		"user_agent", ev.UserAgent,
		"metadata", ev.Metadata,
		"occurred_at", ev.OccurredAt,
	)
	return nil
}

// MultiSink writes each event to every sink concurrently. Every sink is
// attempted even when another fails; the first error is returned.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, ev Event) error {
	var g errgroup.Group
	for i, s := range m {
		g.Go(func() error {
			if err := s.Write(ctx, ev); err != nil {
				return fmt.Errorf("audit.MultiSink: sink %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

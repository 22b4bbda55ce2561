package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/castforge/podcast-be/internal/domain"
	"github.com/castforge/podcast-be/shared/logger"
)

// DefaultDispatchTimeout bounds a delivery goroutine's lifetime.
const DefaultDispatchTimeout = 15 * time.Second

// Sink is one delivery target for terminal job events.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher fans a terminal job event out to every configured sink. Each
// delivery runs on its own goroutine so the scheduler never blocks on a slow
// endpoint; failures are logged and dropped.
type Dispatcher struct {
	sinks   []Sink
	logger  *logger.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks. A non-positive
// timeout falls back to DefaultDispatchTimeout.
func NewDispatcher(log *logger.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	return &Dispatcher{
		sinks:   sinks,
		logger:  log,
		timeout: timeout,
	}
}

// JobFinished builds the event for a terminal job and dispatches it to all
// sinks. It returns immediately; delivery happens in the background.
func (d *Dispatcher) JobFinished(job domain.Job) {
	if len(d.sinks) == 0 {
		return
	}

	event := NewEvent(job)

	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := sink.Deliver(ctx, event); err != nil {
				d.logger.Warn("Failed to deliver job event",
					slog.String("sink", fmt.Sprintf("%T", sink)),
					slog.String("event", event.Event),
					slog.String("job_id", event.JobID),
					slog.Any("error", err),
				)
				return
			}

			d.logger.Debug("Job event delivered",
				slog.String("sink", fmt.Sprintf("%T", sink)),
				slog.String("event", event.Event),
				slog.String("job_id", event.JobID),
			)
		}(sink)
	}
}

// Close waits for in-flight deliveries to finish. Each delivery is bounded
// by the dispatch timeout, so Close returns promptly.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

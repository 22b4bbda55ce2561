// Package queue provides the wake channel between job submission and the
// scheduler. It carries job IDs only; the job store remains the source of
// truth, so a dropped wake is recovered by the scheduler's periodic rescan.
package queue

// DefaultSize is the wake buffer used when no size is configured.
const DefaultSize = 256

// Queue is a bounded, non-blocking wake queue of job IDs.
type Queue struct {
	ch chan string
}

// New creates a queue with the given buffer size. Non-positive sizes fall
// back to DefaultSize.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{ch: make(chan string, size)}
}

// Enqueue offers a job ID to the scheduler without blocking. It reports
// false when the buffer is full; the job stays queued in the store and is
// picked up by the next rescan.
func (q *Queue) Enqueue(id string) bool {
	select {
	case q.ch <- id:
		return true
	default:
		return false
	}
}

// Wait exposes the receive side of the queue for the scheduler loop.
func (q *Queue) Wait() <-chan string {
	return q.ch
}

// Len returns the number of wakes currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

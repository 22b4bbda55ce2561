package domain

import "errors"

var (
	// ErrJobNotFound is returned when no record exists for the given job ID
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotQueued is returned when claiming a job that is not in the queued state
	ErrJobNotQueued = errors.New("job is not queued")

	// ErrJobNotProcessing is returned when finishing a job that was never claimed
	ErrJobNotProcessing = errors.New("job is not processing")

	// ErrJobFinished is returned when mutating a job that already reached a terminal state
	ErrJobFinished = errors.New("job already finished")

	// ErrWorkerBusy is returned when claiming a job while another job is processing
	ErrWorkerBusy = errors.New("another job is already processing")

	// ErrInvalidProgress is returned when an update would move progress
	// backwards or outside the 0-100 range
	ErrInvalidProgress = errors.New("progress must stay within [0,100] and never decrease")
)

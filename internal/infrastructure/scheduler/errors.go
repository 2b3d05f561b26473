package scheduler

import "errors"

var (
	// ErrInvalidJob is returned when a job is registered with a bad cadence or no handler
	ErrInvalidJob = errors.New("scheduler: invalid job")

	// ErrJobNotFound is returned when a job id is not registered
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrSchedulerStopped is returned when registering after StopAll
	ErrSchedulerStopped = errors.New("scheduler: stopped")
)

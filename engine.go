package mrchain

import "context"

// Engine is the execution backend a pipeline is submitted to. Implementations
// own all scheduling, data movement, and fault handling; mrchain only
// describes jobs and submits them one at a time.
type Engine interface {
	// CreateJob builds a concrete, unsubmitted job for the given stage with
	// the given resolved configuration.
	CreateJob(stage *StageSpec, conf *Config) (Job, error)
}

// Job is a concrete job under construction. The executor binds I/O and
// applies queued job modifiers before calling Submit.
type Job interface {
	// SetInputs binds the job's input locations. All locations are read with
	// the same format.
	SetInputs(locations []string, format Format)

	// SetOutput binds the job's output location.
	SetOutput(location string, format Format)

	// SetConf sets a generic engine property on the job.
	SetConf(key, value string)

	// SetReducers sets the job's reduce task count.
	SetReducers(n int)

	// Submit submits the job and blocks until it completes or fails.
	// A Job must be submitted at most once.
	Submit(ctx context.Context) error
}

package mrchain

import "github.com/pkg/errors"

var (
	// ErrNoConfig indicates a chain whose root carries no configuration
	// overlay. Normal construction always sets one, so this is a contract
	// violation.
	ErrNoConfig = errors.New("pipeline root has no configuration overlay")

	// ErrNoPredecessor indicates a stage node without a predecessor, which
	// the chain builder never produces.
	ErrNoPredecessor = errors.New("stage node has no predecessor")

	// ErrNoInputs indicates a job submitted with no input locations bound.
	ErrNoInputs = errors.New("job has no input locations")

	// ErrNoOutput indicates a job submitted with no output location bound.
	ErrNoOutput = errors.New("job has no output location")
)

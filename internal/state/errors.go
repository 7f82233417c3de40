package state

import "errors"

// State estimator errors.
var (
	// ErrInvalidCommand indicates a state-manager command that could
	// not be decoded or carries an unknown action.
	ErrInvalidCommand = errors.New("state: invalid command")

	// ErrInvalidStatus indicates a set_status command with a value
	// outside the allowed status set.
	ErrInvalidStatus = errors.New("state: invalid status")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("state: estimator already started")
)

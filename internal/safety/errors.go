package safety

import "errors"

// Safety monitor errors.
var (
	// ErrInvalidScan indicates a scan message that cannot be analyzed:
	// missing ranges or angles, or mismatched array lengths.
	ErrInvalidScan = errors.New("safety: invalid scan")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("safety: monitor already started")

	// ErrEstopPublishFailed indicates the emergency-stop command could
	// not be published. This is the one failure the monitor surfaces
	// loudly: a silent failure here is unsafe.
	ErrEstopPublishFailed = errors.New("safety: emergency stop publish failed")
)

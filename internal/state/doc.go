// Package state implements the motion state estimator.
//
// The estimator fuses cumulative-distance telemetry from the two wheel
// encoders into a differential-drive pose estimate (x, y, heading) and
// publishes the full robot state at a fixed rate. Encoder updates
// arrive in any interleaving; integration runs on whichever wheel
// reports once both have reported at least once, and skips deltas
// below one millisecond to keep velocity estimates finite.
//
// Control commands on the state-manager topic can reset odometry,
// override the pose, or set the robot status. An emergency-stop
// notification from the safety monitor flips the status and zeroes
// velocity immediately, independent of the next odometry tick.
//
// State is held behind a single mutex with the bus dispatch path as
// the sole writer; CurrentState returns a copy. Each publish tick can
// also forward a pose sample to an optional telemetry recorder, which
// buffers internally and never blocks the update path.
package state

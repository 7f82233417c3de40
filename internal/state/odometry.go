package state

import (
	"math"
	"time"
)

// minUpdateInterval is the smallest dt worth integrating. Updates
// arriving closer together than this are folded into the next one,
// avoiding velocity spikes from near-zero time deltas.
const minUpdateInterval = time.Millisecond

// odometry holds differential-drive dead-reckoning state. Not safe for
// concurrent use; the estimator serializes access under its mutex.
type odometry struct {
	wheelBase float64

	x, y    float64
	heading float64
	linear  float64
	angular float64

	// curLeft/curRight are the latest cumulative distances reported by
	// each wheel; lastLeft/lastRight are the values at the previous
	// integration step.
	curLeft, curRight   float64
	lastLeft, lastRight float64
	leftSeen, rightSeen bool

	lastUpdate time.Time
}

// newOdometry creates odometry state anchored at the origin.
// The baseline time seeds the first dt computation.
func newOdometry(wheelBase float64, now time.Time) odometry {
	return odometry{
		wheelBase:  wheelBase,
		lastUpdate: now,
	}
}

// recordLeft ingests a left-wheel cumulative distance and integrates if
// both wheels have reported. Returns true when the pose was updated.
func (o *odometry) recordLeft(distance float64, now time.Time) bool {
	o.curLeft = distance
	o.leftSeen = true
	return o.integrate(now)
}

// recordRight ingests a right-wheel cumulative distance and integrates
// if both wheels have reported. Returns true when the pose was updated.
func (o *odometry) recordRight(distance float64, now time.Time) bool {
	o.curRight = distance
	o.rightSeen = true
	return o.integrate(now)
}

// integrate advances the pose from the wheel distance deltas.
//
// Updates arrive in any interleaving; integration only runs once both
// wheels have reported at least once, and skips when dt is below the
// minimum so velocities stay finite.
func (o *odometry) integrate(now time.Time) bool {
	if !o.leftSeen || !o.rightSeen {
		return false
	}

	dt := now.Sub(o.lastUpdate)
	if dt < minUpdateInterval {
		return false
	}

	deltaLeft := o.curLeft - o.lastLeft
	deltaRight := o.curRight - o.lastRight
	deltaDist := (deltaLeft + deltaRight) / 2
	deltaHeading := (deltaRight - deltaLeft) / o.wheelBase

	o.heading = normalizeHeading(o.heading + deltaHeading)
	o.x += deltaDist * math.Cos(o.heading)
	o.y += deltaDist * math.Sin(o.heading)

	dtSec := dt.Seconds()
	o.linear = deltaDist / dtSec
	o.angular = deltaHeading / dtSec

	o.lastLeft = o.curLeft
	o.lastRight = o.curRight
	o.lastUpdate = now
	return true
}

// reset zeroes pose and velocity and re-baselines the wheel distances
// to their current values so the next delta is zero.
func (o *odometry) reset(now time.Time) {
	o.x = 0
	o.y = 0
	o.heading = 0
	o.linear = 0
	o.angular = 0
	o.lastLeft = o.curLeft
	o.lastRight = o.curRight
	o.lastUpdate = now
}

// setPose overrides the pose directly. Heading is renormalized.
func (o *odometry) setPose(x, y, heading float64) {
	o.x = x
	o.y = y
	o.heading = normalizeHeading(heading)
}

// normalizeHeading maps any heading in radians onto (-π, π].
func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h > math.Pi {
		h -= 2 * math.Pi
	} else if h <= -math.Pi {
		h += 2 * math.Pi
	}
	return h
}

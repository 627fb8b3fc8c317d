package pilot

import "math"

// FlightController holds the stateless closed-loop control primitives the
// combat pilot steers with. Both operations read the craft's live velocities
// and accelerations from their arguments each call; nothing is cached, so
// the same controller can serve any craft.
type FlightController struct {
	cfg *Config
}

// NewFlightController builds a controller over the given tuning.
func NewFlightController(cfg *Config) *FlightController {
	return &FlightController{cfg: cfg}
}

// Turn converts the bearing to a desired direction into yaw and pitch command
// intensities in [-1, 1]. Each axis is handled independently with a
// stopping-angle model: command only while the remaining angle exceeds the
// angle the craft would still sweep if it started braking now, so the craft
// decelerates into the target bearing instead of oscillating across it.
func (f *FlightController) Turn(yaw, pitch, yawVel, pitchVel, maxAngAccel, dt float64) (yawIntensity, pitchIntensity float64) {
	dt = clampDt(dt)
	yawIntensity = f.turnAxis(yaw, yawVel, maxAngAccel, dt)
	pitchIntensity = f.turnAxis(pitch, pitchVel, maxAngAccel, dt)
	return yawIntensity, pitchIntensity
}

// turnAxis is the per-axis stopping-angle controller.
func (f *FlightController) turnAxis(angle, vel, accel, dt float64) float64 {
	a := math.Max(accel, f.cfg.MinAccel)

	// Angle still swept if braking began immediately, signed by the
	// direction of rotation.
	stopping := vel * vel / (2 * a)
	if vel < 0 {
		stopping = -stopping
	}

	remaining := angle - stopping
	if math.Abs(remaining) <= f.cfg.TurnThresholdAngle {
		return 0
	}

	// Intensity ramps with the remaining angle, scaled by the tick length
	// against the configured turn-acceleration duration so the command stays
	// stable across tick rates, then clamped to the actuator limits.
	scale := math.Min(1, dt/f.cfg.TurnAccelDuration)
	return math.Max(-1, math.Min(1, remaining*scale))
}

// Approach returns the forward speed to command for holding the given
// distance band: full ahead above the band, full reverse below it (when a
// minimum is set), zero inside. The stopping distance v²/(2a) is subtracted
// first so the craft brakes predictively instead of sailing through the
// band. This is a dead-band controller, not a PID: no integral state, no
// oscillation by construction given honest acceleration values.
func (f *FlightController) Approach(currentDistance, maxDistance, minDistance, maxSpeed, speed, maxAccel float64) float64 {
	a := math.Max(maxAccel, f.cfg.MinAccel)

	stopping := speed * speed / (2 * a)
	if speed < 0 {
		stopping = -stopping
	}

	switch {
	case currentDistance-stopping > maxDistance:
		return maxSpeed
	case minDistance >= 0 && currentDistance-stopping < minDistance:
		return -maxSpeed
	default:
		return 0
	}
}

package game

import "math"

// stepCraft integrates one craft's control inputs over dt milliseconds.
//
// The model is deliberately simple but exact for the pilot's closed-loop
// predictions: every axis accelerates at input*maxAngAccel while commanded
// and auto-compensates toward zero at maxAngAccel when idle, so a stopping
// angle of v²/(2a) is precisely the angle still traveled once the command
// drops to zero. The engine seeks the desired forward speed at maxLinAccel
// the same way.
func stepCraft(c *Craft, dt float64) {
	st := c.Stats()

	// Angular axes: pitch (X), yaw (Y), roll (Z).
	c.AngVel.X = integrateAxis(c.AngVel.X, c.pitchInput, st.MaxAngAccel, st.MaxAngVel, dt)
	c.AngVel.Y = integrateAxis(c.AngVel.Y, c.yawInput, st.MaxAngAccel, st.MaxAngVel, dt)
	c.AngVel.Z = integrateAxis(c.AngVel.Z, c.rollInput, st.MaxAngAccel, st.MaxAngVel, dt)

	// Roll input is positive-left; a left roll is a negative rotation about
	// the forward axis in our right-handed frame.
	c.Orient = c.Orient.Rotate(c.AngVel.Y*dt, c.AngVel.X*dt, -c.AngVel.Z*dt)

	// Forward speed seeks the desired value (zero when released).
	c.Speed = seek(c.Speed, c.desSpeed, st.MaxLinAccel*dt)

	// Lateral drift: strafe/vertical thrust accelerates in the craft's local
	// right/up plane; idle drift is compensated away.
	if c.strafeInput != 0 || c.vertInput != 0 {
		thrust := c.Orient.Right.Scale(c.strafeInput).Add(c.Orient.Up.Scale(c.vertInput))
		c.Lateral = c.Lateral.Add(thrust.Scale(st.MaxLinAccel * dt))
		if l := c.Lateral.Len(); l > st.MaxSpeed {
			c.Lateral = c.Lateral.Scale(st.MaxSpeed / l)
		}
	} else if l := c.Lateral.Len(); l > 0 {
		decel := st.MaxLinAccel * dt
		if decel >= l {
			c.Lateral = Vec3{}
		} else {
			c.Lateral = c.Lateral.Scale((l - decel) / l)
		}
	}

	c.Pos = c.Pos.Add(c.Velocity().Scale(dt))

	// Weapon cooldowns.
	for _, w := range c.Weapons {
		if w.cooldownLeft > 0 {
			w.cooldownLeft = math.Max(0, w.cooldownLeft-dt)
		}
	}
}

// integrateAxis advances one angular velocity component. A nonzero input
// accelerates toward the commanded direction; an idle axis is braked toward
// zero at full acceleration without crossing it.
func integrateAxis(vel, input, accel, maxVel, dt float64) float64 {
	if input != 0 {
		vel += input * accel * dt
		return math.Max(-maxVel, math.Min(maxVel, vel))
	}
	return seek(vel, 0, accel*dt)
}

// seek moves cur toward want by at most step, landing exactly on want when in
// reach.
func seek(cur, want, step float64) float64 {
	switch {
	case cur < want:
		return math.Min(cur+step, want)
	case cur > want:
		return math.Max(cur-step, want)
	default:
		return cur
	}
}

package pilot

import (
	"math"
	"math/rand"

	"github.com/voidsim/skirmish/game"
)

// ChargePhase tracks where the pilot is in its attack run.
type ChargePhase int

const (
	// ChargeNone is normal distance-managed combat.
	ChargeNone ChargePhase = iota
	// ChargeApproach is a high-speed closing pass on the target.
	ChargeApproach
	// ChargeEvade is the pull-out leg past the target after a pass.
	ChargeEvade
)

func (p ChargePhase) String() string {
	switch p {
	case ChargeApproach:
		return "approach"
	case ChargeEvade:
		return "evade"
	default:
		return "none"
	}
}

// CombatPilot flies one craft. It owns no simulation state beyond its own
// counters: the craft, target and blocker are weak handles re-resolved
// through the world every use, since any of them can be destroyed by other
// systems between ticks.
type CombatPilot struct {
	world  *game.World
	cfg    *Config
	flight *FlightController
	rng    *rand.Rand

	craft   game.Handle
	retired bool

	phase      ChargePhase
	lastTarget game.Handle

	// Combat timers, all in ms. They advance only while the pilot holds a
	// valid firing solution, so they measure sustained engagement rather
	// than wall time.
	sinceRoll      float64
	sinceTargetHit float64
	sinceCloseIn   float64

	// Hits taken from hostiles other than the current target since the last
	// attack-run reset.
	nonTargetHits int

	// Evasive maneuver: -1 when inactive, else elapsed ms. The direction is
	// seeded opposite the impact point and randomly rotated once on the
	// maneuver's first tick.
	evasiveElapsed float64
	evasiveH       float64
	evasiveV       float64

	// Corrective roll: -1 when inactive, else elapsed ms.
	rollElapsed float64

	// World-space point to evade toward after a charge pass. Must be
	// translated on world re-origin.
	chargeDest game.Vec3

	// Current multiplier of weapon range defining the preferred maximum
	// engagement distance. Ratchets down toward the configured floor while
	// shots keep missing; resets with the attack run.
	maxDistanceFactor float64

	blocker game.Handle
}

// newCombatPilot binds a pilot to a craft and registers its hit-event
// callbacks with the craft.
func newCombatPilot(world *game.World, cfg *Config, flight *FlightController, rng *rand.Rand, craft game.Handle) *CombatPilot {
	p := &CombatPilot{
		world:             world,
		cfg:               cfg,
		flight:            flight,
		rng:               rng,
		craft:             craft,
		lastTarget:        game.NoHandle,
		blocker:           game.NoHandle,
		evasiveElapsed:    -1,
		rollElapsed:       -1,
		maxDistanceFactor: cfg.BaseMaxDistanceFactor,
	}
	if c, ok := world.Craft(craft); ok {
		c.HandleBeingHit(p.OnBeingHit)
		c.HandleTargetHit(p.OnTargetHit)
		c.HandleAnyHit(p.OnAnyCraftHit)
	}
	return p
}

// Retired reports whether the pilot's craft is gone; a retired pilot's
// Control is a permanent no-op.
func (p *CombatPilot) Retired() bool {
	return p.retired
}

// Phase exposes the current attack-run phase.
func (p *CombatPilot) Phase() ChargePhase {
	return p.phase
}

// Control runs one tick of the pilot. dt is in milliseconds.
func (p *CombatPilot) Control(dt float64) {
	if p.retired {
		return
	}
	dt = clampDt(dt)

	c, ok := p.world.Craft(p.craft)
	if !ok {
		// Craft destroyed; retire silently and stay retired.
		p.retired = true
		return
	}

	// A target switch made through any path (our own acquisition, the hit
	// reaction, or the host calling SetTarget directly) starts a fresh
	// attack run.
	if c.Target() != p.lastTarget {
		p.startNewAttackRun()
		p.lastTarget = c.Target()
	}

	target, hasTarget := p.world.Craft(c.Target())
	if !hasTarget {
		if h := p.world.AcquireTarget(c); h.Valid() {
			c.SetTarget(h)
			p.startNewAttackRun()
			p.lastTarget = h
			target, hasTarget = p.world.Craft(h)
		} else {
			c.ClearTarget()
			p.lastTarget = game.NoHandle
		}
	}

	blockingClaimed := false
	switch {
	case p.phase == ChargeEvade:
		p.controlEvade(c, dt)
	case hasTarget:
		blockingClaimed = p.engageTarget(c, target, dt)
	default:
		// Nothing to fight: settle to rest.
		c.ResetDesiredSpeed()
		c.SetYaw(0)
		c.SetPitch(0)
	}

	// Evasive maneuvers never fight the blocking-avoidance strafe output;
	// whichever claimed the tick owns it.
	if !blockingClaimed {
		p.updateEvasiveManeuver(c, dt)
	}
	p.updateRoll(c, dt)
}

// startNewAttackRun resets every per-run counter; called on target switch
// and when an evade leg completes.
func (p *CombatPilot) startNewAttackRun() {
	p.phase = ChargeNone
	p.sinceRoll = 0
	p.sinceTargetHit = 0
	p.sinceCloseIn = 0
	p.nonTargetHits = 0
	p.maxDistanceFactor = p.cfg.BaseMaxDistanceFactor
	p.blocker = game.NoHandle
	p.rollElapsed = -1
}

// controlEvade flies the pull-out leg toward the stored destination.
func (p *CombatPilot) controlEvade(c *game.Craft, dt float64) {
	st := c.Stats()
	to := p.chargeDest.Sub(c.Pos)

	yaw, pitch := c.Orient.Bearing(to)
	yi, pi := p.flight.Turn(yaw, pitch, c.AngVel.Y, c.AngVel.X, st.MaxAngAccel, dt)
	c.SetYaw(yi)
	c.SetPitch(pi)
	c.SetDesiredSpeed(st.MaxLinAccel * p.cfg.ChargeSpeedFactor)

	// The leg ends on arrival, when the destination falls behind us, or if
	// we stalled out (reverse speed means something knocked the run off).
	if to.Len() < p.cfg.ArrivalRadius || c.Orient.Forward.Dot(to) < 0 || c.Speed < 0 {
		p.startNewAttackRun()
		c.ResetDesiredSpeed()
	}
}

// engageTarget is the shared normal/charge combat block: steer at the
// target, manage the firing line, fire, and run distance management for the
// current phase. Returns whether blocking avoidance claimed the strafe
// output this tick.
func (p *CombatPilot) engageTarget(c, target *game.Craft, dt float64) bool {
	st := c.Stats()
	to := target.Pos.Sub(c.Pos)
	dist := to.Len()

	// Steer toward the target every tick regardless of phase.
	yaw, pitch := c.Orient.Bearing(to)
	yi, pi := p.flight.Turn(yaw, pitch, c.AngVel.Y, c.AngVel.X, st.MaxAngAccel, dt)
	c.SetYaw(yi)
	c.SetPitch(pi)

	// Turreted mounts track independently of the hull.
	c.AimTurrets(to)

	blockingClaimed := p.avoidBlocker(c, target)

	p.updateFiring(c, target, yaw, pitch, dist, dt)

	// Sustained missing or harassment by other hostiles flips a normal
	// engagement into a charge attack.
	if p.phase == ChargeNone {
		if p.nonTargetHits >= p.cfg.ChargeTriggerNonTargetHits || p.missTimeExceeded(c) {
			p.phase = ChargeApproach
		}
	}

	facing := math.Abs(yaw) < p.cfg.FacingAngle && math.Abs(pitch) < p.cfg.FacingAngle

	switch p.phase {
	case ChargeNone:
		if !facing {
			// Thrusting while pointed away only widens the turn.
			c.ResetDesiredSpeed()
			break
		}
		weaponRange := p.primaryRange(c)
		sizeBase := 0.5 * (c.Size() + target.Size())
		maxDist := sizeBase + p.maxDistanceFactor*weaponRange
		minDist := sizeBase + p.cfg.MinDistanceFraction*weaponRange
		c.SetDesiredSpeed(p.flight.Approach(dist, maxDist, minDist, st.MaxSpeed, c.Speed, st.MaxLinAccel))

		// When shots have gone unanswered long enough, tighten the preferred
		// range and close in.
		if p.sinceCloseIn > p.cfg.CloseInInterval && p.sinceTargetHit > p.cfg.CloseInInterval {
			p.maxDistanceFactor = math.Max(p.cfg.MinMaxDistanceFactor, p.maxDistanceFactor-p.cfg.MaxDistanceFactorStep)
			p.sinceCloseIn = 0
		}

	case ChargeApproach:
		if !facing {
			// Lost the line during the run-in; fall back to normal combat.
			p.phase = ChargeNone
			break
		}
		c.SetDesiredSpeed(st.MaxLinAccel * p.cfg.ChargeSpeedFactor)

		closing := math.Max(0, c.Velocity().Sub(target.Velocity()).Len())
		avoid := p.cfg.CollisionAvoidSizeFactor*(c.Size()+target.Size()) + closing*p.cfg.CollisionAvoidTime
		if dist < avoid {
			p.phase = ChargeEvade
			p.chargeDest = p.evadeDestination(c, target, avoid)
		}
	}

	return blockingClaimed
}

// evadeDestination picks a point beyond the target, offset sideways by a
// randomly rotated perpendicular so consecutive passes do not retrace the
// same line.
func (p *CombatPilot) evadeDestination(c, target *game.Craft, avoid float64) game.Vec3 {
	dir := target.Pos.Sub(c.Pos).Normalized()
	if dir.LenSq() == 0 {
		dir = c.Orient.Forward
	}
	perp := dir.Cross(c.Orient.Up).Normalized()
	if perp.LenSq() == 0 {
		perp = dir.Cross(c.Orient.Right).Normalized()
	}
	perp = game.RotateAbout(perp, dir, p.rng.Float64()*2*math.Pi)
	return target.Pos.Add(dir.Scale(avoid)).Add(perp.Scale(avoid))
}

// primaryRange is the effective range of the craft's first weapon at its
// current forward speed; zero when the craft carries no weapons.
func (p *CombatPilot) primaryRange(c *game.Craft) float64 {
	if len(c.Weapons) == 0 {
		return 0
	}
	return c.Weapons[0].Range(c.Speed)
}

// updateFiring decides whether to shoot this tick and advances the
// miss-driven heuristics (combat timers, corrective roll) while a firing
// solution is held.
func (p *CombatPilot) updateFiring(c, target *game.Craft, yaw, pitch, dist, dt float64) {
	if len(c.Weapons) == 0 {
		return
	}

	// The firing window widens with apparent size: big or close targets are
	// forgiving, distant ones demand alignment.
	fireAngle := math.Atan(p.cfg.FireSizeFactor * target.Size() / math.Max(dist, 1))
	aligned := math.Abs(yaw) < fireAngle && math.Abs(pitch) < fireAngle
	inRange := dist <= p.primaryRange(c)
	blocked := p.blockerInLine(c, target)

	if !aligned || !inRange || blocked {
		return
	}

	p.world.FireWeapons(c)

	// Timers advance only while we are actually shooting at the target, so
	// they measure time spent missing rather than time spent maneuvering.
	p.sinceRoll += dt
	p.sinceTargetHit += dt
	p.sinceCloseIn += dt

	// If shots have been in the air far longer than their flight time and
	// nothing connected, the lead is probably wrong; roll to change the
	// deflection geometry.
	w := c.Weapons[0]
	expectedTimeToHit := dist / math.Max(w.ProjectileSpeed, 1e-9)
	threshold := expectedTimeToHit + p.cfg.RollCooldownMult*w.Cooldown
	if p.rollElapsed < 0 && p.sinceTargetHit > threshold && p.sinceRoll > threshold {
		p.rollElapsed = 0
		p.sinceRoll = 0
	}
}

// missTimeExceeded reports whether the pilot has gone more weapon-cooldown
// equivalents without a hit than the charge trigger allows.
func (p *CombatPilot) missTimeExceeded(c *game.Craft) bool {
	if len(c.Weapons) == 0 {
		return false
	}
	return p.sinceTargetHit > p.cfg.ChargeTriggerMissCount*c.Weapons[0].Cooldown
}

// avoidBlocker strafes clear of a craft judged to obstruct the firing line.
// Returns true while it owns the strafe output for the tick.
func (p *CombatPilot) avoidBlocker(c, target *game.Craft) bool {
	if !p.blocker.Valid() {
		return false
	}
	b, ok := p.world.Craft(p.blocker)
	if !ok {
		// Blocker destroyed elsewhere: resolved.
		p.blocker = game.NoHandle
		return false
	}
	if !p.lineBlocked(c, target.Pos, b) {
		p.blocker = game.NoHandle
		c.StopStrafe()
		return false
	}

	// Slide away from the blocker's side of the firing line.
	local := c.Orient.ToLocal(b.Pos.Sub(c.Pos))
	c.SetStrafe(-sign(local.X))
	c.SetVertical(-sign(local.Y))
	return true
}

// blockerInLine reports whether a marked blocker still obstructs the shot at
// the target.
func (p *CombatPilot) blockerInLine(c, target *game.Craft) bool {
	b, ok := p.world.Craft(p.blocker)
	if !ok {
		return false
	}
	return p.lineBlocked(c, target.Pos, b)
}

// lineBlocked checks whether b sits on the segment from c to targetPos,
// within a corridor proportional to the involved sizes.
func (p *CombatPilot) lineBlocked(c *game.Craft, targetPos game.Vec3, b *game.Craft) bool {
	seg := targetPos.Sub(c.Pos)
	segLen := seg.Len()
	if segLen < 1e-9 {
		return false
	}
	dir := seg.Scale(1 / segLen)
	along := b.Pos.Sub(c.Pos).Dot(dir)
	if along <= 0 || along >= segLen {
		return false
	}
	offLine := b.Pos.Sub(c.Pos).Sub(dir.Scale(along)).Len()
	return offLine < b.Size()+c.Size()*p.cfg.BlockingToleranceFactor
}

// updateEvasiveManeuver runs the fixed-duration hit reaction: strafe along
// the seeded direction until the clock runs out.
func (p *CombatPilot) updateEvasiveManeuver(c *game.Craft, dt float64) {
	if p.evasiveElapsed < 0 {
		c.StopStrafe()
		return
	}

	if p.evasiveElapsed == 0 {
		// First tick: random ±90° twist so repeated hits from the same gun
		// do not produce the same dodge, then scale to thrust intensity.
		ang := (p.rng.Float64()*2 - 1) * math.Pi / 2
		sin, cos := math.Sincos(ang)
		h := p.evasiveH*cos - p.evasiveV*sin
		v := p.evasiveH*sin + p.evasiveV*cos
		p.evasiveH = h * p.cfg.EvasiveSpeedFactor
		p.evasiveV = v * p.cfg.EvasiveSpeedFactor
	}

	c.SetStrafe(p.evasiveH)
	c.SetVertical(p.evasiveV)

	p.evasiveElapsed += dt
	if p.evasiveElapsed > p.cfg.EvasiveManeuverDuration {
		p.evasiveElapsed = -1
		c.StopStrafe()
	}
}

// updateRoll runs the corrective roll for its fixed duration.
func (p *CombatPilot) updateRoll(c *game.Craft, dt float64) {
	if p.rollElapsed < 0 {
		c.SetRoll(0)
		return
	}
	c.SetRoll(1)
	p.rollElapsed += dt
	if p.rollElapsed >= p.cfg.RollDuration {
		p.rollElapsed = -1
		c.SetRoll(0)
	}
}

// OnBeingHit is invoked by the weapon subsystem when the pilot's craft takes
// a hit. It only touches this pilot's own counters; control output waits for
// the next tick.
func (p *CombatPilot) OnBeingHit(attacker game.Handle, localImpact game.Vec3) {
	if p.retired {
		return
	}
	c, ok := p.world.Craft(p.craft)
	if !ok {
		return
	}

	// Dodge away from the impact side unless strafe output is already
	// spoken for.
	if !p.blockerMarked() && p.evasiveElapsed < 0 {
		h, v := -localImpact.X, -localImpact.Y
		mag := math.Hypot(h, v)
		if mag < 1e-9 {
			// Dead-center forward/aft hit: pick a side.
			h, v, mag = 1, 0, 1
		}
		p.evasiveH = h / mag
		p.evasiveV = v / mag
		p.evasiveElapsed = 0
	}

	a, alive := p.world.Craft(attacker)
	if !alive || a.Team == c.Team || attacker == c.Target() {
		return
	}
	// A hostile we are not fighting is shooting us. Turn on it unless our
	// current target is already trading fire with us.
	if t, ok := p.world.Craft(c.Target()); ok && t.Target() == p.craft {
		p.nonTargetHits++
		return
	}
	c.SetTarget(attacker)
	p.startNewAttackRun()
	p.lastTarget = attacker
}

// OnTargetHit is invoked when a shot from the pilot's craft connects with
// its current target.
func (p *CombatPilot) OnTargetHit() {
	p.sinceTargetHit = 0
}

// OnAnyCraftHit is invoked whenever any craft in the world takes a hit. A
// third craft absorbing fire near the firing line is flagged as blocking;
// hostile blockers displace friendly ones.
func (p *CombatPilot) OnAnyCraftHit(hit game.Handle) {
	if p.retired {
		return
	}
	c, ok := p.world.Craft(p.craft)
	if !ok {
		return
	}
	if hit == p.craft || hit == c.Target() || p.phase == ChargeEvade {
		return
	}
	b, ok := p.world.Craft(hit)
	if !ok {
		return
	}

	if cur, curOK := p.world.Craft(p.blocker); curOK {
		// Keep a hostile blocker over a friendly one.
		if !(cur.Team == c.Team && b.Team != c.Team) {
			return
		}
	}

	p.blocker = hit
	// Clearing the line takes priority over both the dodge and any charge
	// in progress.
	p.evasiveElapsed = -1
	if p.phase == ChargeApproach {
		p.phase = ChargeNone
	}
}

// onWorldShift translates the pilot's stored world-space points when the
// host re-origins the coordinate frame.
func (p *CombatPilot) onWorldShift(v game.Vec3) {
	p.chargeDest = p.chargeDest.Add(v)
}

// blockerMarked reports whether a live blocker is currently flagged.
func (p *CombatPilot) blockerMarked() bool {
	_, ok := p.world.Craft(p.blocker)
	return ok
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

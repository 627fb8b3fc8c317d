package game

import (
	"math"
	"math/rand"
)

// Simulation constants. Distances are in abstract world units, time is in
// milliseconds, so speeds are units/ms and accelerations units/ms².
const (
	// Tick timing
	TicksPerSecond = 20
	TickMillis     = 1000.0 / TicksPerSecond

	// Defensive clamp for variable tick rates; control predictions degrade
	// outside this window.
	MinDt = 1.0
	MaxDt = 250.0

	// MaxCrafts caps the arena size for one battle.
	MaxCrafts = 64
)

// Team IDs
const (
	TeamNone = 0
	TeamRed  = 1
	TeamBlue = 2
)

// CraftClass selects an entry in the ClassData stats table.
type CraftClass int

const (
	ClassLightFighter CraftClass = iota
	ClassHeavyFighter
)

// ClassStats holds the flight and combat specifications for a craft class.
type ClassStats struct {
	Name        string
	MaxSpeed    float64 // forward speed cap, units/ms
	MaxLinAccel float64 // linear acceleration, units/ms²
	MaxAngVel   float64 // per-axis turn rate cap, rad/ms
	MaxAngAccel float64 // per-axis turn acceleration, rad/ms²
	Size        float64 // bounding radius, units
	MaxHull     int
	Weapons     []WeaponSpec
}

var ClassData = map[CraftClass]ClassStats{
	ClassLightFighter: {
		Name:        "Light Fighter",
		MaxSpeed:    0.6,
		MaxLinAccel: 0.0015,
		MaxAngVel:   0.003,
		MaxAngAccel: 0.00001,
		Size:        40,
		MaxHull:     100,
		Weapons: []WeaponSpec{
			{Name: "pulse cannon", ProjectileSpeed: 2.0, Cooldown: 500, BaseRange: 1500, RangePerSpeed: 250, Damage: 10},
		},
	},
	ClassHeavyFighter: {
		Name:        "Heavy Fighter",
		MaxSpeed:    0.45,
		MaxLinAccel: 0.001,
		MaxAngVel:   0.002,
		MaxAngAccel: 0.000006,
		Size:        65,
		MaxHull:     220,
		Weapons: []WeaponSpec{
			{Name: "heavy cannon", ProjectileSpeed: 1.6, Cooldown: 800, BaseRange: 1800, RangePerSpeed: 200, Damage: 18},
			{Name: "turret", ProjectileSpeed: 2.2, Cooldown: 650, BaseRange: 1200, RangePerSpeed: 0, Damage: 8, Turret: true},
		},
	},
}

// Craft is one spacecraft in the world. The flight controller reads its
// kinematic state and writes control inputs; the physics step integrates the
// inputs into motion. All rates are per millisecond unless noted.
type Craft struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Team  int        `json:"team"`
	Class CraftClass `json:"class"`

	Pos     Vec3    `json:"pos"`
	Orient  Basis   `json:"-"`
	Speed   float64 `json:"speed"` // forward speed, signed (negative = reversing)
	Lateral Vec3    `json:"-"`     // strafe/vertical drift velocity, world frame
	AngVel  Vec3    `json:"-"`     // X=pitch rate, Y=yaw rate, Z=roll rate, rad/ms

	Hull    int       `json:"hull"`
	Weapons []*Weapon `json:"-"`

	self   Handle
	target Handle

	// Control inputs, persistent until changed (like a desired-course
	// register, not a per-tick pulse). Signed intensity in [-1, 1]; the sign
	// encodes left/right so opposite directions on one axis can never be
	// commanded at once.
	yawInput    float64 // positive = yaw right
	pitchInput  float64 // positive = pitch up
	rollInput   float64 // positive = roll left
	strafeInput float64 // positive = strafe right
	vertInput   float64 // positive = raise
	desSpeed    float64
	desSpeedSet bool

	// Hit-event callbacks, registered by the pilot, invoked by the weapon
	// subsystem between control ticks.
	beingHit  func(attacker Handle, localImpact Vec3)
	targetHit func()
	anyHit    func(hit Handle)
}

// Stats returns the class specification table entry for this craft.
func (c *Craft) Stats() ClassStats {
	return ClassData[c.Class]
}

func (c *Craft) Alive() bool {
	return c.Hull > 0
}

// Handle returns the generation-checked reference to this craft.
func (c *Craft) Handle() Handle {
	return c.self
}

func (c *Craft) Size() float64 {
	return c.Stats().Size
}

// Velocity is the full world-frame velocity: forward motion plus drift.
func (c *Craft) Velocity() Vec3 {
	return c.Orient.Forward.Scale(c.Speed).Add(c.Lateral)
}

func clampIntensity(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// SetYaw commands a yaw intensity: positive turns right, negative left.
func (c *Craft) SetYaw(intensity float64) { c.yawInput = clampIntensity(intensity) }

// SetPitch commands a pitch intensity: positive up, negative down.
func (c *Craft) SetPitch(intensity float64) { c.pitchInput = clampIntensity(intensity) }

// SetRoll commands a roll intensity: positive rolls left.
func (c *Craft) SetRoll(intensity float64) { c.rollInput = clampIntensity(intensity) }

// SetStrafe commands lateral thrust: positive right, negative left.
func (c *Craft) SetStrafe(intensity float64) { c.strafeInput = clampIntensity(intensity) }

// SetVertical commands vertical thrust: positive raises, negative lowers.
func (c *Craft) SetVertical(intensity float64) { c.vertInput = clampIntensity(intensity) }

// StopStrafe clears both lateral and vertical thrust commands.
func (c *Craft) StopStrafe() {
	c.strafeInput = 0
	c.vertInput = 0
}

// Control-register read access, for host diagnostics.

func (c *Craft) YawInput() float64      { return c.yawInput }
func (c *Craft) PitchInput() float64    { return c.pitchInput }
func (c *Craft) RollInput() float64     { return c.rollInput }
func (c *Craft) StrafeInput() float64   { return c.strafeInput }
func (c *Craft) VerticalInput() float64 { return c.vertInput }

// SetDesiredSpeed commands the engine to seek the given forward speed
// (clamped to the class cap, negative for reverse).
func (c *Craft) SetDesiredSpeed(speed float64) {
	max := c.Stats().MaxSpeed
	c.desSpeed = math.Max(-max, math.Min(max, speed))
	c.desSpeedSet = true
}

// ResetDesiredSpeed releases the speed target; the engine compensates the
// craft back toward zero forward speed.
func (c *Craft) ResetDesiredSpeed() {
	c.desSpeed = 0
	c.desSpeedSet = false
}

// DesiredSpeed returns the current speed target (zero when released).
func (c *Craft) DesiredSpeed() float64 {
	return c.desSpeed
}

// Target returns the current combat target handle (NoHandle when none).
func (c *Craft) Target() Handle {
	return c.target
}

// SetTarget replaces the current combat target.
func (c *Craft) SetTarget(h Handle) {
	c.target = h
}

// ClearTarget drops the current combat target.
func (c *Craft) ClearTarget() {
	c.target = NoHandle
}

// AimTurrets points every turret-mounted weapon at the given world-space
// direction. Fixed mounts are unaffected.
func (c *Craft) AimTurrets(dir Vec3) {
	d := dir.Normalized()
	for _, w := range c.Weapons {
		if w.Turret {
			w.turretDir = d
		}
	}
}

// HandleBeingHit registers the callback invoked when this craft takes a hit.
// The impact point is given in the craft's local frame.
func (c *Craft) HandleBeingHit(fn func(attacker Handle, localImpact Vec3)) {
	c.beingHit = fn
}

// HandleTargetHit registers the callback invoked when a shot from this craft
// connects with its current target.
func (c *Craft) HandleTargetHit(fn func()) {
	c.targetHit = fn
}

// HandleAnyHit registers the callback invoked whenever any craft in the world
// takes a hit (including hits this craft caused or suffered; the handler
// filters).
func (c *Craft) HandleAnyHit(fn func(hit Handle)) {
	c.anyHit = fn
}

// World owns the craft arena and the projectiles in flight for one battle.
type World struct {
	slots       [MaxCrafts]slot
	Projectiles []*Projectile
	rng         *rand.Rand
	count       int
}

// NewWorld creates an empty battle world. The seed drives world-side
// randomness deterministically.
func NewWorld(seed int64) *World {
	return &World{
		Projectiles: make([]*Projectile, 0, 64),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Spawn places a new craft of the given class in the world and returns its
// handle, or NoHandle when the arena is full.
func (w *World) Spawn(class CraftClass, team int, name string, pos Vec3, orient Basis) Handle {
	idx := -1
	for i := range w.slots {
		if w.slots[i].craft == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		return NoHandle
	}

	stats := ClassData[class]
	c := &Craft{
		ID:     idx,
		Name:   name,
		Team:   team,
		Class:  class,
		Pos:    pos,
		Orient: orient.Orthonormalized(),
		Hull:   stats.MaxHull,
		target: NoHandle,
	}
	for _, spec := range stats.Weapons {
		c.Weapons = append(c.Weapons, &Weapon{WeaponSpec: spec})
	}

	h := Handle{idx: idx, gen: w.slots[idx].gen}
	c.self = h
	w.slots[idx].craft = c
	w.count++
	return h
}

// Craft resolves a handle to a live craft. Returns false for NoHandle, stale
// generations and destroyed crafts.
func (w *World) Craft(h Handle) (*Craft, bool) {
	if h.idx < 0 || h.idx >= len(w.slots) {
		return nil, false
	}
	s := &w.slots[h.idx]
	if s.craft == nil || s.gen != h.gen || !s.craft.Alive() {
		return nil, false
	}
	return s.craft, true
}

// Destroy removes a craft from the world and bumps the slot generation so
// every outstanding handle to it goes stale.
func (w *World) Destroy(h Handle) {
	if h.idx < 0 || h.idx >= len(w.slots) {
		return
	}
	s := &w.slots[h.idx]
	if s.craft == nil || s.gen != h.gen {
		return
	}
	s.craft = nil
	s.gen++
	w.count--
}

// Count returns the number of live crafts.
func (w *World) Count() int {
	return w.count
}

// ForEach visits every live craft in slot order.
func (w *World) ForEach(fn func(c *Craft)) {
	for i := range w.slots {
		if w.slots[i].craft != nil {
			fn(w.slots[i].craft)
		}
	}
}

// AcquireTarget finds the nearest living hostile to the given craft and
// returns its handle, or NoHandle when no hostiles remain.
func (w *World) AcquireTarget(c *Craft) Handle {
	best := NoHandle
	bestDist := math.MaxFloat64
	for i := range w.slots {
		other := w.slots[i].craft
		if other == nil || other == c || !other.Alive() || other.Team == c.Team {
			continue
		}
		d := other.Pos.Sub(c.Pos).LenSq()
		if d < bestDist {
			bestDist = d
			best = other.self
		}
	}
	return best
}

// Shift translates every world-space coordinate by v. The host calls this
// when it re-origins the world around a reference craft to keep float
// precision; world-space points stored elsewhere (pilot charge destinations)
// must be translated through the same broadcast.
func (w *World) Shift(v Vec3) {
	for i := range w.slots {
		if c := w.slots[i].craft; c != nil {
			c.Pos = c.Pos.Add(v)
		}
	}
	for _, p := range w.Projectiles {
		p.Pos = p.Pos.Add(v)
	}
}

// Step advances the whole world by dt milliseconds: craft physics first, then
// projectile flight and collision.
func (w *World) Step(dt float64) {
	dt = math.Max(MinDt, math.Min(MaxDt, dt))
	for i := range w.slots {
		if c := w.slots[i].craft; c != nil {
			stepCraft(c, dt)
		}
	}
	w.stepProjectiles(dt)
}

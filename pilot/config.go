package pilot

import "math"

// Config carries every tuning constant of the combat pilot. It is built once
// at startup (defaults, optionally overridden from the config file) and
// passed into the registry; nothing here is global or mutated afterwards.
//
// Times are in milliseconds, angles in radians, distances in world units.
type Config struct {
	// TurnThresholdAngle floors the remaining-angle test in the turn
	// controller; inside it the axis is considered on target and the command
	// drops to zero. Also guards the stopping-angle math against near-zero
	// denominators.
	TurnThresholdAngle float64 `mapstructure:"turnThresholdAngle"`

	// TurnAccelDuration converts remaining angle into command intensity:
	// intensity = remaining * dt / TurnAccelDuration, clamped to [-1, 1].
	// Smaller values turn harder for the same error.
	TurnAccelDuration float64 `mapstructure:"turnAccelDuration"`

	// MinAccel floors the angular and linear accelerations used in
	// stopping-angle and stopping-distance predictions so a degenerate craft
	// cannot divide by zero.
	MinAccel float64 `mapstructure:"minAccel"`

	// FacingAngle is the per-axis bearing inside which the pilot counts as
	// facing its target for thrust and charge decisions.
	FacingAngle float64 `mapstructure:"facingAngle"`

	// FireSizeFactor scales the apparent-size firing window:
	// fire when |bearing| < atan(FireSizeFactor * targetSize / distance).
	FireSizeFactor float64 `mapstructure:"fireSizeFactor"`

	// Engagement distance band. The preferred maximum distance is
	// maxDistanceFactor * weaponRange (plus half the combined sizes);
	// the factor starts at Base and ratchets down by Step toward Min every
	// CloseInInterval of sustained missing, forcing the pilot closer when it
	// cannot connect at range.
	BaseMaxDistanceFactor float64 `mapstructure:"baseMaxDistanceFactor"`
	MinMaxDistanceFactor  float64 `mapstructure:"minMaxDistanceFactor"`
	MaxDistanceFactorStep float64 `mapstructure:"maxDistanceFactorStep"`
	CloseInInterval       float64 `mapstructure:"closeInInterval"`

	// MinDistanceFraction sets the inner edge of the band as a fraction of
	// weapon range (plus the same size term).
	MinDistanceFraction float64 `mapstructure:"minDistanceFraction"`

	// Charge-attack triggers: enough hits from hostiles other than the
	// target, or enough weapon-cooldown-equivalents without landing a hit.
	ChargeTriggerNonTargetHits int     `mapstructure:"chargeTriggerNonTargetHits"`
	ChargeTriggerMissCount     float64 `mapstructure:"chargeTriggerMissCount"`

	// ChargeSpeedFactor converts max linear acceleration into the commanded
	// charge/evade speed (speed = maxLinAccel * factor, so the factor is
	// effectively a time-to-build-speed in ms).
	ChargeSpeedFactor float64 `mapstructure:"chargeSpeedFactor"`

	// CollisionAvoidSizeFactor and CollisionAvoidTime size the pull-out
	// distance of a charge: combined bounding radii scaled by the factor,
	// plus the distance closed at the current closing speed over the time.
	CollisionAvoidSizeFactor float64 `mapstructure:"collisionAvoidSizeFactor"`
	CollisionAvoidTime       float64 `mapstructure:"collisionAvoidTime"`

	// ArrivalRadius ends an evade leg when the destination is this close.
	ArrivalRadius float64 `mapstructure:"arrivalRadius"`

	// Evasive maneuver (hit reaction) tuning.
	EvasiveSpeedFactor      float64 `mapstructure:"evasiveSpeedFactor"`
	EvasiveManeuverDuration float64 `mapstructure:"evasiveManeuverDuration"`

	// Corrective roll tuning: when firing keeps missing for longer than the
	// projectile flight time plus RollCooldownMult weapon cooldowns, roll for
	// RollDuration to change the deflection geometry.
	RollCooldownMult float64 `mapstructure:"rollCooldownMult"`
	RollDuration     float64 `mapstructure:"rollDuration"`

	// BlockingToleranceFactor scales own size into the half-width of the
	// firing-line corridor used to decide whether a third craft still blocks
	// the shot.
	BlockingToleranceFactor float64 `mapstructure:"blockingToleranceFactor"`
}

// DefaultConfig returns the tuning the stock fighter pilot ships with.
func DefaultConfig() Config {
	return Config{
		TurnThresholdAngle: 0.01,
		TurnAccelDuration:  300,
		MinAccel:           1e-9,
		FacingAngle:        math.Pi / 6,
		FireSizeFactor:     2.0,

		BaseMaxDistanceFactor: 0.3,
		MinMaxDistanceFactor:  0.1,
		MaxDistanceFactorStep: 0.05,
		CloseInInterval:       4000,
		MinDistanceFraction:   0.05,

		ChargeTriggerNonTargetHits: 3,
		ChargeTriggerMissCount:     6,
		ChargeSpeedFactor:          400,

		CollisionAvoidSizeFactor: 3.0,
		CollisionAvoidTime:       600,
		ArrivalRadius:            50,

		EvasiveSpeedFactor:      1.0,
		EvasiveManeuverDuration: 1200,

		RollCooldownMult: 2.0,
		RollDuration:     400,

		BlockingToleranceFactor: 1.5,
	}
}

func clampDt(dt float64) float64 {
	return math.Max(minDt, math.Min(maxDt, dt))
}

// Control predictions destabilize under extreme tick lengths; inputs outside
// this window are clamped rather than trusted.
const (
	minDt = 1.0
	maxDt = 250.0
)

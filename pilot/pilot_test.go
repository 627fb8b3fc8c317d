package pilot

import (
	"math"
	"testing"

	"github.com/voidsim/skirmish/game"
)

// newBattle builds a world and registry with deterministic seeds.
func newBattle(t *testing.T) (*game.World, *Registry) {
	t.Helper()
	w := game.NewWorld(1)
	return w, NewRegistry(w, DefaultConfig(), 7)
}

func mustAdd(t *testing.T, r *Registry, h game.Handle) *CombatPilot {
	t.Helper()
	p, err := r.Add(KindFighter, h)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return p
}

func TestTargetSwitchResetsAttackRun(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	e1 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e1", game.Vec3{Z: 600}, game.IdentityBasis())
	e2 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e2", game.Vec3{Z: 9000}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(e1)
	p := mustAdd(t, r, me)
	p.Control(50)

	// Dirty every per-run counter, then switch targets.
	p.phase = ChargeApproach
	p.maxDistanceFactor = p.cfg.MinMaxDistanceFactor
	p.nonTargetHits = 5
	p.sinceTargetHit = 9999
	p.sinceCloseIn = 9999
	p.blocker = e1
	p.rollElapsed = 100

	c.SetTarget(e2)
	p.Control(50)

	if p.phase != ChargeNone {
		t.Errorf("phase = %v, want none", p.phase)
	}
	if p.nonTargetHits != 0 {
		t.Errorf("nonTargetHits = %d, want 0", p.nonTargetHits)
	}
	if p.maxDistanceFactor != p.cfg.BaseMaxDistanceFactor {
		t.Errorf("maxDistanceFactor = %v, want base %v", p.maxDistanceFactor, p.cfg.BaseMaxDistanceFactor)
	}
	// e2 is far out of range, so no firing solution was held this tick and
	// the timers stay at zero.
	if p.sinceTargetHit != 0 || p.sinceCloseIn != 0 {
		t.Errorf("timers not reset: sinceTargetHit=%v sinceCloseIn=%v", p.sinceTargetHit, p.sinceCloseIn)
	}
	if p.blocker.Valid() {
		t.Error("blocker survived the target switch")
	}
	if p.rollElapsed != -1 {
		t.Errorf("rollElapsed = %v, want -1", p.rollElapsed)
	}
}

func TestMissTimeTriggersCharge(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	enemy := w.Spawn(game.ClassLightFighter, game.TeamBlue, "enemy", game.Vec3{Z: 600}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(enemy)
	p := mustAdd(t, r, me)

	// The world is never stepped, so shots stay in flight and nothing ever
	// connects: pure sustained missing.
	const dt = 50.0
	cooldown := c.Weapons[0].Cooldown
	threshold := p.cfg.ChargeTriggerMissCount * cooldown

	ticks := 0
	for p.Phase() == ChargeNone && ticks < 200 {
		p.Control(dt)
		ticks++
	}

	if p.Phase() != ChargeApproach {
		t.Fatalf("pilot never charged; phase = %v after %d ticks", p.Phase(), ticks)
	}
	wantTicks := int(threshold/dt) + 1
	if ticks != wantTicks {
		t.Errorf("charge triggered after %d ticks, want %d (threshold %vms)", ticks, wantTicks, threshold)
	}
}

func TestSustainedMissingTriggersCorrectiveRoll(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	enemy := w.Spawn(game.ClassLightFighter, game.TeamBlue, "enemy", game.Vec3{Z: 600}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(enemy)
	p := mustAdd(t, r, me)

	// The world is never stepped, so every shot hangs in flight unanswered.
	// The roll should start once the miss time beats the projectile's flight
	// time plus the cooldown allowance.
	const dt = 50.0
	weapon := c.Weapons[0]
	threshold := 600/weapon.ProjectileSpeed + p.cfg.RollCooldownMult*weapon.Cooldown

	ticks := 0
	for p.rollElapsed < 0 && ticks < 100 {
		p.Control(dt)
		ticks++
	}
	if p.rollElapsed < 0 {
		t.Fatalf("no corrective roll after %d ticks of missing", ticks)
	}
	if c.RollInput() != 1 {
		t.Error("active roll commanded no roll input")
	}
	if want := int(threshold/dt) + 1; ticks != want {
		t.Errorf("roll started after %d ticks, want %d (threshold %vms)", ticks, want, threshold)
	}
	if p.sinceRoll != 0 {
		t.Errorf("sinceRoll = %v at roll start, want 0", p.sinceRoll)
	}

	// The roll holds for its fixed duration, then releases.
	rollTicks := 1
	for c.RollInput() == 1 && rollTicks < 50 {
		p.Control(dt)
		rollTicks++
	}
	if p.rollElapsed != -1 {
		t.Errorf("rollElapsed = %v after release, want -1", p.rollElapsed)
	}
	if c.RollInput() != 0 {
		t.Error("roll input not released")
	}
	if want := int(p.cfg.RollDuration / dt); rollTicks != want {
		t.Errorf("roll held for %d ticks, want %d", rollTicks, want)
	}
}

func TestNonTargetHitsTriggerCharge(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	e1 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e1", game.Vec3{Z: 600}, game.IdentityBasis())
	e2 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e2", game.Vec3{X: 2000}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(e1)
	p := mustAdd(t, r, me)
	p.Control(50)

	// e1 is already trading fire with us, so harassment from e2 counts
	// instead of triggering a target switch.
	t1, _ := w.Craft(e1)
	t1.SetTarget(me)

	for i := 0; i < p.cfg.ChargeTriggerNonTargetHits; i++ {
		if p.Phase() != ChargeNone {
			t.Fatalf("charged after only %d harassment hits", i)
		}
		p.OnBeingHit(e2, game.Vec3{X: 5})
		p.Control(50)
	}

	if c.Target() != e1 {
		t.Errorf("target switched away from e1 under harassment")
	}
	if p.Phase() != ChargeApproach {
		t.Errorf("phase = %v after %d non-target hits, want approach", p.Phase(), p.cfg.ChargeTriggerNonTargetHits)
	}
}

func TestHitFromNewHostileSwitchesTarget(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	e1 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e1", game.Vec3{Z: 600}, game.IdentityBasis())
	e2 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e2", game.Vec3{X: 2000}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(e1)
	p := mustAdd(t, r, me)
	p.Control(50)
	p.nonTargetHits = 2

	// e1 is not shooting back, so a hit from e2 redirects the fight.
	p.OnBeingHit(e2, game.Vec3{X: 5})

	if c.Target() != e2 {
		t.Fatalf("target = %v, want the new attacker", c.Target())
	}
	if p.nonTargetHits != 0 {
		t.Errorf("nonTargetHits = %d after switch, want 0", p.nonTargetHits)
	}
	if p.lastTarget != e2 {
		t.Error("lastTarget not updated with the switch")
	}
}

func TestHitFromFriendlyDoesNotSwitchTarget(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	e1 := w.Spawn(game.ClassLightFighter, game.TeamBlue, "e1", game.Vec3{Z: 600}, game.IdentityBasis())
	friend := w.Spawn(game.ClassLightFighter, game.TeamRed, "friend", game.Vec3{X: 500}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(e1)
	p := mustAdd(t, r, me)
	p.Control(50)

	p.OnBeingHit(friend, game.Vec3{X: 5})

	if c.Target() != e1 {
		t.Errorf("friendly fire switched the target to %v", c.Target())
	}
	if p.nonTargetHits != 0 {
		t.Errorf("friendly fire counted as harassment: %d", p.nonTargetHits)
	}
}

func TestEvasiveManeuverLifecycle(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	attacker := w.Spawn(game.ClassLightFighter, game.TeamBlue, "attacker", game.Vec3{Z: 600}, game.IdentityBasis())

	c, _ := w.Craft(me)
	p := mustAdd(t, r, me)

	p.OnBeingHit(attacker, game.Vec3{X: 10, Y: 5})
	if p.evasiveElapsed != 0 {
		t.Fatalf("evasiveElapsed = %v after hit, want 0", p.evasiveElapsed)
	}

	// Duration 1200ms at 100ms ticks: active through tick 12, expires on 13.
	const dt = 100.0
	activeTicks := int(p.cfg.EvasiveManeuverDuration / dt)
	for i := 0; i < activeTicks; i++ {
		p.Control(dt)
		if p.evasiveElapsed < 0 {
			t.Fatalf("maneuver ended early on tick %d", i)
		}
		if math.Hypot(c.StrafeInput(), c.VerticalInput()) == 0 {
			t.Fatalf("tick %d: active maneuver commanded no strafe", i)
		}
	}

	p.Control(dt)
	if p.evasiveElapsed != -1 {
		t.Errorf("evasiveElapsed = %v after expiry, want -1", p.evasiveElapsed)
	}
	if c.StrafeInput() != 0 || c.VerticalInput() != 0 {
		t.Errorf("strafe not released after expiry: %v/%v", c.StrafeInput(), c.VerticalInput())
	}
}

func TestDeadCenterHitStillDodges(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	attacker := w.Spawn(game.ClassLightFighter, game.TeamBlue, "attacker", game.Vec3{Z: 600}, game.IdentityBasis())

	p := mustAdd(t, r, me)
	p.OnBeingHit(attacker, game.Vec3{Z: -40}) // dead astern, no lateral component
	if p.evasiveElapsed != 0 {
		t.Fatal("no maneuver seeded for a centered hit")
	}
	if math.Hypot(p.evasiveH, p.evasiveV) == 0 {
		t.Error("centered hit seeded a zero dodge direction")
	}
}

func TestChargeTransitionsToEvade(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	tgt := w.Spawn(game.ClassLightFighter, game.TeamBlue, "tgt", game.Vec3{Z: 400}, game.IdentityBasis())

	c, _ := w.Craft(me)
	tc, _ := w.Craft(tgt)
	c.SetTarget(tgt)
	p := mustAdd(t, r, me)
	p.Control(50)

	// Mid-charge, closing at 0.3 units/ms from 400 units out: the pull-out
	// distance (3·80 + 0.3·600 = 420) already covers the gap.
	p.phase = ChargeApproach
	c.Speed = 0.3
	p.Control(50)

	if p.Phase() != ChargeEvade {
		t.Fatalf("phase = %v, want evade", p.Phase())
	}
	avoid := p.cfg.CollisionAvoidSizeFactor*(c.Size()+tc.Size()) + 0.3*p.cfg.CollisionAvoidTime
	want := avoid * math.Sqrt2
	if got := p.chargeDest.Sub(tc.Pos).Len(); math.Abs(got-want) > 1e-6 {
		t.Errorf("evade destination %v units from target, want %v", got, want)
	}

	// Arriving at the destination ends the leg and starts a fresh run.
	c.Pos = p.chargeDest
	p.Control(50)
	if p.Phase() != ChargeNone {
		t.Errorf("phase = %v after arrival, want none", p.Phase())
	}
}

func TestLostFacingAbortsCharge(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	// Target far off the nose: bearing well outside the facing cone.
	tgt := w.Spawn(game.ClassLightFighter, game.TeamBlue, "tgt", game.Vec3{X: 600, Z: -600}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(tgt)
	p := mustAdd(t, r, me)
	p.Control(50)

	p.phase = ChargeApproach
	p.Control(50)
	if p.Phase() != ChargeNone {
		t.Errorf("phase = %v with target off the nose, want none", p.Phase())
	}
}

func TestBlockerHoldsFireAndStrafes(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	tgt := w.Spawn(game.ClassLightFighter, game.TeamBlue, "tgt", game.Vec3{Z: 1000}, game.IdentityBasis())
	friend := w.Spawn(game.ClassLightFighter, game.TeamRed, "friend", game.Vec3{Z: 500}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(tgt)
	p := mustAdd(t, r, me)
	p.lastTarget = tgt // already mid-run; no reset on the next tick

	// A stray hit on the craft sitting dead on the firing line flags it.
	p.OnAnyCraftHit(friend)
	if p.blocker != friend {
		t.Fatalf("blocker = %v, want the craft on the line", p.blocker)
	}

	p.Control(50)
	if len(w.Projectiles) != 0 {
		t.Errorf("fired %d shots through a blocked line", len(w.Projectiles))
	}
	if c.StrafeInput() == 0 && c.VerticalInput() == 0 {
		t.Error("no avoidance strafe while the line is blocked")
	}

	// The blocker drifts clear of the corridor: mark released, fire resumes.
	fc, _ := w.Craft(friend)
	fc.Pos = game.Vec3{X: 600, Z: 500}
	p.Control(50)

	if p.blocker.Valid() {
		t.Error("blocker still marked after the line cleared")
	}
	if c.StrafeInput() != 0 || c.VerticalInput() != 0 {
		t.Error("avoidance strafe not released")
	}
	if len(w.Projectiles) != 1 {
		t.Errorf("%d projectiles after the line cleared, want 1", len(w.Projectiles))
	}
}

func TestHostileBlockerDisplacesFriendly(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	tgt := w.Spawn(game.ClassLightFighter, game.TeamBlue, "tgt", game.Vec3{Z: 1000}, game.IdentityBasis())
	friend := w.Spawn(game.ClassLightFighter, game.TeamRed, "friend", game.Vec3{Z: 400}, game.IdentityBasis())
	hostile := w.Spawn(game.ClassLightFighter, game.TeamBlue, "hostile", game.Vec3{Z: 600}, game.IdentityBasis())

	c, _ := w.Craft(me)
	c.SetTarget(tgt)
	p := mustAdd(t, r, me)
	p.lastTarget = tgt

	p.evasiveElapsed = 300
	p.phase = ChargeApproach
	p.OnAnyCraftHit(friend)

	if p.blocker != friend {
		t.Fatalf("blocker = %v, want friend", p.blocker)
	}
	if p.evasiveElapsed != -1 {
		t.Error("marking a blocker did not cancel the evasive maneuver")
	}
	if p.phase != ChargeNone {
		t.Error("marking a blocker did not abort the charge approach")
	}

	// Hostile displaces friendly, but not the other way around.
	p.OnAnyCraftHit(hostile)
	if p.blocker != hostile {
		t.Errorf("blocker = %v, want hostile to displace friendly", p.blocker)
	}
	p.OnAnyCraftHit(friend)
	if p.blocker != hostile {
		t.Errorf("friendly displaced the hostile blocker")
	}
}

func TestEvadePhaseIgnoresBlockers(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	other := w.Spawn(game.ClassLightFighter, game.TeamRed, "other", game.Vec3{Z: 500}, game.IdentityBasis())

	p := mustAdd(t, r, me)
	p.phase = ChargeEvade
	p.OnAnyCraftHit(other)
	if p.blocker.Valid() {
		t.Error("blocker marked during an evade leg")
	}
}

func TestRetiredPilotIsInert(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())
	other := w.Spawn(game.ClassLightFighter, game.TeamBlue, "other", game.Vec3{Z: 600}, game.IdentityBasis())

	p := mustAdd(t, r, me)
	w.Destroy(me)

	p.Control(50)
	if !p.Retired() {
		t.Fatal("pilot did not retire after its craft was destroyed")
	}

	// Further ticks and events are permanent no-ops.
	for i := 0; i < 10; i++ {
		p.Control(50)
	}
	p.OnBeingHit(other, game.Vec3{X: 1})
	p.OnTargetHit()
	p.OnAnyCraftHit(other)
	if !p.Retired() {
		t.Error("pilot un-retired")
	}
}

func TestWorldShiftTranslatesEvadeDestination(t *testing.T) {
	w, r := newBattle(t)
	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "me", game.Vec3{}, game.IdentityBasis())

	p := mustAdd(t, r, me)
	p.phase = ChargeEvade
	p.chargeDest = game.Vec3{X: 100, Y: 20, Z: -5}

	r.OnWorldShift(game.Vec3{X: -100, Y: -20, Z: 5})
	if p.chargeDest != (game.Vec3{}) {
		t.Errorf("chargeDest = %+v after shift, want origin", p.chargeDest)
	}
}

func TestPilotSettlesAtPreferredRange(t *testing.T) {
	w := game.NewWorld(3)
	r := NewRegistry(w, DefaultConfig(), 11)

	me := w.Spawn(game.ClassLightFighter, game.TeamRed, "hunter", game.Vec3{}, game.IdentityBasis())
	tgt := w.Spawn(game.ClassLightFighter, game.TeamBlue, "drone", game.Vec3{Z: 2500}, game.IdentityBasis())

	// The drone soaks fire indefinitely so the engagement never ends.
	tc, _ := w.Craft(tgt)
	tc.Hull = 1 << 20

	p := mustAdd(t, r, me)
	c, _ := w.Craft(me)

	for i := 0; i < 500; i++ {
		w.Step(50)
		r.Step(50)
	}

	// Preferred band at base factor: half the combined sizes plus 0.3 of
	// weapon range, so roughly 450-550 units. Sustained missing periodically
	// flips the pilot into a charge pass that legitimately dives well inside
	// the band, so the settled distance is judged on normal-combat ticks
	// only; the pull-out still has to keep the craft off the target.
	inBand, observed := 0, 0
	minDist := math.MaxFloat64
	for i := 0; i < 600; i++ {
		w.Step(50)
		r.Step(50)
		dist := tc.Pos.Sub(c.Pos).Len()
		if dist < minDist {
			minDist = dist
		}
		if p.Phase() != ChargeNone {
			continue
		}
		observed++
		if dist >= 250 && dist <= 700 {
			inBand++
		}
	}

	if observed == 0 {
		t.Fatal("pilot never returned to normal combat")
	}
	if frac := float64(inBand) / float64(observed); frac < 0.8 {
		t.Errorf("held the preferred band on only %.0f%% of normal-combat ticks", frac*100)
	}
	if minDist < 100 {
		t.Errorf("closed to %v units of the target; pull-out failed", minDist)
	}
	if p.Retired() {
		t.Fatal("hunter died to a target that never shoots")
	}
}

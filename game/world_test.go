package game

import (
	"testing"
)

func TestHandleGenerationInvalidation(t *testing.T) {
	w := NewWorld(1)
	h := w.Spawn(ClassLightFighter, TeamRed, "red-1", Vec3{}, IdentityBasis())
	if !h.Valid() {
		t.Fatal("spawn returned invalid handle")
	}
	if _, ok := w.Craft(h); !ok {
		t.Fatal("fresh handle does not resolve")
	}

	w.Destroy(h)
	if _, ok := w.Craft(h); ok {
		t.Error("handle resolves after destroy")
	}

	// Reusing the slot must not resurrect the old handle.
	h2 := w.Spawn(ClassLightFighter, TeamBlue, "blue-1", Vec3{}, IdentityBasis())
	if h2 == h {
		t.Fatal("slot reuse produced an identical handle")
	}
	if _, ok := w.Craft(h); ok {
		t.Error("stale handle resolves to the slot's new occupant")
	}
	if _, ok := w.Craft(h2); !ok {
		t.Error("new occupant's handle does not resolve")
	}
}

func TestNoHandleNeverResolves(t *testing.T) {
	w := NewWorld(1)
	if _, ok := w.Craft(NoHandle); ok {
		t.Error("NoHandle resolved to a craft")
	}
}

func TestAcquireTargetPicksNearestHostile(t *testing.T) {
	w := NewWorld(1)
	me := w.Spawn(ClassLightFighter, TeamRed, "me", Vec3{}, IdentityBasis())
	w.Spawn(ClassLightFighter, TeamRed, "friend", Vec3{X: 100}, IdentityBasis())
	far := w.Spawn(ClassLightFighter, TeamBlue, "far", Vec3{X: 5000}, IdentityBasis())
	near := w.Spawn(ClassLightFighter, TeamBlue, "near", Vec3{X: 800}, IdentityBasis())

	c, _ := w.Craft(me)
	got := w.AcquireTarget(c)
	if got != near {
		t.Errorf("expected nearest hostile, got %v (near=%v far=%v)", got, near, far)
	}

	// With the near one gone, acquisition falls back to the survivor.
	w.Destroy(near)
	if got := w.AcquireTarget(c); got != far {
		t.Errorf("expected far hostile after near destroyed, got %v", got)
	}
}

func TestAcquireTargetNoHostiles(t *testing.T) {
	w := NewWorld(1)
	me := w.Spawn(ClassLightFighter, TeamRed, "me", Vec3{}, IdentityBasis())
	w.Spawn(ClassLightFighter, TeamRed, "friend", Vec3{X: 100}, IdentityBasis())
	c, _ := w.Craft(me)
	if got := w.AcquireTarget(c); got.Valid() {
		t.Errorf("expected NoHandle with no hostiles, got %v", got)
	}
}

func TestWorldShiftTranslatesEverything(t *testing.T) {
	w := NewWorld(1)
	h := w.Spawn(ClassLightFighter, TeamRed, "red-1", Vec3{X: 10, Y: 20, Z: 30}, IdentityBasis())
	w.Projectiles = append(w.Projectiles, &Projectile{Pos: Vec3{X: 1}, Vel: Vec3{Z: 1}, Remaining: 100})

	w.Shift(Vec3{X: -10, Y: -20, Z: -30})

	c, _ := w.Craft(h)
	if c.Pos != (Vec3{}) {
		t.Errorf("craft not translated: %+v", c.Pos)
	}
	if w.Projectiles[0].Pos != (Vec3{X: -9, Y: -20, Z: -30}) {
		t.Errorf("projectile not translated: %+v", w.Projectiles[0].Pos)
	}
}

func TestSpeedSeeksDesired(t *testing.T) {
	w := NewWorld(1)
	h := w.Spawn(ClassLightFighter, TeamRed, "red-1", Vec3{}, IdentityBasis())
	c, _ := w.Craft(h)
	st := c.Stats()

	c.SetDesiredSpeed(st.MaxSpeed)
	for i := 0; i < 1000; i++ {
		w.Step(50)
	}
	if !almostEqual(c.Speed, st.MaxSpeed, 1e-9) {
		t.Errorf("speed did not reach desired: got %v want %v", c.Speed, st.MaxSpeed)
	}
	if c.Pos.Z <= 0 {
		t.Errorf("craft did not move forward: %+v", c.Pos)
	}

	// Releasing the target compensates back to rest.
	c.ResetDesiredSpeed()
	for i := 0; i < 1000; i++ {
		w.Step(50)
	}
	if !almostEqual(c.Speed, 0, 1e-9) {
		t.Errorf("speed did not settle to zero after release: %v", c.Speed)
	}
}

func TestDesiredSpeedClampedToClassCap(t *testing.T) {
	w := NewWorld(1)
	h := w.Spawn(ClassLightFighter, TeamRed, "red-1", Vec3{}, IdentityBasis())
	c, _ := w.Craft(h)
	st := c.Stats()

	c.SetDesiredSpeed(st.MaxSpeed * 100)
	if c.DesiredSpeed() != st.MaxSpeed {
		t.Errorf("desired speed not clamped: %v", c.DesiredSpeed())
	}
	c.SetDesiredSpeed(-st.MaxSpeed * 100)
	if c.DesiredSpeed() != -st.MaxSpeed {
		t.Errorf("reverse desired speed not clamped: %v", c.DesiredSpeed())
	}
}

func TestIdleAngularVelocityCompensates(t *testing.T) {
	w := NewWorld(1)
	h := w.Spawn(ClassLightFighter, TeamRed, "red-1", Vec3{}, IdentityBasis())
	c, _ := w.Craft(h)

	c.SetYaw(1)
	for i := 0; i < 20; i++ {
		w.Step(50)
	}
	if c.AngVel.Y <= 0 {
		t.Fatalf("yaw command did not build angular velocity: %v", c.AngVel.Y)
	}

	c.SetYaw(0)
	for i := 0; i < 1000; i++ {
		w.Step(50)
	}
	if c.AngVel.Y != 0 {
		t.Errorf("idle axis did not compensate to zero: %v", c.AngVel.Y)
	}
}

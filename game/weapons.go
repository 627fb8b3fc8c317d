package game

import "math"

// WeaponSpec is the static description of a weapon mount. Times are in
// milliseconds, distances in world units.
type WeaponSpec struct {
	Name            string
	ProjectileSpeed float64 // units/ms
	Cooldown        float64 // ms between shots
	BaseRange       float64 // range at rest
	RangePerSpeed   float64 // extra range per unit of forward speed
	Damage          int
	Turret          bool // aimable independently of the hull
}

// Weapon is one mounted weapon instance with its firing state.
type Weapon struct {
	WeaponSpec

	cooldownLeft float64
	turretDir    Vec3 // world-space aim for turret mounts; zero = unaimed
}

// Range returns the effective range given the craft's current forward speed.
// Projectiles inherit forward momentum, so a faster craft throws further.
func (w *Weapon) Range(speed float64) float64 {
	return w.BaseRange + w.RangePerSpeed*math.Max(0, speed)
}

// Ready reports whether the weapon can fire this tick.
func (w *Weapon) Ready() bool {
	return w.cooldownLeft <= 0
}

// Projectile is a shot in flight.
type Projectile struct {
	Owner     Handle
	Team      int
	Pos       Vec3
	Vel       Vec3 // units/ms
	Remaining float64
	Damage    int
}

// FireWeapons fires every ready weapon on the craft toward its mount
// direction (hull forward, or the turret aim for turret mounts). Returns
// true if at least one shot left the craft. A craft with no weapons simply
// never fires.
func (w *World) FireWeapons(c *Craft) bool {
	fired := false
	for _, wp := range c.Weapons {
		if !wp.Ready() {
			continue
		}
		dir := c.Orient.Forward
		if wp.Turret && wp.turretDir.LenSq() > 0 {
			dir = wp.turretDir
		}
		wp.cooldownLeft = wp.Cooldown

		w.Projectiles = append(w.Projectiles, &Projectile{
			Owner:     c.self,
			Team:      c.Team,
			Pos:       c.Pos.Add(dir.Scale(c.Size())),
			Vel:       dir.Scale(wp.ProjectileSpeed),
			Remaining: wp.Range(c.Speed),
			Damage:    wp.Damage,
		})
		fired = true
	}
	return fired
}

// stepProjectiles moves every projectile, expires spent ones and resolves
// collisions. Filtering is done in place to avoid a fresh slice per tick.
func (w *World) stepProjectiles(dt float64) {
	writeIdx := 0
	for _, p := range w.Projectiles {
		travel := p.Vel.Len() * dt
		if travel > p.Remaining {
			travel = p.Remaining
		}
		p.Pos = p.Pos.Add(p.Vel.Normalized().Scale(travel))
		p.Remaining -= travel

		if hit := w.collideProjectile(p); hit != nil {
			w.resolveHit(p, hit)
			continue // projectile consumed
		}
		if p.Remaining <= 0 {
			continue // spent without connecting
		}
		w.Projectiles[writeIdx] = p
		writeIdx++
	}
	w.Projectiles = w.Projectiles[:writeIdx]
}

// collideProjectile returns the first craft within its bounding radius of
// the projectile, excluding the shooter. Friendly craft can be struck; that
// is what makes blocking-craft avoidance matter.
func (w *World) collideProjectile(p *Projectile) *Craft {
	for i := range w.slots {
		c := w.slots[i].craft
		if c == nil || !c.Alive() || c.self == p.Owner {
			continue
		}
		if c.Pos.Sub(p.Pos).LenSq() <= c.Size()*c.Size() {
			return c
		}
	}
	return nil
}

// resolveHit applies damage and dispatches the three hit-event callback
// families: the victim's being-hit (with the impact point in its local
// frame), the shooter's target-hit when the victim is its current target,
// and every registered any-hit observer.
func (w *World) resolveHit(p *Projectile, victim *Craft) {
	victim.Hull -= p.Damage
	victimHandle := victim.self
	localImpact := victim.Orient.ToLocal(p.Pos.Sub(victim.Pos))

	if victim.beingHit != nil {
		victim.beingHit(p.Owner, localImpact)
	}
	if shooter, ok := w.Craft(p.Owner); ok {
		if shooter.targetHit != nil && shooter.target == victimHandle {
			shooter.targetHit()
		}
	}
	for i := range w.slots {
		c := w.slots[i].craft
		if c != nil && c.anyHit != nil {
			c.anyHit(victimHandle)
		}
	}

	if victim.Hull <= 0 {
		w.Destroy(victimHandle)
	}
}

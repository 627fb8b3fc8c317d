package pilot

import (
	"fmt"
	"math/rand"

	"github.com/voidsim/skirmish/game"
)

// Kind selects the behavior a registered pilot flies with. Kinds are an
// explicit enum resolved at registration time; an unrecognized kind is a
// programmer error and is rejected, not degraded.
type Kind int

const (
	// KindFighter is the standard dogfighting pilot.
	KindFighter Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindFighter:
		return "fighter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Registry holds the pilots of one battle and steps them once per tick. It
// is not safe for concurrent use; the host serializes Step against event
// delivery, per the single-threaded tick model.
type Registry struct {
	world  *game.World
	cfg    Config
	flight *FlightController
	rng    *rand.Rand
	pilots []*CombatPilot
}

// NewRegistry creates an empty pilot registry over the given world. The seed
// drives the pilots' maneuver randomness deterministically.
func NewRegistry(world *game.World, cfg Config, seed int64) *Registry {
	r := &Registry{
		world: world,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
	}
	r.flight = NewFlightController(&r.cfg)
	return r
}

// Add constructs a pilot of the given kind bound to the craft and registers
// it. The craft must resolve to a live entry at registration time.
func (r *Registry) Add(kind Kind, craft game.Handle) (*CombatPilot, error) {
	if _, ok := r.world.Craft(craft); !ok {
		return nil, fmt.Errorf("pilot: craft handle does not resolve to a live craft")
	}
	switch kind {
	case KindFighter:
		p := newCombatPilot(r.world, &r.cfg, r.flight, r.rng, craft)
		r.pilots = append(r.pilots, p)
		return p, nil
	default:
		return nil, fmt.Errorf("pilot: unknown pilot kind %q", kind)
	}
}

// Step runs one control tick for every pilot in registration order, then
// prunes pilots whose craft is gone.
func (r *Registry) Step(dt float64) {
	for _, p := range r.pilots {
		p.Control(dt)
	}

	writeIdx := 0
	for _, p := range r.pilots {
		if !p.retired {
			r.pilots[writeIdx] = p
			writeIdx++
		}
	}
	r.pilots = r.pilots[:writeIdx]
}

// OnWorldShift forwards a coordinate-frame translation to every pilot so
// stored world-space points stay valid after the host re-origins the world.
func (r *Registry) OnWorldShift(v game.Vec3) {
	for _, p := range r.pilots {
		p.onWorldShift(v)
	}
}

// Clear drops every pilot, e.g. when the battle ends.
func (r *Registry) Clear() {
	r.pilots = nil
}

// Len returns the number of registered (non-pruned) pilots.
func (r *Registry) Len() int {
	return len(r.pilots)
}

package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voidsim/skirmish/game"
	"github.com/voidsim/skirmish/pilot"
)

// Server runs one battle: it owns the world and the pilot registry, steps
// them on a fixed tick, re-origins the coordinate frame around a reference
// craft, and feeds snapshots to spectator websocket clients.
type Server struct {
	mu         sync.RWMutex
	cfg        Config
	log        zerolog.Logger
	world      *game.World
	pilots     *pilot.Registry
	refCraft   game.Handle
	frame      int64
	clients    map[int]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan ServerMessage
	done       chan struct{}
	nextID     int
}

// NewServer creates a battle server and spawns the opposing fighter wings.
func NewServer(cfg Config, log zerolog.Logger) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		log:        log,
		world:      game.NewWorld(cfg.Seed),
		clients:    make(map[int]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ServerMessage, 256),
		done:       make(chan struct{}),
	}
	s.pilots = pilot.NewRegistry(s.world, cfg.Pilot, cfg.Seed)

	if err := s.spawnWings(); err != nil {
		return nil, err
	}
	return s, nil
}

// spawnWings places the two teams facing each other across the origin and
// attaches a fighter pilot to every craft. The first red craft becomes the
// coordinate-frame reference.
func (s *Server) spawnWings() error {
	spawn := func(team int, x float64, facing game.Basis) error {
		for i := 0; i < s.cfg.WingSize; i++ {
			class := game.ClassLightFighter
			if i%3 == 2 {
				class = game.ClassHeavyFighter
			}
			name := fmt.Sprintf("%s-%d", teamName(team), i+1)
			pos := game.Vec3{X: x, Y: float64(i) * 300, Z: float64(i%2) * 400}
			h := s.world.Spawn(class, team, name, pos, facing)
			if !h.Valid() {
				return fmt.Errorf("server: craft arena full while spawning %s", name)
			}
			if _, err := s.pilots.Add(pilot.KindFighter, h); err != nil {
				return fmt.Errorf("server: attaching pilot to %s: %w", name, err)
			}
			if team == game.TeamRed && i == 0 {
				s.refCraft = h
			}
			s.log.Info().Str("craft", name).Int("team", team).Msg("spawned fighter")
		}
		return nil
	}

	// Red faces +X, blue faces -X, 4000 units apart.
	redFacing := game.Basis{Right: game.Vec3{Z: -1}, Up: game.Vec3{Y: 1}, Forward: game.Vec3{X: 1}}
	blueFacing := game.Basis{Right: game.Vec3{Z: 1}, Up: game.Vec3{Y: 1}, Forward: game.Vec3{X: -1}}
	if err := spawn(game.TeamRed, -2000, redFacing); err != nil {
		return err
	}
	return spawn(game.TeamBlue, 2000, blueFacing)
}

func teamName(team int) string {
	switch team {
	case game.TeamRed:
		return "red"
	case game.TeamBlue:
		return "blue"
	default:
		return "none"
	}
}

// Run starts the tick loop and the client event loop. It returns when
// Shutdown is called.
func (s *Server) Run() {
	go s.gameLoop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			s.log.Info().Int("client", client.ID).Msg("spectator connected")

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.send)
			}
			s.mu.Unlock()
			s.log.Info().Int("client", client.ID).Msg("spectator disconnected")

		case msg := <-s.broadcast:
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- msg:
				default:
					// Slow spectator; drop the frame rather than stall the loop.
				}
			}
			s.mu.RUnlock()

		case <-s.done:
			return
		}
	}
}

// gameLoop steps the battle at the configured tick interval.
func (s *Server) gameLoop() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	dt := float64(s.cfg.TickInterval) / float64(time.Millisecond)
	for {
		select {
		case <-ticker.C:
			s.tick(dt)
		case <-s.done:
			return
		}
	}
}

// tick advances one frame: physics and weapons, then every pilot, then the
// precision re-origin check, then the spectator snapshot.
func (s *Server) tick(dt float64) {
	s.mu.Lock()
	s.world.Step(dt)
	s.pilots.Step(dt)
	s.recenter()
	s.frame++
	snapshotDue := s.cfg.SnapshotEvery > 0 && s.frame%int64(s.cfg.SnapshotEvery) == 0
	var snap ServerMessage
	if snapshotDue {
		snap = s.snapshot()
	}
	s.mu.Unlock()

	if snapshotDue {
		select {
		case s.broadcast <- snap:
		default:
		}
	}
}

// recenter shifts the world back to the origin when the reference craft has
// drifted far enough for float precision to matter, and forwards the same
// translation to every pilot's stored points.
func (s *Server) recenter() {
	ref, ok := s.world.Craft(s.refCraft)
	if !ok {
		// Reference destroyed; adopt any survivor.
		s.refCraft = game.NoHandle
		s.world.ForEach(func(c *game.Craft) {
			if !s.refCraft.Valid() && c.Alive() {
				s.refCraft = c.Handle()
			}
		})
		return
	}
	if ref.Pos.Len() < s.cfg.RecenterDistance {
		return
	}
	shift := ref.Pos.Scale(-1)
	s.world.Shift(shift)
	s.pilots.OnWorldShift(shift)
	s.log.Debug().
		Float64("x", shift.X).Float64("y", shift.Y).Float64("z", shift.Z).
		Msg("re-origined world around reference craft")
}

// craftSnapshot is the per-craft slice of a spectator frame.
type craftSnapshot struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Team  int       `json:"team"`
	Pos   game.Vec3 `json:"pos"`
	Speed float64   `json:"speed"`
	Hull  int       `json:"hull"`
}

type frameSnapshot struct {
	Frame       int64           `json:"frame"`
	Crafts      []craftSnapshot `json:"crafts"`
	Projectiles int             `json:"projectiles"`
}

// snapshot builds the spectator frame under the server lock.
func (s *Server) snapshot() ServerMessage {
	frame := frameSnapshot{
		Frame:       s.frame,
		Projectiles: len(s.world.Projectiles),
	}
	s.world.ForEach(func(c *game.Craft) {
		frame.Crafts = append(frame.Crafts, craftSnapshot{
			ID:    c.ID,
			Name:  c.Name,
			Team:  c.Team,
			Pos:   c.Pos,
			Speed: c.Speed,
			Hull:  c.Hull,
		})
	})
	return ServerMessage{Type: MsgTypeUpdate, Data: frame}
}

// Shutdown stops the tick and event loops.
func (s *Server) Shutdown() {
	close(s.done)
}

package arena

import (
	"errors"
	"fmt"
	"math"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
)

var (
	ErrTooFewCompetitors = errors.New("too few competitors")
	ErrNoPlatforms       = errors.New("arena has no platforms")
)

// Elimination records one resolved pairwise collision.
type Elimination struct {
	Tick   uint64
	Winner int // agent index
	Loser  int
}

// Arena owns the agents of one match. It has no notion of phases.
type Arena struct {
	cfg       *tuning.Tuning
	platforms []Platform
	agents    []*Agent
	bundle    *assets.Bundle
	rng       Rand

	tick  uint64
	elims []Elimination
}

// New places every competitor on a random platform. Placement retries while
// the candidate crowds an already placed agent and gives up after
// cfg.Spawn.Attempts retries, keeping the last candidate.
func New(cfg *tuning.Tuning, cs []roster.Competitor, b *assets.Bundle, rng Rand) (*Arena, error) {
	if need := max(cfg.MinCompetitors, tuning.FloorCompetitors); len(cs) < need {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewCompetitors, len(cs), need)
	}
	if len(cfg.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("arena: nil rand")
	}

	a := &Arena{
		cfg:       cfg,
		platforms: platformsFrom(cfg.Platforms),
		bundle:    b,
		rng:       rng,
	}

	champ := 0
	for i, c := range cs {
		if c.Score > cs[champ].Score {
			champ = i
		}
	}

	fw, fh := b.FrameSize()
	w := float64(fw) * cfg.Animation.SpriteScale
	h := float64(fh) * cfg.Animation.SpriteScale
	sep := w + w*cfg.Spawn.PersonalSpace
	frames := FrameCounts{Walk: len(b.Walk), Fly: len(b.Fly)}

	type spot struct{ x, y float64 }
	taken := make([]spot, 0, len(cs))
	crowded := func(x, y float64) bool {
		for _, s := range taken {
			if math.Abs(x-s.x) < sep && math.Abs(y-s.y) < h {
				return true
			}
		}
		return false
	}

	for i, c := range cs {
		var x, y float64
		for try := 0; ; try++ {
			p := a.platforms[int(rng.Float64()*float64(len(a.platforms)))]
			minX := p.X + cfg.Spawn.Inset
			maxX := p.X + p.W - w - cfg.Spawn.Inset
			x = uniform(rng, minX, maxX)
			y = p.Y - h
			if try >= cfg.Spawn.Attempts || !crowded(x, y) {
				break
			}
		}
		taken = append(taken, spot{x, y})

		isChamp := i == champ
		vx := uniform(rng, -cfg.Spawn.VX, cfg.Spawn.VX)
		if isChamp {
			vx *= cfg.Spawn.ChampionSpawnVXMult
		}
		a.agents = append(a.agents, NewAgent(AgentParams{
			User:        c.Name,
			Score:       c.Score,
			IsChampion:  isChamp,
			Placeholder: c.Placeholder,
			X:           x,
			Y:           y,
			VX:          vx,
			W:           w,
			H:           h,
			Platforms:   a.platforms,
			Frames:      frames,
		}, cfg))
	}
	return a, nil
}

// Agents returns the agents in competitor order.
func (a *Arena) Agents() []*Agent { return a.agents }

func (a *Arena) Platforms() []Platform { return a.platforms }

func (a *Arena) Tick() uint64 { return a.tick }

// Eliminations returns the eliminations resolved by the last Step. The slice
// is reused by the next Step.
func (a *Arena) Eliminations() []Elimination { return a.elims }

func (a *Arena) AliveCount() int {
	n := 0
	for _, g := range a.agents {
		if g.Alive {
			n++
		}
	}
	return n
}

// Champion returns the agent of the highest-scoring competitor.
func (a *Arena) Champion() *Agent {
	for _, g := range a.agents {
		if g.IsChampion {
			return g
		}
	}
	return nil
}

func (a *Arena) rivalOf(self *Agent) *Agent {
	for _, g := range a.agents {
		if g != self && g.Alive {
			return g
		}
	}
	return nil
}

// Step advances every living agent, resolves collisions and returns the sole
// survivor, or nil while more than one agent is alive.
func (a *Arena) Step() *Agent {
	a.tick++
	a.elims = a.elims[:0]
	for _, g := range a.agents {
		if g.Alive {
			g.UpdateAI(a)
			g.Step()
		}
	}
	a.handleCollisions()

	var last *Agent
	n := 0
	for _, g := range a.agents {
		if g.Alive {
			last = g
			n++
		}
	}
	if n == 1 {
		return last
	}
	return nil
}

// handleCollisions resolves every close pair among the agents alive at the
// start of the scan. Pairs are visited in index order and an elimination
// applies immediately, so later pairs in the same tick see it.
func (a *Arena) handleCollisions() {
	c := a.cfg.Combat
	alive := make([]int, 0, len(a.agents))
	for i, g := range a.agents {
		if g.Alive {
			alive = append(alive, i)
		}
	}
	for i := 0; i < len(alive); i++ {
		for j := i + 1; j < len(alive); j++ {
			ga, gb := a.agents[alive[i]], a.agents[alive[j]]
			if !ga.Alive || !gb.Alive {
				continue
			}
			if math.Abs(ga.X-gb.X) >= c.HitRange || math.Abs(ga.Y-gb.Y) >= c.HitRange {
				continue
			}

			var winA bool
			switch {
			case ga.IsChampion || gb.IsChampion:
				winA = ga.IsChampion
			case math.Abs(ga.Y-gb.Y) < c.TieRange:
				winA = a.rng.Float64() < 0.5
			default:
				winA = ga.Y < gb.Y
			}

			winner, loser := alive[i], alive[j]
			if !winA {
				winner, loser = loser, winner
			}
			lg := a.agents[loser]
			lg.Alive = false
			lg.VX, lg.VY = 0, 0
			a.agents[winner].VY = c.BounceVY
			a.elims = append(a.elims, Elimination{Tick: a.tick, Winner: winner, Loser: loser})
		}
	}
}

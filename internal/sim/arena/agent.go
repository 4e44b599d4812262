package arena

import (
	"math"

	"coliseum.run/internal/sim/tuning"
)

// Platform is a static surface agents can land on. The canvas floor is not a
// platform; it is handled separately.
type Platform struct {
	X, Y, W, H float64
}

func platformsFrom(ps []tuning.Platform) []Platform {
	out := make([]Platform, 0, len(ps))
	for _, p := range ps {
		out = append(out, Platform{X: p.X, Y: p.Y, W: p.W, H: p.H})
	}
	return out
}

type Sprite int

const (
	SpriteWalk Sprite = iota
	SpriteFly
)

func (s Sprite) String() string {
	if s == SpriteFly {
		return "fly"
	}
	return "walk"
}

// FrameCounts is the number of animation frames per sprite.
type FrameCounts struct {
	Walk int
	Fly  int
}

func (f FrameCounts) of(s Sprite) int {
	if s == SpriteFly {
		return f.Fly
	}
	return f.Walk
}

// Agent is one simulated competitor. Agents are owned by an Arena and mutated
// only by its Step.
type Agent struct {
	User       string
	Score      float64
	IsChampion bool
	// Placeholder marks padding entries from the roster.
	Placeholder bool

	X, Y   float64
	VX, VY float64
	W, H   float64

	Alive     bool
	OnGround  bool
	AirFrames int
	PrevY     float64

	Sprite   Sprite
	Frame    int
	FrameAcc float64

	AITimer float64

	cfg       *tuning.Tuning
	platforms []Platform
	frames    FrameCounts
}

// AgentParams are the validated inputs of NewAgent.
type AgentParams struct {
	User        string
	Score       float64
	IsChampion  bool
	Placeholder bool
	X, Y        float64
	VX          float64
	W, H        float64
	Platforms   []Platform
	Frames      FrameCounts
}

func NewAgent(p AgentParams, cfg *tuning.Tuning) *Agent {
	return &Agent{
		User:        p.User,
		Score:       p.Score,
		IsChampion:  p.IsChampion,
		Placeholder: p.Placeholder,
		X:           p.X,
		Y:           p.Y,
		VX:          p.VX,
		W:           p.W,
		H:           p.H,
		Alive:       true,
		PrevY:       p.Y,
		Sprite:      SpriteWalk,
		AITimer:     cfg.AI.InitialTimer,
		cfg:         cfg,
		platforms:   p.Platforms,
		frames:      p.Frames,
	}
}

func (g *Agent) championMult(m float64) float64 {
	if g.IsChampion {
		return m
	}
	return 1
}

// Flap sets an upward impulse.
func (g *Agent) Flap() {
	g.VY = g.cfg.Physics.FlapVY * g.championMult(g.cfg.Physics.ChampionFlapMult)
}

// UpdateAI steers toward the first living rival, hops off platform edges and
// wanders while airborne.
func (g *Agent) UpdateAI(a *Arena) {
	ai := g.cfg.AI
	rng := a.rng
	g.AITimer--

	if rival := a.rivalOf(g); rival != nil {
		g.VX += sign(rival.X-g.X) * ai.RivalPull
		if rival.Y > g.Y && rng.Float64() < ai.RivalFlapChance {
			g.Flap()
		}
	}

	if p := g.CurrentPlatform(); p != nil {
		nearL := g.X < p.X+ai.EdgePadding
		nearR := g.X+g.W > p.X+p.W-ai.EdgePadding
		if nearL || nearR {
			if rng.Float64() < ai.EdgeFlapChance {
				g.Flap()
			} else {
				g.VX *= ai.EdgeReverse
			}
		}
	} else if g.AITimer <= 0 {
		g.VX += uniform(rng, -ai.WanderImpulse, ai.WanderImpulse)
		g.AITimer = uniform(rng, ai.WanderTimerMin, ai.WanderTimerMax)
		if rng.Float64() < ai.WanderFlapChance {
			g.Flap()
		}
	}
}

// Step integrates one tick of physics and animation.
func (g *Agent) Step() {
	ph := g.cfg.Physics
	an := g.cfg.Animation

	g.PrevY = g.Y
	g.VY += ph.Gravity
	g.VX = clamp(g.VX, -ph.MaxVX*g.championMult(ph.ChampionMaxVXMult), ph.MaxVX)
	g.X += g.VX
	g.Y += g.VY

	if g.X < -g.W {
		g.X = g.cfg.CanvasW + g.W
	}
	if g.X > g.cfg.CanvasW+g.W {
		g.X = -g.W
	}
	g.handleSurfaces()

	if g.OnGround {
		g.AirFrames = 0
	} else {
		g.AirFrames++
	}
	want := SpriteWalk
	if g.AirFrames > an.FlyAfterAirFrames {
		want = SpriteFly
	}
	if want != g.Sprite {
		g.Sprite = want
		g.Frame = 0
		g.FrameAcc = 0
	}

	speed := an.FlyRate
	if g.Sprite == SpriteWalk {
		speed = math.Abs(g.VX)*an.WalkRatePerVX + an.WalkRateBase
	}
	g.FrameAcc += speed
	if g.FrameAcc > 1 {
		if n := g.frames.of(g.Sprite); n > 0 {
			g.Frame = (g.Frame + 1) % n
		}
		g.FrameAcc = 0
	}
}

// handleSurfaces resolves floor and platform contact, then applies friction
// or drag. The first platform in list order that the agent crossed wins.
func (g *Agent) handleSurfaces() {
	g.OnGround = false
	floor := g.cfg.CanvasH - g.H
	if g.Y > floor {
		g.Y = floor
		g.VY = 0
		g.OnGround = true
	}
	if g.VY >= 0 {
		for _, p := range g.platforms {
			withinX := g.X+g.W > p.X && g.X < p.X+p.W
			crossed := g.PrevY+g.H <= p.Y && g.Y+g.H >= p.Y
			if withinX && crossed {
				g.Y = p.Y - g.H
				g.VY = 0
				g.OnGround = true
				break
			}
		}
	}
	if g.OnGround {
		g.VX *= g.cfg.Physics.GroundFriction
	} else {
		g.VX *= g.cfg.Physics.AirDrag
	}
}

// CurrentPlatform returns the platform the agent is standing on, if any.
func (g *Agent) CurrentPlatform() *Platform {
	for i := range g.platforms {
		p := &g.platforms[i]
		if math.Abs(g.Y+g.H-p.Y) < 1 && g.X+g.W > p.X && g.X < p.X+p.W {
			return p
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

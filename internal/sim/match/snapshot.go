package match

import "coliseum.run/internal/sim/arena"

// Listener observes every worked frame. Observe runs on the loop goroutine
// and must not block.
type Listener interface {
	Observe(s Snapshot)
}

type ListenerFunc func(Snapshot)

func (f ListenerFunc) Observe(s Snapshot) { f(s) }

// Snapshot is a copy of the match state after one frame. Listeners may keep it.
type Snapshot struct {
	Frame uint64
	Phase Phase
	// Tick is the arena step count.
	Tick uint64
	// Countdown is the number shown on the countdown banner, 0 elsewhere.
	Countdown    int
	Agents       []AgentState
	Eliminations []Elimination
	// Winner is set from Victory onwards.
	Winner *Winner
	// NewRecord is meaningful once the ledger has been updated.
	NewRecord bool
}

type AgentState struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Champion    bool    `json:"champion,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
	Alive       bool    `json:"alive"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Sprite      string  `json:"sprite"`
	Frame       int     `json:"frame"`
}

type Elimination struct {
	Tick   uint64 `json:"tick"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

func (m *Match) snapshot() Snapshot {
	s := Snapshot{
		Frame:     m.frame,
		Phase:     m.phase,
		Tick:      m.arena.Tick(),
		Countdown: m.shownCountdown,
		NewRecord: m.newRecord,
	}
	agents := m.arena.Agents()
	s.Agents = make([]AgentState, 0, len(agents))
	for _, g := range agents {
		s.Agents = append(s.Agents, agentState(g))
	}
	for _, e := range m.lastElims {
		s.Eliminations = append(s.Eliminations, Elimination{
			Tick:   e.Tick,
			Winner: agents[e.Winner].User,
			Loser:  agents[e.Loser].User,
		})
	}
	if m.champion != nil {
		w := Winner{Name: m.champion.User, Score: m.champion.Score}
		s.Winner = &w
	}
	return s
}

func agentState(g *arena.Agent) AgentState {
	return AgentState{
		Name:        g.User,
		Score:       g.Score,
		Champion:    g.IsChampion,
		Placeholder: g.Placeholder,
		Alive:       g.Alive,
		X:           g.X,
		Y:           g.Y,
		VX:          g.VX,
		VY:          g.VY,
		Sprite:      g.Sprite.String(),
		Frame:       g.Frame,
	}
}

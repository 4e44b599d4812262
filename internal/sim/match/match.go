// Package match drives one presentation of the arena: countdown, combat,
// victory, an optional new-record banner and the high-score table. A Match is
// advanced one frame at a time by Tick, either directly or through Run.
package match

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/audio"
	"coliseum.run/internal/render"
	"coliseum.run/internal/sim/arena"
	"coliseum.run/internal/sim/ledger"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
)

var (
	ErrNoSurface = errors.New("no drawable surface")
	ErrNoAssets  = errors.New("sprite assets unavailable")
)

type Config struct {
	// Tuning defaults to tuning.Defaults().
	Tuning      *tuning.Tuning
	Competitors []roster.Competitor
	Bundle      *assets.Bundle
	Surface     render.Surface
	// Ledger defaults to the builtin seed table.
	Ledger *ledger.Ledger
	// Rand defaults to a time-seeded source.
	Rand      arena.Rand
	Cues      audio.Cues
	Listeners []Listener
	Logger    *log.Logger
}

type Match struct {
	cfg       *tuning.Tuning
	arena     *arena.Arena
	bundle    *assets.Bundle
	surface   render.Surface
	ledger    *ledger.Ledger
	cues      audio.Cues
	listeners []Listener
	log       *log.Logger
	result    *Result

	phase Phase
	frame uint64

	countdownLeft  int
	victoryLeft    int
	newHighLeft    int
	tableLeft      int
	shownCountdown int

	champion  *arena.Agent
	newRecord bool
	lastElims []arena.Elimination
	walker    walker

	presentFailed bool
}

// New validates the configuration and builds the arena. Nothing is drawn
// until the first Tick.
func New(c Config) (*Match, error) {
	cfg := c.Tuning
	if cfg == nil {
		d := tuning.Defaults()
		cfg = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	if c.Surface == nil {
		return nil, ErrNoSurface
	}
	if w, h := c.Surface.Size(); w != int(cfg.CanvasW) || h != int(cfg.CanvasH) {
		return nil, fmt.Errorf("%w: surface is %dx%d, arena is %vx%v", ErrNoSurface, w, h, cfg.CanvasW, cfg.CanvasH)
	}
	if c.Bundle == nil {
		return nil, ErrNoAssets
	}
	if err := c.Bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAssets, err)
	}
	rng := c.Rand
	if rng == nil {
		rng = arena.NewRand(time.Now().UnixNano())
	}
	a, err := arena.New(cfg, c.Competitors, c.Bundle, rng)
	if err != nil {
		return nil, err
	}

	m := &Match{
		cfg:       cfg,
		arena:     a,
		bundle:    c.Bundle,
		surface:   c.Surface,
		ledger:    c.Ledger,
		cues:      c.Cues,
		listeners: c.Listeners,
		log:       c.Logger,
		result:    newResult(),
		phase:     PhaseCountdown,

		countdownLeft: cfg.Frames(cfg.Timers.CountdownSeconds),
		walker:        walker{x: cfg.Animation.WalkerMargin, dir: 1},
	}
	if m.ledger == nil {
		m.ledger = ledger.Default(cfg.Ledger.Entries)
	}
	if m.cues == nil {
		m.cues = audio.Nop{}
	}
	if m.log == nil {
		m.log = log.New(io.Discard, "", 0)
	}
	return m, nil
}

func (m *Match) Phase() Phase           { return m.phase }
func (m *Match) Frame() uint64          { return m.frame }
func (m *Match) Arena() *arena.Arena    { return m.arena }
func (m *Match) Ledger() *ledger.Ledger { return m.ledger }

// Result is fulfilled when the high-score table has elapsed.
func (m *Match) Result() *Result { return m.result }

// NewRecord reports whether the winner beat the ledger's previous top score.
// It is meaningful from NewHighScore onwards.
func (m *Match) NewRecord() bool { return m.newRecord }

// Tick works exactly one frame and reports whether the match is finished.
// Calls after the end are no-ops.
func (m *Match) Tick() bool {
	if m.phase == PhaseFinished {
		return true
	}
	m.frame++
	m.lastElims = nil
	m.shownCountdown = 0

	switch m.phase {
	case PhaseCountdown:
		m.tickCountdown()
	case PhaseCombat:
		m.tickCombat()
	case PhaseVictory:
		m.tickVictory()
	case PhaseNewHighScore:
		m.tickNewHighScore()
	case PhaseHighScoreTable:
		m.tickHighScoreTable()
	}

	m.present()
	m.publish()
	return m.phase == PhaseFinished
}

func (m *Match) tickCountdown() {
	if m.countdownLeft%m.cfg.FPS == 0 {
		m.cues.Countdown()
	}
	m.shownCountdown = int(math.Ceil(float64(m.countdownLeft) / float64(m.cfg.FPS)))
	m.drawCountdown(m.shownCountdown)
	m.countdownLeft--
	if m.countdownLeft <= 0 {
		m.setPhase(PhaseCombat)
	}
}

func (m *Match) tickCombat() {
	survivor := m.arena.Step()
	m.arena.Render(m.surface)
	if el := m.arena.Eliminations(); len(el) > 0 {
		m.lastElims = append([]arena.Elimination(nil), el...)
		m.cues.Hit()
		for _, e := range el {
			ag := m.arena.Agents()
			m.log.Printf("tick %d: %s eliminated %s (%d left)", e.Tick, ag[e.Winner].User, ag[e.Loser].User, m.arena.AliveCount())
		}
	}
	if survivor != nil {
		m.champion = survivor
		m.victoryLeft = m.cfg.Frames(m.cfg.Timers.VictorySeconds)
		m.cues.Victory()
		m.setPhase(PhaseVictory)
	}
}

func (m *Match) tickVictory() {
	total := m.cfg.Frames(m.cfg.Timers.VictorySeconds)
	m.drawVictory(total - m.victoryLeft)
	m.victoryLeft--
	if m.victoryLeft > 0 {
		return
	}
	m.newRecord = m.ledger.Record(ledger.Entry{Name: m.champion.User, Score: m.champion.Score})
	if m.newRecord {
		m.newHighLeft = m.cfg.Frames(m.cfg.Timers.NewHighScoreSeconds)
		m.cues.NewRecord()
		m.setPhase(PhaseNewHighScore)
		return
	}
	m.tableLeft = m.cfg.Frames(m.cfg.Timers.HighScoreSeconds)
	m.setPhase(PhaseHighScoreTable)
}

func (m *Match) tickNewHighScore() {
	m.drawNewHighScore()
	m.newHighLeft--
	if m.newHighLeft <= 0 {
		m.tableLeft = m.cfg.Frames(m.cfg.Timers.HighScoreSeconds)
		m.setPhase(PhaseHighScoreTable)
	}
}

func (m *Match) tickHighScoreTable() {
	m.walker.step(m.cfg, m.bundle)
	m.drawHighScoreTable(m.ledger.Entries())
	m.tableLeft--
	if m.tableLeft > 0 {
		return
	}
	w := Winner{Name: m.champion.User, Score: m.champion.Score}
	m.setPhase(PhaseFinished)
	if m.result.resolve(w) {
		m.log.Printf("winner %s (score %v)", w.Name, w.Score)
	}
}

func (m *Match) setPhase(p Phase) {
	m.log.Printf("phase %s -> %s at frame %d", m.phase, p, m.frame)
	m.phase = p
}

func (m *Match) present() {
	if err := m.surface.Present(); err != nil && !m.presentFailed {
		m.presentFailed = true
		m.log.Printf("present frame %d: %v", m.frame, err)
	}
}

func (m *Match) publish() {
	if len(m.listeners) == 0 {
		return
	}
	s := m.snapshot()
	for _, l := range m.listeners {
		l.Observe(s)
	}
}

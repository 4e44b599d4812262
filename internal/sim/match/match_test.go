package match

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strconv"
	"strings"
	"testing"
	"time"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/render"
	"coliseum.run/internal/sim/arena"
	"coliseum.run/internal/sim/ledger"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
)

// recSurface counts, per drawn text, how many presented frames contained it.
type recSurface struct {
	w, h     int
	pending  []string
	texts    map[string]int
	presents int
	images   int
}

func newRecSurface() *recSurface {
	return &recSurface{w: 900, h: 600, texts: map[string]int{}}
}

func (s *recSurface) Size() (int, int)                         { return s.w, s.h }
func (s *recSurface) Clear(color.Color)                        {}
func (s *recSurface) FillRect(render.Rect, color.Color)        {}
func (s *recSurface) DrawImage(image.Image, render.Rect, bool) { s.images++ }
func (s *recSurface) DrawText(text string, _, _, _ float64, _ render.Align, _ color.Color) {
	s.pending = append(s.pending, text)
}

func (s *recSurface) Present() error {
	s.presents++
	for _, t := range s.pending {
		s.texts[t]++
	}
	s.pending = s.pending[:0]
	return nil
}

type countingCues struct{ countdown, hit, victory, record int }

func (c *countingCues) Countdown() { c.countdown++ }
func (c *countingCues) Hit()       { c.hit++ }
func (c *countingCues) Victory()   { c.victory++ }
func (c *countingCues) NewRecord() { c.record++ }

func competitors(top float64) []roster.Competitor {
	return []roster.Competitor{{Name: "A", Score: top}, {Name: "B", Score: 50}, {Name: "C", Score: 10}}
}

func newMatch(t *testing.T, s render.Surface, cs []roster.Competitor, extra func(*Config)) *Match {
	t.Helper()
	c := Config{
		Competitors: cs,
		Bundle:      assets.Builtin(),
		Surface:     s,
		Rand:        arena.NewRand(11),
	}
	if extra != nil {
		extra(&c)
	}
	m, err := New(c)
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	return m
}

func runToEnd(t *testing.T, m *Match) {
	t.Helper()
	for i := 0; i < 500_000; i++ {
		if m.Tick() {
			return
		}
	}
	t.Fatalf("match did not finish; stuck in %s", m.Phase())
}

func TestNew_FailsFast(t *testing.T) {
	cs := competitors(100)
	b := assets.Builtin()
	noRider := assets.Builtin()
	noRider.Rider = nil

	for _, tc := range []struct {
		name string
		cfg  Config
		want error
	}{
		{"nil surface", Config{Competitors: cs, Bundle: b}, ErrNoSurface},
		{"wrong size", Config{Competitors: cs, Bundle: b, Surface: render.NewCanvas(100, 100, nil)}, ErrNoSurface},
		{"nil bundle", Config{Competitors: cs, Surface: newRecSurface()}, ErrNoAssets},
		{"incomplete bundle", Config{Competitors: cs, Bundle: noRider, Surface: newRecSurface()}, ErrNoAssets},
		{"too few", Config{Competitors: cs[:2], Bundle: b, Surface: newRecSurface()}, arena.ErrTooFewCompetitors},
	} {
		if _, err := New(tc.cfg); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestNew_RejectsInvalidTuning(t *testing.T) {
	cfg := tuning.Defaults()
	cfg.FPS = 0
	_, err := New(Config{
		Tuning:      &cfg,
		Competitors: competitors(100),
		Bundle:      assets.Builtin(),
		Surface:     newRecSurface(),
	})
	if !errors.Is(err, tuning.ErrInvalid) {
		t.Fatalf("expected tuning.ErrInvalid, got %v", err)
	}
}

func TestTick_FullMatchWithoutRecord(t *testing.T) {
	s := newRecSurface()
	cues := &countingCues{}
	var phases []Phase
	m := newMatch(t, s, competitors(100), func(c *Config) {
		c.Cues = cues
		c.Listeners = []Listener{ListenerFunc(func(snap Snapshot) {
			if n := len(phases); n == 0 || phases[n-1] != snap.Phase {
				phases = append(phases, snap.Phase)
			}
		})}
	})
	if _, ok := m.Result().Winner(); ok {
		t.Fatalf("result resolved before the first frame")
	}
	runToEnd(t, m)

	want := []Phase{PhaseCountdown, PhaseCombat, PhaseVictory, PhaseHighScoreTable, PhaseFinished}
	if len(phases) != len(want) {
		t.Fatalf("phases: got %v want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases: got %v want %v", phases, want)
		}
	}

	w, ok := m.Result().Winner()
	if !ok || w.Name != "A" || w.Score != 100 {
		t.Fatalf("winner: %+v ok=%v", w, ok)
	}
	if m.NewRecord() {
		t.Fatalf("100 does not beat 189")
	}

	for sec := 1; sec <= 3; sec++ {
		banner := "Comment Coliseum Starts In: " + strconv.Itoa(sec)
		if got := s.texts[banner]; got != 60 {
			t.Fatalf("%q shown %d frames, want 60", banner, got)
		}
	}
	if got := s.texts["A – Victory!"]; got != 120 {
		t.Fatalf("victory frames: %d", got)
	}
	if got := s.texts["HIGH SCORES"]; got != 300 {
		t.Fatalf("table frames: %d", got)
	}
	if got := s.texts["★ NEW HIGH SCORE! ★"]; got != 0 {
		t.Fatalf("record banner shown without a record")
	}
	if uint64(s.presents) != m.Frame() {
		t.Fatalf("presents %d != frames %d", s.presents, m.Frame())
	}

	if cues.countdown != 3 || cues.victory != 1 || cues.record != 0 || cues.hit < 1 {
		t.Fatalf("cues: %+v", cues)
	}

	found := false
	for _, e := range m.Ledger().Entries() {
		if e.Name == "A" && e.Score == 100 {
			found = true
		}
	}
	if !found {
		t.Fatalf("winner not recorded: %+v", m.Ledger().Entries())
	}
}

func TestTick_NewRecordBranch(t *testing.T) {
	s := newRecSurface()
	cues := &countingCues{}
	m := newMatch(t, s, competitors(500), func(c *Config) { c.Cues = cues })
	runToEnd(t, m)

	if !m.NewRecord() {
		t.Fatalf("500 beats 189")
	}
	if got := s.texts["★ NEW HIGH SCORE! ★"]; got != 120 {
		t.Fatalf("record banner frames: %d", got)
	}
	if got := s.texts["A: 500"]; got != 120 {
		t.Fatalf("record detail frames: %d", got)
	}
	if got := s.texts["01. A  500"]; got != 300 {
		t.Fatalf("top table row frames: %d", got)
	}
	if cues.record != 1 {
		t.Fatalf("record cue: %d", cues.record)
	}
	if top, _ := m.Ledger().Top(); top.Name != "A" {
		t.Fatalf("ledger top: %+v", top)
	}
}

func TestTick_EmptyLedgerZeroScoreIsNotARecord(t *testing.T) {
	cs := []roster.Competitor{{Name: "A", Score: 0}, {Name: "B", Score: 0}, {Name: "C", Score: 0}}
	m := newMatch(t, newRecSurface(), cs, func(c *Config) { c.Ledger = ledger.New(10, nil) })
	runToEnd(t, m)
	if m.NewRecord() {
		t.Fatalf("0 does not beat an empty ledger")
	}
}

func TestTick_AfterFinishIsNoop(t *testing.T) {
	s := newRecSurface()
	m := newMatch(t, s, competitors(100), nil)
	runToEnd(t, m)
	frames, presents := m.Frame(), s.presents
	for i := 0; i < 5; i++ {
		if !m.Tick() {
			t.Fatalf("finished match reported unfinished")
		}
	}
	if m.Frame() != frames || s.presents != presents {
		t.Fatalf("ticks after finish did work")
	}
	if m.result.resolve(Winner{Name: "other"}) {
		t.Fatalf("result resolved twice")
	}
	if w, _ := m.Result().Winner(); w.Name != "A" {
		t.Fatalf("winner overwritten: %+v", w)
	}
}

func TestTick_SnapshotsCarryEliminations(t *testing.T) {
	var elims []Elimination
	var last Snapshot
	m := newMatch(t, newRecSurface(), competitors(100), func(c *Config) {
		c.Listeners = []Listener{ListenerFunc(func(s Snapshot) {
			elims = append(elims, s.Eliminations...)
			last = s
		})}
	})
	runToEnd(t, m)

	if len(elims) != 2 {
		t.Fatalf("eliminations: %+v", elims)
	}
	losers := map[string]bool{}
	for _, e := range elims {
		if e.Loser == "A" {
			t.Fatalf("champion eliminated: %+v", e)
		}
		losers[e.Loser] = true
	}
	if !losers["B"] || !losers["C"] {
		t.Fatalf("losers: %v", losers)
	}
	if last.Phase != PhaseFinished || last.Winner == nil || last.Winner.Name != "A" {
		t.Fatalf("final snapshot: %+v", last)
	}
}

func TestTick_PlaceholdersNeverWin(t *testing.T) {
	cs := roster.Prepare([]roster.Competitor{{Name: "A", Score: 100}, {Name: "B", Score: 50}}, 3, 4)
	for seed := int64(0); seed < 5; seed++ {
		m := newMatch(t, newRecSurface(), cs, func(c *Config) { c.Rand = arena.NewRand(seed) })
		runToEnd(t, m)
		w, _ := m.Result().Winner()
		if strings.HasPrefix(w.Name, roster.PlaceholderPrefix) {
			t.Fatalf("seed %d: placeholder won", seed)
		}
	}
}

func TestTick_RendersToCanvas(t *testing.T) {
	sink := &countingSink{}
	c := render.NewCanvas(900, 600, sink)
	m := newMatch(t, c, competitors(100), nil)
	runToEnd(t, m)
	if uint64(sink.frames) != m.Frame() || uint64(c.Frames) != m.Frame() {
		t.Fatalf("sink frames %d, canvas frames %d, match frames %d", sink.frames, c.Frames, m.Frame())
	}
}

type countingSink struct{ frames int }

func (s *countingSink) WriteFrame(*image.RGBA) error {
	s.frames++
	return nil
}

type failingSurface struct{ *recSurface }

func (failingSurface) Present() error { return errors.New("gone") }

func TestTick_PresentErrorsDoNotStopTheMatch(t *testing.T) {
	m := newMatch(t, failingSurface{newRecSurface()}, competitors(100), nil)
	runToEnd(t, m)
	if _, ok := m.Result().Winner(); !ok {
		t.Fatalf("match did not resolve")
	}
}

func TestTableRows_PadsAndTruncates(t *testing.T) {
	rows := tableRows([]ledger.Entry{{Name: "LONGNAME", Score: 12.5}, {Name: "Bo", Score: 3}}, 10, "AAAA")
	if len(rows) != 10 {
		t.Fatalf("rows: %d", len(rows))
	}
	if rows[0] != "01. LONG  12.5" || rows[1] != "02. Bo  3" || rows[9] != "10. AAAA  0" {
		t.Fatalf("rows: %q", rows)
	}
}

func TestWalker_BouncesBetweenMargins(t *testing.T) {
	cfg := tuning.Defaults()
	b := assets.Builtin()
	w := walker{x: cfg.Animation.WalkerMargin, dir: 1}
	fw, _ := b.FrameSize()
	maxX := cfg.CanvasW - float64(fw)*cfg.Animation.SpriteScale - cfg.Animation.WalkerMargin
	sawLeft := false
	for i := 0; i < 1000; i++ {
		w.step(&cfg, b)
		if w.x < cfg.Animation.WalkerMargin || w.x > maxX {
			t.Fatalf("step %d: x=%v outside [%v, %v]", i, w.x, cfg.Animation.WalkerMargin, maxX)
		}
		if w.dir < 0 {
			sawLeft = true
		}
	}
	if !sawLeft {
		t.Fatalf("walker never turned around")
	}
}

func TestResult_WaitHonoursContext(t *testing.T) {
	r := newResult()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("wait: %v", err)
	}
	if !r.resolve(Winner{Name: "X", Score: 1}) {
		t.Fatalf("first resolve failed")
	}
	w, err := r.Wait(context.Background())
	if err != nil || w.Name != "X" {
		t.Fatalf("wait after resolve: %+v %v", w, err)
	}
	select {
	case <-r.Done():
	default:
		t.Fatalf("done not closed")
	}
}

func TestPacer_HoldsEarlyCallbacks(t *testing.T) {
	frame := time.Second / 60
	display := time.Second / 120
	p := NewPacer(frame)
	base := time.Unix(0, 0)

	if p.Ready(base) {
		t.Fatalf("first callback only starts the clock")
	}
	worked := 0
	for i := 1; i <= 120; i++ {
		if p.Ready(base.Add(time.Duration(i) * display)) {
			worked++
		}
	}
	if worked != 60 {
		t.Fatalf("worked %d frames in one second at 120Hz, want 60", worked)
	}

	// A long stall yields one frame, not a burst.
	now := base.Add(10 * time.Second)
	if !p.Ready(now) {
		t.Fatalf("late callback should work")
	}
	if p.Ready(now.Add(time.Millisecond)) {
		t.Fatalf("missed frames must not accumulate")
	}
}

type chanClock struct {
	c       chan time.Time
	stopped chan struct{}
}

func (c *chanClock) C() <-chan time.Time { return c.c }
func (c *chanClock) Stop()               { close(c.stopped) }

func TestRun_ResolvesThroughClock(t *testing.T) {
	m := newMatch(t, newRecSurface(), competitors(100), nil)
	clock := &chanClock{c: make(chan time.Time), stopped: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res := m.Run(ctx, clock)
	go func() {
		now := time.Unix(0, 0)
		for {
			now = now.Add(time.Second / 120)
			select {
			case clock.c <- now:
			case <-clock.stopped:
				return
			}
		}
	}()

	w, err := res.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if w.Name != "A" {
		t.Fatalf("winner: %+v", w)
	}
	select {
	case <-clock.stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("clock not stopped after the match finished")
	}
}

func TestRun_CancelLeavesResultUnresolved(t *testing.T) {
	m := newMatch(t, newRecSurface(), competitors(100), nil)
	clock := &chanClock{c: make(chan time.Time), stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	res := m.Run(ctx, clock)
	cancel()

	select {
	case <-clock.stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop on cancel")
	}
	if _, ok := res.Winner(); ok {
		t.Fatalf("cancelled match resolved")
	}
}

package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid tuning")

// Tuning holds every tunable of a match. It is loaded once at startup and
// treated as immutable afterwards; simulation code only reads it.
type Tuning struct {
	CanvasW float64 `yaml:"canvas_w"`
	CanvasH float64 `yaml:"canvas_h"`
	FPS     int     `yaml:"fps"`
	// DisplayHz is the rate of the display callback that drives the frame loop.
	// Callbacks arriving faster than FPS are held.
	DisplayHz int `yaml:"display_hz"`

	MinCompetitors int `yaml:"min_competitors"`
	MaxEntrants    int `yaml:"max_entrants"`

	Physics   Physics    `yaml:"physics"`
	AI        AI         `yaml:"ai"`
	Combat    Combat     `yaml:"combat"`
	Spawn     Spawn      `yaml:"spawn"`
	Animation Animation  `yaml:"animation"`
	Timers    Timers     `yaml:"timers"`
	Ledger    Ledger     `yaml:"ledger"`
	Platforms []Platform `yaml:"platforms"`
}

type Physics struct {
	Gravity        float64 `yaml:"gravity"`
	FlapVY         float64 `yaml:"flap_vy"`
	MaxVX          float64 `yaml:"max_vx"`
	GroundFriction float64 `yaml:"ground_friction"`
	AirDrag        float64 `yaml:"air_drag"`

	// Champion multipliers.
	ChampionFlapMult  float64 `yaml:"champion_flap_mult"`
	ChampionMaxVXMult float64 `yaml:"champion_max_vx_mult"`
}

type AI struct {
	InitialTimer     float64 `yaml:"initial_timer"`
	RivalPull        float64 `yaml:"rival_pull"`
	RivalFlapChance  float64 `yaml:"rival_flap_chance"`
	EdgePadding      float64 `yaml:"edge_padding"`
	EdgeFlapChance   float64 `yaml:"edge_flap_chance"`
	EdgeReverse      float64 `yaml:"edge_reverse"`
	WanderImpulse    float64 `yaml:"wander_impulse"`
	WanderTimerMin   float64 `yaml:"wander_timer_min"`
	WanderTimerMax   float64 `yaml:"wander_timer_max"`
	WanderFlapChance float64 `yaml:"wander_flap_chance"`
}

type Combat struct {
	HitRange float64 `yaml:"hit_range"`
	TieRange float64 `yaml:"tie_range"`
	BounceVY float64 `yaml:"bounce_vy"`
}

type Spawn struct {
	Attempts            int     `yaml:"attempts"`
	PersonalSpace       float64 `yaml:"personal_space"`
	Inset               float64 `yaml:"inset"`
	VX                  float64 `yaml:"vx"`
	ChampionSpawnVXMult float64 `yaml:"champion_vx_mult"`
}

type Animation struct {
	SpriteScale        float64 `yaml:"sprite_scale"`
	FlyAfterAirFrames  int     `yaml:"fly_after_air_frames"`
	WalkRateBase       float64 `yaml:"walk_rate_base"`
	WalkRatePerVX      float64 `yaml:"walk_rate_per_vx"`
	FlyRate            float64 `yaml:"fly_rate"`
	VictoryScale       float64 `yaml:"victory_scale"`
	VictoryFramePeriod int     `yaml:"victory_frame_period"`
	WalkerFramePeriod  int     `yaml:"walker_frame_period"`
	WalkerSpeed        float64 `yaml:"walker_speed"`
	WalkerMargin       float64 `yaml:"walker_margin"`
}

// Timers are in whole seconds; frame counts are derived with FPS.
type Timers struct {
	CountdownSeconds    int `yaml:"countdown_seconds"`
	VictorySeconds      int `yaml:"victory_seconds"`
	NewHighScoreSeconds int `yaml:"new_high_score_seconds"`
	HighScoreSeconds    int `yaml:"high_score_seconds"`
}

type Ledger struct {
	Entries     int    `yaml:"entries"`
	DefaultName string `yaml:"default_name"`
}

type Platform struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Defaults returns the stock arena.
func Defaults() Tuning {
	return Tuning{
		CanvasW:        900,
		CanvasH:        600,
		FPS:            60,
		DisplayHz:      120,
		MinCompetitors: 3,
		MaxEntrants:    4,
		Physics: Physics{
			Gravity:           0.45,
			FlapVY:            -11,
			MaxVX:             4,
			GroundFriction:    0.80,
			AirDrag:           0.995,
			ChampionFlapMult:  1.1,
			ChampionMaxVXMult: 1.25,
		},
		AI: AI{
			InitialTimer:     30,
			RivalPull:        0.15,
			RivalFlapChance:  0.02,
			EdgePadding:      14,
			EdgeFlapChance:   0.5,
			EdgeReverse:      -0.7,
			WanderImpulse:    0.6,
			WanderTimerMin:   40,
			WanderTimerMax:   90,
			WanderFlapChance: 0.1,
		},
		Combat: Combat{
			HitRange: 40,
			TieRange: 8,
			BounceVY: -6,
		},
		Spawn: Spawn{
			Attempts:            40,
			PersonalSpace:       0.65,
			Inset:               10,
			VX:                  2,
			ChampionSpawnVXMult: 1.2,
		},
		Animation: Animation{
			SpriteScale:        2,
			FlyAfterAirFrames:  2,
			WalkRateBase:       0.08,
			WalkRatePerVX:      0.12,
			FlyRate:            0.18,
			VictoryScale:       4,
			VictoryFramePeriod: 8,
			WalkerFramePeriod:  8,
			WalkerSpeed:        2,
			WalkerMargin:       10,
		},
		Timers: Timers{
			CountdownSeconds:    3,
			VictorySeconds:      2,
			NewHighScoreSeconds: 2,
			HighScoreSeconds:    5,
		},
		Ledger: Ledger{
			Entries:     10,
			DefaultName: "AAAA",
		},
		Platforms: []Platform{
			{X: 150, Y: 350, W: 200, H: 10},
			{X: 550, Y: 250, W: 200, H: 10},
			{X: 310, Y: 180, W: 260, H: 10},
		},
	}
}

// Load overlays the yaml file at path onto Defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// FloorCompetitors is the smallest field a match accepts, whatever the tuning
// says.
const FloorCompetitors = 3

func (t Tuning) Validate() error {
	if t.CanvasW <= 0 || t.CanvasH <= 0 {
		return fmt.Errorf("%w: canvas must be positive, got %vx%v", ErrInvalid, t.CanvasW, t.CanvasH)
	}
	if t.FPS <= 0 {
		return fmt.Errorf("%w: fps must be > 0", ErrInvalid)
	}
	if t.DisplayHz < t.FPS {
		return fmt.Errorf("%w: display_hz (%d) must be >= fps (%d)", ErrInvalid, t.DisplayHz, t.FPS)
	}
	if t.MinCompetitors < FloorCompetitors {
		return fmt.Errorf("%w: min_competitors must be >= %d", ErrInvalid, FloorCompetitors)
	}
	if t.MaxEntrants != 0 && t.MaxEntrants < t.MinCompetitors {
		return fmt.Errorf("%w: max_entrants must be 0 or >= min_competitors", ErrInvalid)
	}
	if len(t.Platforms) == 0 {
		return fmt.Errorf("%w: platforms must not be empty", ErrInvalid)
	}
	for i, p := range t.Platforms {
		if p.W <= 0 || p.H <= 0 {
			return fmt.Errorf("%w: platform %d has empty size", ErrInvalid, i)
		}
		if p.X < 0 || p.X+p.W > t.CanvasW || p.Y < 0 || p.Y > t.CanvasH {
			return fmt.Errorf("%w: platform %d outside canvas", ErrInvalid, i)
		}
	}
	if t.Spawn.Attempts <= 0 {
		return fmt.Errorf("%w: spawn.attempts must be > 0", ErrInvalid)
	}
	if t.AI.WanderTimerMax < t.AI.WanderTimerMin {
		return fmt.Errorf("%w: ai.wander_timer_max < ai.wander_timer_min", ErrInvalid)
	}
	if t.Animation.SpriteScale <= 0 || t.Animation.VictoryScale <= 0 {
		return fmt.Errorf("%w: sprite scales must be > 0", ErrInvalid)
	}
	if t.Animation.VictoryFramePeriod <= 0 || t.Animation.WalkerFramePeriod <= 0 {
		return fmt.Errorf("%w: frame periods must be > 0", ErrInvalid)
	}
	tm := t.Timers
	if tm.CountdownSeconds <= 0 || tm.VictorySeconds <= 0 || tm.NewHighScoreSeconds <= 0 || tm.HighScoreSeconds <= 0 {
		return fmt.Errorf("%w: timers must be > 0 seconds", ErrInvalid)
	}
	if t.Ledger.Entries <= 0 {
		return fmt.Errorf("%w: ledger.entries must be > 0", ErrInvalid)
	}
	return nil
}

// Frames converts whole seconds to a frame count.
func (t Tuning) Frames(seconds int) int { return seconds * t.FPS }

// FrameInterval is the minimum wall time between two worked frames.
func (t Tuning) FrameInterval() time.Duration {
	return time.Second / time.Duration(t.FPS)
}

// DisplayInterval is the period of the display callback.
func (t Tuning) DisplayInterval() time.Duration {
	return time.Second / time.Duration(t.DisplayHz)
}

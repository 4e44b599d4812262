package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
	TypeFinished  = "FINISHED"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryNFrames thins the TICK stream. Phase changes and eliminations are
	// always sent.
	EveryNFrames int `json:"every_n_frames"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	CanvasW         int          `json:"canvas_w"`
	CanvasH         int          `json:"canvas_h"`
	FPS             int          `json:"fps"`
	Phase           string       `json:"phase"`
	Frame           uint64       `json:"frame"`
	Competitors     []Competitor `json:"competitors"`
	Platforms       []Platform   `json:"platforms"`
}

type Competitor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

type Platform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Server -> Client. Sent every N worked frames.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Frame           uint64 `json:"frame"`
	Tick            uint64 `json:"tick"`
	Phase           string `json:"phase"`
	Countdown       int    `json:"countdown,omitempty"`

	Agents       []AgentState  `json:"agents"`
	Eliminations []Elimination `json:"eliminations,omitempty"`
}

type AgentState struct {
	Name     string  `json:"name"`
	Alive    bool    `json:"alive"`
	Champion bool    `json:"champion,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Sprite   string  `json:"sprite"`
	Frame    int     `json:"frame"`
}

type Elimination struct {
	Tick   uint64 `json:"tick"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// Server -> Client. Sent once, when the match result resolves.
type FinishedMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Frame           uint64  `json:"frame"`
	Winner          string  `json:"winner"`
	Score           float64 `json:"score"`
	NewRecord       bool    `json:"new_record"`
}

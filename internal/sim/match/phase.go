package match

type Phase int

const (
	PhaseCountdown Phase = iota
	PhaseCombat
	PhaseVictory
	PhaseNewHighScore
	PhaseHighScoreTable
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseCombat:
		return "combat"
	case PhaseVictory:
		return "victory"
	case PhaseNewHighScore:
		return "new_high_score"
	case PhaseHighScoreTable:
		return "high_score_table"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
)

func drain(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}

func TestMelody_IsFinite(t *testing.T) {
	for name, notes := range map[string][]note{
		"countdown": countdownNotes,
		"hit":       hitNotes,
		"victory":   victoryNotes,
		"record":    recordNotes,
	} {
		s, err := melody(sampleRate, notes)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		want := 0
		for _, n := range notes {
			want += sampleRate.N(n.dur)
		}
		if got := drain(s); got != want {
			t.Fatalf("%s: streamed %d samples, want %d", name, got, want)
		}
	}
}

func TestMelody_RejectsUnplayableFrequency(t *testing.T) {
	// Above Nyquist for the sample rate.
	if _, err := melody(sampleRate, []note{{freq: 30000, dur: time.Millisecond}}); err == nil {
		t.Fatalf("expected error for frequency above Nyquist")
	}
}

func TestNop_SatisfiesCues(t *testing.T) {
	var c Cues = Nop{}
	c.Countdown()
	c.Hit()
	c.Victory()
	c.NewRecord()
}

// Package audio plays short synthesized cues for match events. Audio is
// optional: when the output device cannot be opened the runner uses Nop.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Cues are the match events that make a sound.
type Cues interface {
	Countdown()
	Hit()
	Victory()
	NewRecord()
}

// Nop is the silent fallback.
type Nop struct{}

func (Nop) Countdown() {}
func (Nop) Hit()       {}
func (Nop) Victory()   {}
func (Nop) NewRecord() {}

type note struct {
	freq float64
	dur  time.Duration
}

var (
	countdownNotes = []note{{660, 80 * time.Millisecond}}
	hitNotes       = []note{{220, 50 * time.Millisecond}, {165, 50 * time.Millisecond}}
	victoryNotes   = []note{{523, 120 * time.Millisecond}, {659, 120 * time.Millisecond}, {784, 240 * time.Millisecond}}
	recordNotes    = []note{{784, 90 * time.Millisecond}, {988, 90 * time.Millisecond}, {1175, 90 * time.Millisecond}, {1568, 200 * time.Millisecond}}
)

// Beep mixes cues into the default speaker.
type Beep struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	closed bool
}

// NewBeep opens the speaker. The error is for the caller to log; the match
// runs fine with Nop.
func NewBeep() (*Beep, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	b := &Beep{mixer: &beep.Mixer{}}
	speaker.Play(b.mixer)
	return b, nil
}

func (b *Beep) Countdown() { b.play(countdownNotes) }
func (b *Beep) Hit()       { b.play(hitNotes) }
func (b *Beep) Victory()   { b.play(victoryNotes) }
func (b *Beep) NewRecord() { b.play(recordNotes) }

func (b *Beep) play(notes []note) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	s, err := melody(sampleRate, notes)
	if err != nil {
		return
	}
	speaker.Lock()
	b.mixer.Add(s)
	speaker.Unlock()
}

// Close silences pending cues and releases the device.
func (b *Beep) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	speaker.Clear()
	speaker.Close()
}

// melody chains sine tones into one finite streamer.
func melody(sr beep.SampleRate, notes []note) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := generators.SineTone(sr, n.freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(sr.N(n.dur), tone))
	}
	return beep.Seq(parts...), nil
}

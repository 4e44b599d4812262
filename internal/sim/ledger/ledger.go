// Package ledger keeps the in-memory high-score table shown after each match.
package ledger

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_scores.yaml
var defaultScores []byte

type Entry struct {
	Name  string  `yaml:"name" json:"name"`
	Score float64 `yaml:"score" json:"score"`
}

// Ledger is ordered by descending score and never holds more than its
// capacity. It is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// New returns a ledger holding the best capacity entries of seed.
func New(capacity int, seed []Entry) *Ledger {
	if capacity <= 0 {
		capacity = 1
	}
	l := &Ledger{cap: capacity}
	l.entries = append(l.entries, seed...)
	l.normalizeLocked()
	return l
}

// Default returns a ledger seeded with the builtin table.
func Default(capacity int) *Ledger {
	seed, err := ParseSeed(defaultScores)
	if err != nil {
		panic(fmt.Sprintf("ledger: embedded seed: %v", err))
	}
	return New(capacity, seed)
}

// ParseSeed decodes a yaml list of {name, score} entries.
func ParseSeed(b []byte) ([]Entry, error) {
	var out []Entry
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return out, nil
}

// Record inserts e and reports whether its score strictly beats the top score
// held before the insert. An empty ledger has a prior top of 0.
func (l *Ledger) Record(e Entry) (newTop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var prevTop float64
	if len(l.entries) > 0 {
		prevTop = l.entries[0].Score
	}
	l.entries = append(l.entries, e)
	l.normalizeLocked()
	return e.Score > prevTop
}

func (l *Ledger) normalizeLocked() {
	sort.SliceStable(l.entries, func(i, j int) bool { return l.entries[i].Score > l.entries[j].Score })
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

// Entries returns a copy in rank order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Ledger) Top() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[0], true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) Cap() int { return l.cap }

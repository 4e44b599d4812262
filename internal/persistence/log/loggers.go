package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"coliseum.run/internal/sim/match"
)

// JSONLZstdWriter appends one JSON document per line to a zstd file. The
// file is opened on the first write and named after that moment.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu   sync.Mutex
	path string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Path is empty until the first write.
func (w *JSONLZstdWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder without closing it.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, w.now().UTC().Format("20060102-150405.000")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.path = path
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

// Event is one line of the match log.
type Event struct {
	Frame uint64 `json:"frame"`
	Tick  uint64 `json:"tick,omitempty"`
	Type  string `json:"type"`

	Phase     string             `json:"phase,omitempty"`
	Winner    string             `json:"winner,omitempty"`
	Loser     string             `json:"loser,omitempty"`
	Score     float64            `json:"score,omitempty"`
	NewRecord bool               `json:"new_record,omitempty"`
	Agents    []match.AgentState `json:"agents,omitempty"`
}

const (
	EventPhase       = "phase"
	EventElimination = "elimination"
	EventFinished    = "finished"
)

// MatchLogger writes phase changes, eliminations and the final result. It
// implements match.Listener; write errors are kept and reported by Close.
type MatchLogger struct {
	w *JSONLZstdWriter

	phase   match.Phase
	started bool
	err     error
}

func NewMatchLogger(dir string) *MatchLogger {
	return &MatchLogger{w: NewJSONLZstdWriter(dir, "match")}
}

func (l *MatchLogger) Path() string { return l.w.Path() }

func (l *MatchLogger) Observe(s match.Snapshot) {
	if !l.started || s.Phase != l.phase {
		ev := Event{Frame: s.Frame, Tick: s.Tick, Type: EventPhase, Phase: s.Phase.String()}
		if !l.started {
			ev.Agents = s.Agents
		}
		l.write(ev)
		l.started = true
		l.phase = s.Phase
	}
	for _, e := range s.Eliminations {
		l.write(Event{Frame: s.Frame, Tick: e.Tick, Type: EventElimination, Winner: e.Winner, Loser: e.Loser})
	}
	if s.Phase == match.PhaseFinished && s.Winner != nil {
		l.write(Event{Frame: s.Frame, Tick: s.Tick, Type: EventFinished, Winner: s.Winner.Name, Score: s.Winner.Score, NewRecord: s.NewRecord})
		if err := l.w.Flush(); err != nil && l.err == nil {
			l.err = err
		}
	}
}

func (l *MatchLogger) write(ev Event) {
	if err := l.w.Write(ev); err != nil && l.err == nil {
		l.err = err
	}
}

// Close returns the first write error, if any, or the close error.
func (l *MatchLogger) Close() error {
	err := l.w.Close()
	if l.err != nil {
		return l.err
	}
	return err
}

// ReadEvents decodes a match log written by MatchLogger.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	var out []Event
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

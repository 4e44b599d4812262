// Package roster turns the upstream ranking output into the ordered list of
// competitors a match is started with.
package roster

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid is returned when a players document does not match the schema.
var ErrInvalid = errors.New("invalid players document")

// PlaceholderPrefix names synthetic entries added by Pad.
const PlaceholderPrefix = "CPU Knight #"

// Competitor is one ranked entrant. It is never mutated after creation.
type Competitor struct {
	Name        string
	Score       float64
	Placeholder bool
}

//go:embed players.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource("players.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("players.schema.json")
	})
	return schema, schemaErr
}

type playerRecord struct {
	User  string  `json:"user"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Decode reads a players.json document: an array of objects carrying a
// "user" (or "name") and a numeric "score". Unknown fields are ignored.
func Decode(r io.Reader) ([]Competitor, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("players schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var recs []playerRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	out := make([]Competitor, 0, len(recs))
	for _, rec := range recs {
		name := rec.User
		if name == "" {
			name = rec.Name
		}
		out = append(out, Competitor{Name: Sanitize(name), Score: rec.Score})
	}
	return out, nil
}

// LoadFile decodes the players document at path.
func LoadFile(path string) ([]Competitor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Sanitize strips punctuation and symbols, keeps at most 12 runes and falls
// back to "Player" when nothing is left.
func Sanitize(name string) string {
	s := nonWord.ReplaceAllString(name, "")
	if r := []rune(s); len(r) > 12 {
		s = string(r[:12])
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "Player"
	}
	return s
}

// Rank orders competitors by descending score, keeping input order among
// equal scores, and keeps at most max entries (0 keeps all).
func Rank(cs []Competitor, max int) []Competitor {
	out := append([]Competitor(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// Pad appends score-0 placeholders until the list holds at least min entries.
func Pad(cs []Competitor, min int) []Competitor {
	out := append([]Competitor(nil), cs...)
	for len(out) < min {
		out = append(out, Competitor{
			Name:        fmt.Sprintf("%s%d", PlaceholderPrefix, len(out)+1),
			Score:       0,
			Placeholder: true,
		})
	}
	return out
}

// Prepare ranks, trims and pads in one step, the way the upstream ranking
// step hands competitors to a match.
func Prepare(cs []Competitor, min, max int) []Competitor {
	return Pad(Rank(cs, max), min)
}

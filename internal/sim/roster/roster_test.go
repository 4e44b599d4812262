package roster

import (
	"errors"
	"strings"
	"testing"
)

func TestDecode_PlayersJSON(t *testing.T) {
	cs, err := Decode(strings.NewReader(`[
	  {"user":"Alice!!","likes":3,"score":100.5},
	  {"name":"bob","score":50},
	  {"user":"","score":1}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("len: got %d", len(cs))
	}
	if cs[0].Name != "Alice" || cs[0].Score != 100.5 {
		t.Fatalf("first: %+v", cs[0])
	}
	if cs[1].Name != "bob" {
		t.Fatalf("name alias: %+v", cs[1])
	}
	if cs[2].Name != "Player" {
		t.Fatalf("empty name fallback: %+v", cs[2])
	}
}

func TestDecode_RejectsSchemaViolations(t *testing.T) {
	for _, doc := range []string{
		`{"user":"a","score":1}`,
		`[{"user":"a"}]`,
		`[{"score":3}]`,
		`[{"user":"a","score":"high"}]`,
		`not json`,
	} {
		if _, err := Decode(strings.NewReader(doc)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", doc, err)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":     "Hello World",
		"abcdefghijklmnopq": "abcdefghijkl",
		"  spaced  ":        "spaced",
		"☆☆☆":               "Player",
		"under_score 42":    "under_score",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q): got %q want %q", in, got, want)
		}
	}
}

func TestPrepare_PadsTwoUniqueCompetitors(t *testing.T) {
	got := Prepare([]Competitor{{Name: "B", Score: 50}, {Name: "A", Score: 100}}, 3, 4)
	if len(got) != 3 {
		t.Fatalf("len: got %d want 3", len(got))
	}
	if got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("ranking: %+v", got)
	}
	p := got[2]
	if !p.Placeholder || p.Score != 0 || p.Name != "CPU Knight #3" {
		t.Fatalf("placeholder: %+v", p)
	}
}

func TestPrepare_KeepsTopEntrants(t *testing.T) {
	in := []Competitor{{"a", 1, false}, {"b", 5, false}, {"c", 5, false}, {"d", 3, false}, {"e", 9, false}}
	got := Prepare(in, 3, 4)
	want := []string{"e", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("len: got %d", len(got))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("pos %d: got %s want %s", i, got[i].Name, want[i])
		}
	}
}

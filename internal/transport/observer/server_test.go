package observer

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coliseum.run/internal/observerproto"
	"coliseum.run/internal/sim/match"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := tuning.Defaults()
	cs := []roster.Competitor{{Name: "A", Score: 100}, {Name: "B", Score: 50}, {Name: "CPU Knight #3", Placeholder: true}}
	s := NewServer(&cfg, cs, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/ws", s.WSHandler())
	hs := httptest.NewServer(mux)
	t.Cleanup(hs.Close)
	return s, hs
}

func dial(t *testing.T, hs *httptest.Server, every int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	sub := observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, EveryNFrames: every}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSessions(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Sessions() != n {
		if time.Now().After(deadline) {
			t.Fatalf("sessions: got %d want %d", s.Sessions(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readType(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return head.Type, b
}

func TestBootstrap(t *testing.T) {
	_, hs := newTestServer(t)
	resp, err := http.Get(hs.URL + "/v1/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.ProtocolVersion != observerproto.Version || boot.CanvasW != 900 || boot.CanvasH != 600 || boot.FPS != 60 {
		t.Fatalf("bootstrap: %+v", boot)
	}
	if len(boot.Competitors) != 3 || !boot.Competitors[2].Placeholder || len(boot.Platforms) != 3 {
		t.Fatalf("bootstrap roster/platforms: %+v", boot)
	}
	if boot.Phase != "countdown" {
		t.Fatalf("phase: %s", boot.Phase)
	}
}

func TestBootstrap_RejectsRemoteAndWrongMethod(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("post: %d", rec.Code)
	}
}

func TestWS_RejectsBadHandshake(t *testing.T) {
	_, hs := newTestServer(t)
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: "9.9"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestWS_StreamsTicksAndFinish(t *testing.T) {
	s, hs := newTestServer(t)
	conn := dial(t, hs, 2)
	waitSessions(t, s, 1)

	agents := []match.AgentState{{Name: "A", Alive: true, Champion: true}, {Name: "B", Alive: true}}
	s.Observe(match.Snapshot{Frame: 1, Phase: match.PhaseCountdown, Countdown: 3, Agents: agents})
	s.Observe(match.Snapshot{Frame: 2, Phase: match.PhaseCountdown, Countdown: 3, Agents: agents})
	s.Observe(match.Snapshot{Frame: 3, Phase: match.PhaseCountdown, Countdown: 3, Agents: agents})
	s.Observe(match.Snapshot{Frame: 5, Phase: match.PhaseCountdown, Countdown: 3, Agents: agents,
		Eliminations: []match.Elimination{{Tick: 9, Winner: "A", Loser: "B"}}})
	s.Observe(match.Snapshot{Frame: 7, Phase: match.PhaseFinished, Agents: agents,
		Winner: &match.Winner{Name: "A", Score: 100}, NewRecord: false})

	typ, b := readType(t, conn)
	var tick observerproto.TickMsg
	_ = json.Unmarshal(b, &tick)
	if typ != observerproto.TypeTick || tick.Frame != 2 || len(tick.Agents) != 2 || tick.Countdown != 3 {
		t.Fatalf("first tick: %s %+v", typ, tick)
	}

	typ, b = readType(t, conn)
	tick = observerproto.TickMsg{}
	_ = json.Unmarshal(b, &tick)
	if typ != observerproto.TypeTick || tick.Frame != 5 || len(tick.Eliminations) != 1 || tick.Eliminations[0].Loser != "B" {
		t.Fatalf("elimination tick: %s %+v", typ, tick)
	}

	typ, b = readType(t, conn)
	var fin observerproto.FinishedMsg
	_ = json.Unmarshal(b, &fin)
	if typ != observerproto.TypeFinished || fin.Winner != "A" || fin.Score != 100 {
		t.Fatalf("finished: %s %+v", typ, fin)
	}
}

func TestWS_LateObserverGetsResult(t *testing.T) {
	s, hs := newTestServer(t)
	s.Observe(match.Snapshot{Frame: 10, Phase: match.PhaseFinished, Winner: &match.Winner{Name: "A", Score: 100}})

	conn := dial(t, hs, 1)
	typ, b := readType(t, conn)
	var fin observerproto.FinishedMsg
	_ = json.Unmarshal(b, &fin)
	if typ != observerproto.TypeFinished || fin.Winner != "A" {
		t.Fatalf("late observer: %s %+v", typ, fin)
	}
}

func TestSendLatest_DropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("1"))
	sendLatest(ch, []byte("2"))
	sendLatest(ch, []byte("3"))
	if a, b := string(<-ch), string(<-ch); a != "2" || b != "3" {
		t.Fatalf("queue: %s %s", a, b)
	}
}

package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"coliseum.run/internal/observerproto"
	"coliseum.run/internal/sim/match"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
)

type session struct {
	every uint64
	out   chan []byte
}

// Server streams match state to websocket observers. It implements
// match.Listener; Observe never blocks the match loop.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	boot     observerproto.BootstrapResponse
	sessions map[string]*session
	finished []byte
}

func NewServer(cfg *tuning.Tuning, cs []roster.Competitor, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	boot := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		CanvasW:         int(cfg.CanvasW),
		CanvasH:         int(cfg.CanvasH),
		FPS:             cfg.FPS,
		Phase:           match.PhaseCountdown.String(),
	}
	for _, c := range cs {
		boot.Competitors = append(boot.Competitors, observerproto.Competitor{Name: c.Name, Score: c.Score, Placeholder: c.Placeholder})
	}
	for _, p := range cfg.Platforms {
		boot.Platforms = append(boot.Platforms, observerproto.Platform{X: p.X, Y: p.Y, W: p.W, H: p.H})
	}
	return &Server{
		log:  logger,
		boot: boot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		sessions: map[string]*session{},
	}
}

// Observe fans the snapshot out to every session.
func (s *Server) Observe(snap match.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phaseChanged := snap.Phase.String() != s.boot.Phase
	s.boot.Phase = snap.Phase.String()
	s.boot.Frame = snap.Frame

	if snap.Phase == match.PhaseFinished && snap.Winner != nil && s.finished == nil {
		s.finished, _ = json.Marshal(observerproto.FinishedMsg{
			Type:            observerproto.TypeFinished,
			ProtocolVersion: observerproto.Version,
			Frame:           snap.Frame,
			Winner:          snap.Winner.Name,
			Score:           snap.Winner.Score,
			NewRecord:       snap.NewRecord,
		})
		for _, sess := range s.sessions {
			sendLatest(sess.out, s.finished)
		}
		return
	}

	var tick []byte
	for _, sess := range s.sessions {
		if !phaseChanged && len(snap.Eliminations) == 0 && snap.Frame%sess.every != 0 {
			continue
		}
		if tick == nil {
			tick, _ = json.Marshal(tickMsg(snap))
		}
		sendLatest(sess.out, tick)
	}
}

func tickMsg(snap match.Snapshot) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Frame:           snap.Frame,
		Tick:            snap.Tick,
		Phase:           snap.Phase.String(),
		Countdown:       snap.Countdown,
		Agents:          make([]observerproto.AgentState, 0, len(snap.Agents)),
	}
	for _, a := range snap.Agents {
		msg.Agents = append(msg.Agents, observerproto.AgentState{
			Name: a.Name, Alive: a.Alive, Champion: a.Champion,
			X: a.X, Y: a.Y, VX: a.VX, VY: a.VY,
			Sprite: a.Sprite, Frame: a.Frame,
		})
	}
	for _, e := range snap.Eliminations {
		msg.Eliminations = append(msg.Eliminations, observerproto.Elimination{Tick: e.Tick, Winner: e.Winner, Loser: e.Loser})
	}
	return msg
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.Lock()
		resp := s.boot
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		sess := &session{every: normalizeEvery(sub.EveryNFrames), out: make(chan []byte, 8)}
		s.join(sid, sess)
		defer s.leave(sid)
		s.log.Printf("observer %s joined from %s", sid, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			s.mu.Lock()
			sess.every = normalizeEvery(sub.EveryNFrames)
			s.mu.Unlock()
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// join registers the session. Observers that arrive after the end get the
// result straight away.
func (s *Server) join(id string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
	if s.finished != nil {
		sendLatest(sess.out, s.finished)
	}
}

func (s *Server) leave(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sessions returns the number of connected observers.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func normalizeEvery(n int) uint64 {
	if n <= 0 {
		return 1
	}
	if n > 600 {
		return 600
	}
	return uint64(n)
}

// sendLatest enqueues b, dropping the oldest queued message when full.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

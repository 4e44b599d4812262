package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/audio"
	"coliseum.run/internal/persistence/capture"
	persistlog "coliseum.run/internal/persistence/log"
	"coliseum.run/internal/render"
	"coliseum.run/internal/sim/arena"
	"coliseum.run/internal/sim/ledger"
	"coliseum.run/internal/sim/match"
	"coliseum.run/internal/sim/roster"
	"coliseum.run/internal/sim/tuning"
	"coliseum.run/internal/transport/observer"
)

func main() {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(2)
	}

	var (
		playersPath = flag.String("players", "players.json", "competitor list (JSON array of {user, score})")
		tuningPath  = flag.String("tuning", os.Getenv("COLISEUM_TUNING"), "path to tuning.yaml (default: builtin tuning)")
		assetsDir   = flag.String("assets", os.Getenv("COLISEUM_ASSETS"), "directory containing images/*.png (default: builtin sprites)")
		seed        = flag.Int64("seed", envInt64("COLISEUM_SEED", 0), "random seed (0: time based)")
		surface     = flag.String("surface", "terminal", "drawing surface: terminal or headless")
		capturePath = flag.String("capture", "", "write presented frames to this zstd capture (optional)")
		eventsDir   = flag.String("events", "", "write a match event log into this directory (optional)")
		observeAddr = flag.String("observe", os.Getenv("COLISEUM_OBSERVE"), "observer http listen address, loopback only (empty to disable)")
		withAudio   = flag.Bool("audio", true, "play audio cues when an output device is available")
		logPath     = flag.String("log", "", "log file (default: stderr, silenced while the terminal screen is up)")
	)
	flag.Parse()

	logOut, closeLog, err := openLog(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log:", err)
		os.Exit(2)
	}
	defer closeLog()
	con := newConsole(logOut, os.Stderr)
	logger := con.logger

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		con.fatalf("load tuning: %v", err)
	}

	raw, err := roster.LoadFile(*playersPath)
	if err != nil {
		con.fatalf("load players: %v", err)
	}
	cs := roster.Prepare(raw, tune.MinCompetitors, tune.MaxEntrants)
	logger.Printf("competitors: %s", names(cs))

	ctx, cancel := signalContext()
	defer cancel()

	bundle := assets.Builtin()
	if dir := strings.TrimSpace(*assetsDir); dir != "" {
		bundle, err = assets.Load(ctx, os.DirFS(dir), assets.DefaultPaths())
		if err != nil {
			con.fatalf("load sprites: %v", err)
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	logger.Printf("seed %d", *seed)

	var surfaces []render.Surface
	var cw *capture.Writer
	if *capturePath != "" {
		cw, err = capture.Create(*capturePath, int(tune.CanvasW), int(tune.CanvasH), tune.FPS)
		if err != nil {
			con.fatalf("open capture: %v", err)
		}
		defer func() {
			if err := cw.Close(); err != nil {
				logger.Printf("close capture: %v", err)
			}
		}()
	}

	switch *surface {
	case "terminal":
		screen, err := tcell.NewScreen()
		if err != nil {
			con.fatalf("terminal: %v", err)
		}
		if err := screen.Init(); err != nil {
			con.fatalf("terminal: %v", err)
		}
		// The screen must be finalised before anything is printed to stdout.
		con.attach(screen.Fini)
		defer con.detach()
		go pollQuit(screen, cancel)
		surfaces = append(surfaces, render.NewTerminal(screen, int(tune.CanvasW), int(tune.CanvasH)))
		if cw != nil {
			surfaces = append(surfaces, render.NewCanvas(int(tune.CanvasW), int(tune.CanvasH), cw))
		}
	case "headless":
		var sink render.FrameSink
		if cw != nil {
			sink = cw
		}
		surfaces = append(surfaces, render.NewCanvas(int(tune.CanvasW), int(tune.CanvasH), sink))
	default:
		con.fatalf("unknown surface %q (want terminal or headless)", *surface)
	}

	var listeners []match.Listener
	if *eventsDir != "" {
		ml := persistlog.NewMatchLogger(*eventsDir)
		defer func() {
			if err := ml.Close(); err != nil {
				logger.Printf("close event log: %v", err)
			}
			if p := ml.Path(); p != "" {
				logger.Printf("event log %s", p)
			}
		}()
		listeners = append(listeners, ml)
	}
	if addr := strings.TrimSpace(*observeAddr); addr != "" {
		obs := observer.NewServer(&tune, cs, logger)
		listeners = append(listeners, obs)
		srv := startObserver(ctx, addr, obs, logger)
		defer srv.Close()
	}

	var cues audio.Cues = audio.Nop{}
	if *withAudio {
		if b, err := audio.NewBeep(); err != nil {
			// Non-fatal, the match runs without sound.
			logger.Printf("audio disabled: %v", err)
		} else {
			defer b.Close()
			cues = b
		}
	}

	m, err := match.New(match.Config{
		Tuning:      &tune,
		Competitors: cs,
		Bundle:      bundle,
		Surface:     render.Tee(surfaces...),
		Ledger:      ledger.Default(tune.Ledger.Entries),
		Rand:        arena.NewRand(*seed),
		Cues:        cues,
		Listeners:   listeners,
		Logger:      logger,
	})
	if err != nil {
		con.fatalf("new match: %v", err)
	}

	w, err := m.Run(ctx, nil).Wait(ctx)
	con.detach()
	if err != nil {
		logger.Printf("match aborted: %v", err)
		return
	}
	// Consumed by the recording harness.
	fmt.Fprintf(os.Stdout, "WINNER %s\n", w.Name)
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func startObserver(ctx context.Context, addr string, obs *observer.Server, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obs.WSHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()
	go func() {
		logger.Printf("observer listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("observer: %v", err)
		}
	}()
	return srv
}

// pollQuit cancels the match on Escape, Ctrl-C or q. It returns when the
// screen is finalised.
func pollQuit(screen tcell.Screen, cancel context.CancelFunc) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		if k, ok := ev.(*tcell.EventKey); ok {
			if k.Key() == tcell.KeyEscape || k.Key() == tcell.KeyCtrlC || k.Rune() == 'q' {
				cancel()
				return
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func names(cs []roster.Competitor) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, fmt.Sprintf("%s(%v)", c.Name, c.Score))
	}
	return strings.Join(parts, ", ")
}

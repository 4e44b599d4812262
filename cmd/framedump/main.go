package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"coliseum.run/internal/persistence/capture"
	persistlog "coliseum.run/internal/persistence/log"
)

func main() {
	var (
		capPath   = flag.String("capture", "", "path to a frame capture")
		outDir    = flag.String("out", "./frames", "directory for numbered PNG files")
		every     = flag.Int("every", 1, "keep every Nth frame")
		limit     = flag.Int("limit", 0, "stop after this many written frames (0: all)")
		eventsLog = flag.String("events", "", "match event log to summarise (optional)")
	)
	flag.Parse()

	if *capPath == "" && *eventsLog == "" {
		fmt.Fprintln(os.Stderr, "missing -capture or -events")
		os.Exit(2)
	}

	if *eventsLog != "" {
		if err := summarise(*eventsLog); err != nil {
			fmt.Fprintln(os.Stderr, "events:", err)
			os.Exit(1)
		}
	}
	if *capPath == "" {
		return
	}

	r, err := capture.Open(*capPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open capture:", err)
		os.Exit(1)
	}
	defer r.Close()

	h := r.Header()
	fmt.Printf("capture v%d %dx%d @ %d fps\n", h.Version, h.Width, h.Height, h.FPS)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir:", err)
		os.Exit(1)
	}

	n := *every
	if n <= 0 {
		n = 1
	}
	var read, written int
	for {
		img, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		read++
		if (read-1)%n != 0 {
			continue
		}
		path := filepath.Join(*outDir, fmt.Sprintf("frame-%06d.png", written))
		if err := writePNG(path, img); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
		written++
		if *limit > 0 && written >= *limit {
			break
		}
	}
	fmt.Printf("frames ok: read=%d written=%d dir=%s\n", read, written, *outDir)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	if err := png.Encode(bw, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func summarise(path string) error {
	evs, err := persistlog.ReadEvents(path)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		switch ev.Type {
		case persistlog.EventPhase:
			fmt.Printf("frame %6d  phase %s\n", ev.Frame, ev.Phase)
		case persistlog.EventElimination:
			fmt.Printf("frame %6d  tick %d  %s eliminated %s\n", ev.Frame, ev.Tick, ev.Winner, ev.Loser)
		case persistlog.EventFinished:
			fmt.Printf("frame %6d  winner %s (%v) new_record=%v\n", ev.Frame, ev.Winner, ev.Score, ev.NewRecord)
		}
	}
	return nil
}

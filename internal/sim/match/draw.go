package match

import (
	"fmt"
	"strconv"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/render"
	"coliseum.run/internal/sim/arena"
	"coliseum.run/internal/sim/ledger"
	"coliseum.run/internal/sim/tuning"
)

var textColor = render.Hex("#fff")

const (
	bannerSize  = 48
	recordSize  = 64
	detailSize  = 32
	riderDrop   = 12
	tableStartY = 140
	tableRowH   = 36
	columnRows  = 5
	tableInset  = 40
	nameRunes   = 4
)

func (m *Match) drawCountdown(sec int) {
	m.arena.Render(m.surface)
	m.surface.DrawText(fmt.Sprintf("Comment Coliseum Starts In: %d", sec),
		m.cfg.CanvasW/2, 80, bannerSize, render.AlignCenter, textColor)
}

// drawVictory shows the winner enlarged in the middle of the empty arena.
func (m *Match) drawVictory(elapsed int) {
	m.arena.DrawBackground(m.surface)
	fly := m.bundle.Fly
	img := fly[(elapsed/m.cfg.Animation.VictoryFramePeriod)%len(fly)]
	arena.DrawRiderPose(m.surface, m.bundle.Rider, img,
		m.cfg.CanvasW/2, m.cfg.CanvasH/2, m.cfg.Animation.VictoryScale, riderDrop, m.champion.VX < 0)
	m.surface.DrawText(m.champion.User+" – Victory!",
		m.cfg.CanvasW/2, 80, bannerSize, render.AlignCenter, textColor)
}

func (m *Match) drawNewHighScore() {
	m.arena.DrawBackground(m.surface)
	m.surface.DrawText("★ NEW HIGH SCORE! ★",
		m.cfg.CanvasW/2, m.cfg.CanvasH/2-30, recordSize, render.AlignCenter, textColor)
	m.surface.DrawText(m.champion.User+": "+formatScore(m.champion.Score),
		m.cfg.CanvasW/2, m.cfg.CanvasH/2+26, detailSize, render.AlignCenter, textColor)
}

func (m *Match) drawHighScoreTable(entries []ledger.Entry) {
	m.arena.DrawBackground(m.surface)
	m.surface.DrawText("HIGH SCORES", m.cfg.CanvasW/2, 70, bannerSize, render.AlignCenter, textColor)
	for i, row := range tableRows(entries, m.cfg.Ledger.Entries, m.cfg.Ledger.DefaultName) {
		x := float64(tableInset)
		if i >= columnRows {
			x = m.cfg.CanvasW/2 + tableInset
		}
		y := tableStartY + float64(i%columnRows)*tableRowH
		m.surface.DrawText(row, x, y, detailSize, render.AlignLeft, textColor)
	}
	m.walker.draw(m.surface, m.cfg, m.bundle)
}

// tableRows formats n ranked rows, padding missing ranks with defaultName and
// a score of 0.
func tableRows(entries []ledger.Entry, n int, defaultName string) []string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		e := ledger.Entry{Name: defaultName}
		if i < len(entries) {
			e = entries[i]
		}
		name := []rune(e.Name)
		if len(name) > nameRunes {
			name = name[:nameRunes]
		}
		rows = append(rows, fmt.Sprintf("%02d. %s  %s", i+1, string(name), formatScore(e.Score)))
	}
	return rows
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// walker paces a small bird along the bottom of the high-score table.
type walker struct {
	x     float64
	dir   float64
	ticks int
}

func (w *walker) step(cfg *tuning.Tuning, b *assets.Bundle) {
	an := cfg.Animation
	w.ticks++
	w.x += w.dir * an.WalkerSpeed
	fw, _ := b.FrameSize()
	maxX := cfg.CanvasW - float64(fw)*an.SpriteScale - an.WalkerMargin
	if w.x > maxX {
		w.x = maxX
		w.dir = -1
	}
	if w.x < an.WalkerMargin {
		w.x = an.WalkerMargin
		w.dir = 1
	}
}

func (w *walker) draw(s render.Surface, cfg *tuning.Tuning, b *assets.Bundle) {
	an := cfg.Animation
	frame := b.Walk[(w.ticks/an.WalkerFramePeriod)%len(b.Walk)]
	fb := frame.Bounds()
	bw := float64(fb.Dx()) * an.SpriteScale
	bh := float64(fb.Dy()) * an.SpriteScale
	s.DrawImage(frame, render.Rect{X: w.x, Y: cfg.CanvasH - bh - an.WalkerMargin, W: bw, H: bh}, w.dir < 0)
}

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"
)

// Terminal draws the logical canvas onto a tcell screen, one cell per block
// of logical units. Sprites are point-sampled at cell centres; text is not
// scaled.
type Terminal struct {
	screen tcell.Screen
	w, h   int
}

// NewTerminal wraps an initialised screen. w and h are the logical canvas size.
func NewTerminal(screen tcell.Screen, w, h int) *Terminal {
	return &Terminal{screen: screen, w: w, h: h}
}

func (t *Terminal) Size() (int, int) { return t.w, t.h }

// cellScale returns logical units per cell on each axis.
func (t *Terminal) cellScale() (float64, float64) {
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	return float64(t.w) / float64(cols), float64(t.h) / float64(rows)
}

func (t *Terminal) Clear(c color.Color) {
	t.screen.Fill(' ', tcell.StyleDefault.Background(tcellColor(c)))
}

func (t *Terminal) FillRect(r Rect, c color.Color) {
	ux, uy := t.cellScale()
	if ux == 0 {
		return
	}
	style := tcell.StyleDefault.Background(tcellColor(c))
	x0, y0, x1, y1 := t.cellSpan(r, ux, uy)
	for cy := y0; cy < y1; cy++ {
		for cx := x0; cx < x1; cx++ {
			t.screen.SetContent(cx, cy, ' ', nil, style)
		}
	}
}

func (t *Terminal) DrawImage(img image.Image, dst Rect, flipX bool) {
	ux, uy := t.cellScale()
	sr := img.Bounds()
	if ux == 0 || sr.Empty() || dst.W <= 0 || dst.H <= 0 {
		return
	}
	x0, y0, x1, y1 := t.cellSpan(dst, ux, uy)
	for cy := y0; cy < y1; cy++ {
		ly := (float64(cy) + 0.5) * uy
		v := (ly - dst.Y) / dst.H
		if v < 0 || v >= 1 {
			continue
		}
		for cx := x0; cx < x1; cx++ {
			lx := (float64(cx) + 0.5) * ux
			u := (lx - dst.X) / dst.W
			if u < 0 || u >= 1 {
				continue
			}
			if flipX {
				u = 1 - u
			}
			px := sr.Min.X + int(u*float64(sr.Dx()))
			py := sr.Min.Y + int(v*float64(sr.Dy()))
			_, _, _, a := img.At(px, py).RGBA()
			if a < 0x8000 {
				continue
			}
			t.screen.SetContent(cx, cy, ' ', nil, tcell.StyleDefault.Background(tcellColor(img.At(px, py))))
		}
	}
}

func (t *Terminal) DrawText(text string, x, y, size float64, align Align, c color.Color) {
	ux, uy := t.cellScale()
	if ux == 0 {
		return
	}
	runes := []rune(text)
	col := int(math.Floor(x / ux))
	switch align {
	case AlignCenter:
		col -= len(runes) / 2
	case AlignRight:
		col -= len(runes)
	}
	row := int(math.Floor((y - size/2) / uy))
	cols, rows := t.screen.Size()
	if row < 0 || row >= rows {
		return
	}
	fg := tcellColor(c)
	for i, r := range runes {
		cx := col + i
		if cx < 0 || cx >= cols {
			continue
		}
		_, _, style, _ := t.screen.GetContent(cx, row)
		t.screen.SetContent(cx, row, r, nil, style.Foreground(fg))
	}
}

func (t *Terminal) Present() error {
	t.screen.Show()
	return nil
}

func (t *Terminal) cellSpan(r Rect, ux, uy float64) (x0, y0, x1, y1 int) {
	cols, rows := t.screen.Size()
	x0 = clampInt(int(math.Floor(r.X/ux)), 0, cols)
	y0 = clampInt(int(math.Floor(r.Y/uy)), 0, rows)
	x1 = clampInt(int(math.Ceil((r.X+r.W)/ux)), 0, cols)
	y1 = clampInt(int(math.Ceil((r.Y+r.H)/uy)), 0, rows)
	return
}

func tcellColor(c color.Color) tcell.Color {
	r, g, b, _ := c.RGBA()
	return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package render provides the drawable surfaces a match paints into. All
// coordinates are logical units of the arena canvas (900x600 by default);
// each surface maps them onto its own pixels or cells.
package render

import (
	"errors"
	"image"
	"image/color"
)

// Rect is an axis-aligned rectangle in logical units.
type Rect struct {
	X, Y, W, H float64
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Surface is the drawing target. Text is positioned by its baseline.
type Surface interface {
	Size() (w, h int)
	Clear(c color.Color)
	FillRect(r Rect, c color.Color)
	DrawImage(img image.Image, dst Rect, flipX bool)
	DrawText(text string, x, y, size float64, align Align, c color.Color)
	Present() error
}

// FrameSink receives every presented raster frame. The frame is reused by the
// canvas; sinks must copy what they keep.
type FrameSink interface {
	WriteFrame(frame *image.RGBA) error
}

// Hex parses "#rgb" or "#rrggbb". Anything else is opaque black.
func Hex(s string) color.RGBA {
	c := color.RGBA{A: 0xff}
	if len(s) == 0 || s[0] != '#' {
		return c
	}
	s = s[1:]
	nib := func(b byte) uint8 {
		switch {
		case b >= '0' && b <= '9':
			return b - '0'
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10
		}
		return 0
	}
	switch len(s) {
	case 3:
		c.R = nib(s[0]) * 17
		c.G = nib(s[1]) * 17
		c.B = nib(s[2]) * 17
	case 6:
		c.R = nib(s[0])<<4 | nib(s[1])
		c.G = nib(s[2])<<4 | nib(s[3])
		c.B = nib(s[4])<<4 | nib(s[5])
	}
	return c
}

type tee []Surface

// Tee fans every call out to all surfaces. Size reports the first one.
func Tee(surfaces ...Surface) Surface {
	out := make(tee, 0, len(surfaces))
	for _, s := range surfaces {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (t tee) Size() (int, int) {
	if len(t) == 0 {
		return 0, 0
	}
	return t[0].Size()
}

func (t tee) Clear(c color.Color) {
	for _, s := range t {
		s.Clear(c)
	}
}

func (t tee) FillRect(r Rect, c color.Color) {
	for _, s := range t {
		s.FillRect(r, c)
	}
}

func (t tee) DrawImage(img image.Image, dst Rect, flipX bool) {
	for _, s := range t {
		s.DrawImage(img, dst, flipX)
	}
}

func (t tee) DrawText(text string, x, y, size float64, align Align, c color.Color) {
	for _, s := range t {
		s.DrawText(text, x, y, size, align, c)
	}
}

func (t tee) Present() error {
	var errs []error
	for _, s := range t {
		if err := s.Present(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package render

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Canvas is an in-memory RGBA surface with one pixel per logical unit. It is
// what the recording path observes.
type Canvas struct {
	img  *image.RGBA
	sink FrameSink
	// Frames counts successful presents.
	Frames int
}

func NewCanvas(w, h int, sink FrameSink) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h)), sink: sink}
}

// Image exposes the backing frame. It changes with every draw call.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *Canvas) FillRect(r Rect, col color.Color) {
	draw.Draw(c.img, pixelRect(r), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *Canvas) DrawImage(img image.Image, dst Rect, flipX bool) {
	sr := img.Bounds()
	if sr.Empty() || dst.W <= 0 || dst.H <= 0 {
		return
	}
	sx := dst.W / float64(sr.Dx())
	sy := dst.H / float64(sr.Dy())
	m := f64.Aff3{
		sx, 0, dst.X - sx*float64(sr.Min.X),
		0, sy, dst.Y - sy*float64(sr.Min.Y),
	}
	if flipX {
		m[0] = -sx
		m[2] = dst.X + dst.W + sx*float64(sr.Min.X)
	}
	draw.NearestNeighbor.Transform(c.img, m, img, sr, draw.Over, nil)
}

const glyphHeight = 13

// The 7x13 face is ASCII only. Dashes fold to '-' and stars are painted as
// polygons into their cell.
var dashFold = strings.NewReplacer("\u2013", "-", "\u2014", "-")

const starRune = '\u2605'

// DrawText renders with the 7x13 bitmap face scaled to size pixels.
func (c *Canvas) DrawText(text string, x, y, size float64, align Align, col color.Color) {
	face := basicfont.Face7x13
	runes := []rune(dashFold.Replace(text))
	var stars []int
	for i, r := range runes {
		if r == starRune {
			stars = append(stars, i)
			runes[i] = ' '
		}
	}
	text = string(runes)
	adv := font.MeasureString(face, text).Ceil()
	if adv <= 0 || size <= 0 {
		return
	}
	glyphs := image.NewRGBA(image.Rect(0, 0, adv, glyphHeight))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)
	for _, i := range stars {
		paintStar(glyphs, i*face.Advance, face.Ascent, col)
	}

	scale := size / glyphHeight
	w := float64(adv) * scale
	left := x
	switch align {
	case AlignCenter:
		left = x - w/2
	case AlignRight:
		left = x - w
	}
	top := y - float64(face.Ascent)*scale
	dst := image.Rect(
		int(math.Round(left)), int(math.Round(top)),
		int(math.Round(left+w)), int(math.Round(top+size)),
	)
	draw.NearestNeighbor.Scale(c.img, dst, glyphs, glyphs.Bounds(), draw.Over, nil)
}

// paintStar fills a five-pointed star in the glyph cell starting at x0,
// resting on the baseline.
func paintStar(dst *image.RGBA, x0, ascent int, col color.Color) {
	const outer, inner = 3.5, 1.5
	cx := float64(x0) + 3.5
	cy := float64(ascent) - 4.5
	var pts [10][2]float64
	for k := range pts {
		r := outer
		if k%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(k)*math.Pi/5
		pts[k] = [2]float64{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	for py := 0; py < glyphHeight; py++ {
		for px := x0; px < x0+7; px++ {
			if insidePolygon(pts[:], float64(px)+0.5, float64(py)+0.5) {
				dst.Set(px, py, col)
			}
		}
	}
}

// insidePolygon is the even-odd rule.
func insidePolygon(pts [][2]float64, x, y float64) bool {
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		xi, yi := pts[i][0], pts[i][1]
		xj, yj := pts[j][0], pts[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}

func (c *Canvas) Present() error {
	c.Frames++
	if c.sink == nil {
		return nil
	}
	return c.sink.WriteFrame(c.img)
}

func pixelRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	)
}

package arena

import (
	"image"

	"coliseum.run/internal/assets"
	"coliseum.run/internal/render"
)

var (
	backgroundColor = render.Hex("#000")
	platformColor   = render.Hex("#333")
	labelColor      = render.Hex("#fff")
)

const labelSize = 20

// DrawBackground paints the backdrop and every platform.
func (a *Arena) DrawBackground(s render.Surface) {
	s.Clear(backgroundColor)
	for _, p := range a.platforms {
		s.FillRect(render.Rect{X: p.X, Y: p.Y, W: p.W, H: p.H}, platformColor)
	}
}

// Render draws the background and every living agent.
func (a *Arena) Render(s render.Surface) {
	a.DrawBackground(s)
	for _, g := range a.agents {
		if g.Alive {
			g.Render(s, a.bundle, a.cfg.Animation.SpriteScale)
		}
	}
}

// Render draws the rider behind the bird, mirrored when moving left, and the
// name above the hit box.
func (g *Agent) Render(s render.Surface, b *assets.Bundle, scale float64) {
	img := g.frameImage(b)
	cx := g.X + g.W/2
	cy := g.Y + g.H/2
	flip := g.VX < 0

	DrawRiderPose(s, b.Rider, img, cx, cy, scale, 6*scale, flip)
	s.DrawText(g.User, cx, g.Y-6, labelSize, render.AlignCenter, labelColor)
}

func (g *Agent) frameImage(b *assets.Bundle) image.Image {
	frames := b.Walk
	if g.Sprite == SpriteFly {
		frames = b.Fly
	}
	return frames[g.Frame%len(frames)]
}

// DrawRiderPose draws rider and mount centred on (cx, cy). riderDrop shifts the
// rider down from the mount's top edge.
func DrawRiderPose(s render.Surface, rider, mount image.Image, cx, cy, scale, riderDrop float64, flip bool) {
	mb := mount.Bounds()
	rb := rider.Bounds()
	mw, mh := float64(mb.Dx())*scale, float64(mb.Dy())*scale
	rw, rh := float64(rb.Dx())*scale, float64(rb.Dy())*scale

	s.DrawImage(rider, render.Rect{X: cx - rw/2, Y: cy - mh/2 + riderDrop, W: rw, H: rh}, flip)
	s.DrawImage(mount, render.Rect{X: cx - mw/2, Y: cy - mh/2, W: mw, H: mh}, flip)
}

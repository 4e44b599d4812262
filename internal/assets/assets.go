// Package assets owns the sprite images a match draws with. A Bundle is
// produced once by Load (or Builtin) and handed to the arena and renderers;
// nothing looks sprites up by global key.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ErrAssetMissing is wrapped by every load failure. Missing sprites are fatal.
var ErrAssetMissing = errors.New("asset missing")

// Paths names the files of a bundle inside the asset filesystem.
type Paths struct {
	Walk  []string
	Fly   []string
	Rider string
}

func DefaultPaths() Paths {
	return Paths{
		Walk:  []string{"images/walk1.png", "images/walk2.png", "images/walk3.png", "images/walk4.png"},
		Fly:   []string{"images/fly1.png", "images/fly2.png"},
		Rider: "images/yellow.png",
	}
}

// Bundle is the resolved sprite set.
type Bundle struct {
	Walk  []image.Image
	Fly   []image.Image
	Rider image.Image
}

func (b *Bundle) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil bundle", ErrAssetMissing)
	}
	if len(b.Walk) == 0 {
		return fmt.Errorf("%w: no walk frames", ErrAssetMissing)
	}
	if len(b.Fly) == 0 {
		return fmt.Errorf("%w: no fly frames", ErrAssetMissing)
	}
	if b.Rider == nil {
		return fmt.Errorf("%w: no rider", ErrAssetMissing)
	}
	for i, img := range b.Walk {
		if img == nil {
			return fmt.Errorf("%w: walk frame %d", ErrAssetMissing, i)
		}
	}
	for i, img := range b.Fly {
		if img == nil {
			return fmt.Errorf("%w: fly frame %d", ErrAssetMissing, i)
		}
	}
	return nil
}

// FrameSize is the size of the first walk frame, which defines the hit box.
func (b *Bundle) FrameSize() (w, h int) {
	r := b.Walk[0].Bounds()
	return r.Dx(), r.Dy()
}

// Load decodes every sprite of p from fsys concurrently. Walk and fly frames
// are ordered by path.
func Load(ctx context.Context, fsys fs.FS, p Paths) (*Bundle, error) {
	walkPaths := append([]string(nil), p.Walk...)
	flyPaths := append([]string(nil), p.Fly...)
	sort.Strings(walkPaths)
	sort.Strings(flyPaths)

	b := &Bundle{
		Walk: make([]image.Image, len(walkPaths)),
		Fly:  make([]image.Image, len(flyPaths)),
	}

	g, ctx := errgroup.WithContext(ctx)
	load := func(path string, dst *image.Image) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := decode(fsys, path)
			if err != nil {
				return err
			}
			*dst = img
			return nil
		})
	}
	for i, path := range walkPaths {
		load(path, &b.Walk[i])
	}
	for i, path := range flyPaths {
		load(path, &b.Fly[i])
	}
	load(p.Rider, &b.Rider)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func decode(fsys fs.FS, path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrAssetMissing)
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}
	return img, nil
}

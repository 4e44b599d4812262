package assets

import (
	"image"
	"image/color"
)

// Builtin returns a small procedural sprite set so a match can run without
// image files on disk.
func Builtin() *Bundle {
	b := &Bundle{Rider: paint(riderArt)}
	for _, legs := range walkLegs {
		b.Walk = append(b.Walk, paint(append(append([]string(nil), birdBody...), legs...)))
	}
	for _, wings := range flyWings {
		b.Fly = append(b.Fly, paint(append(append([]string(nil), wings...), flyBody...)))
	}
	return b
}

var palette = map[byte]color.RGBA{
	'b': {0x9a, 0x5b, 0x2e, 0xff}, // body
	'w': {0xd8, 0xc0, 0x8a, 0xff}, // wing
	'k': {0x10, 0x10, 0x10, 0xff}, // beak/eye
	'l': {0xe8, 0xb0, 0x20, 0xff}, // legs
	'y': {0xf0, 0xe0, 0x30, 0xff}, // rider armour
	'g': {0x90, 0x90, 0x98, 0xff}, // lance
}

// Every art row is 20 pixels wide.
var birdBody = []string{
	"....................",
	"..............bbb...",
	".............bbkbkk.",
	".............bbbb...",
	"..bbbbbbbbbbbbbb....",
	".bbwwwwwwwbbbbbb....",
	".bbbwwwwwbbbbbbb....",
	"..bbbbbbbbbbbbb.....",
	"....bbbbbbbbbb......",
	"......bbbbbb........",
}

var walkLegs = [][]string{
	{
		"......l...l.........",
		".....l.....l........",
		"....l.......l.......",
		"...ll.......ll......",
	},
	{
		".......l.l..........",
		"......l...l.........",
		"......l...l.........",
		".....ll...ll........",
	},
	{
		"........l...........",
		"........l...........",
		"........l...........",
		".......lll..........",
	},
	{
		".......l.l..........",
		"........l.l.........",
		"........l..l........",
		".......ll..ll.......",
	},
}

var flyWings = [][]string{
	{
		"...ww...............",
		"....www.............",
		".....wwww...........",
		"......wwww..........",
	},
	{
		"....................",
		"....................",
		"....................",
		"....................",
	},
}

var flyBody = []string{
	"..............bbb...",
	".............bbkbkk.",
	".............bbbb...",
	"..bbbbbbbbbbbbbb....",
	".bbwwwwwwwbbbbbb....",
	".bbbwwwwwbbbbbbb....",
	"..bbbbbbbbbbbbb.....",
	"....bbbbbbbbbb..www.",
	"......bbbbbb...www..",
	".......l..l...ww....",
}

var riderArt = []string{
	"....................",
	"........yyy.........",
	".......yyyyy........",
	".......yykyy....ggg.",
	"........yyy...ggg...",
	"......yyyyyyggg.....",
	".....yyyyyyyy.......",
	".....yyyyyyy........",
	"......yyyyy.........",
	"......yy.yy.........",
}

func paint(rows []string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			if c, ok := palette[row[x]]; ok {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

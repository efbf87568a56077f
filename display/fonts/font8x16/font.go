package font8x16

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Font is the 8x16 boot font: digits, Latin capitals (lowercase folds to
// uppercase), space, and a hollow box for everything else.
//
// It implements tinyfont.Fonter. Concurrent access is not safe due to
// internal glyph reuse.
var Font tinyfont.Fonter = &font8x16{}

const (
	Width  = 8
	Height = 16
)

type font8x16 struct {
	g glyph
}

type glyph struct {
	r rune
}

func (g *glyph) Draw(display drivers.Displayer, x, y int16, c color.RGBA) {
	rows := &glyphData[glyphIndex(g.r)]
	for row := 0; row < len(rows); row++ {
		b := rows[row]
		// Bit 7 is the leftmost pixel.
		for col := 0; col < Width; col++ {
			if b&(0x80>>col) == 0 {
				continue
			}
			display.SetPixel(x+int16(col), y-int16(Height-1-row), c)
		}
	}
}

func (g *glyph) Info() tinyfont.GlyphInfo {
	return tinyfont.GlyphInfo{
		Rune:     g.r,
		Width:    Width,
		Height:   Height,
		XAdvance: Width,
		XOffset:  0,
		YOffset:  -(Height - 1),
	}
}

func (f *font8x16) GetYAdvance() uint8 { return Height }

func (f *font8x16) GetGlyph(r rune) tinyfont.Glypher {
	f.g.r = r
	return &f.g
}

// Has reports whether r has a dedicated glyph (not the fallback box).
func Has(r rune) bool {
	return glyphIndex(r) != fallbackGlyph
}

const (
	blankGlyph    = 36
	fallbackGlyph = 37
)

func glyphIndex(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'Z':
		return 10 + int(r-'A')
	case r >= 'a' && r <= 'z':
		return 10 + int(r-'a')
	case r == ' ':
		return blankGlyph
	}
	return fallbackGlyph
}

// Only the top half of each 16-row cell is inked; the rest is line spacing.
var glyphData = [38][8]byte{
	{0x3C, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3C}, // 0
	{0x18, 0x38, 0x18, 0x18, 0x18, 0x18, 0x18, 0x3C}, // 1
	{0x3C, 0x66, 0x06, 0x0C, 0x18, 0x30, 0x60, 0x7E}, // 2
	{0x3C, 0x66, 0x06, 0x1C, 0x06, 0x06, 0x66, 0x3C}, // 3
	{0x0C, 0x1C, 0x2C, 0x4C, 0x7E, 0x0C, 0x0C, 0x0C}, // 4
	{0x7E, 0x60, 0x60, 0x7C, 0x06, 0x06, 0x66, 0x3C}, // 5
	{0x3C, 0x66, 0x60, 0x7C, 0x66, 0x66, 0x66, 0x3C}, // 6
	{0x7E, 0x06, 0x0C, 0x18, 0x30, 0x30, 0x30, 0x30}, // 7
	{0x3C, 0x66, 0x66, 0x3C, 0x66, 0x66, 0x66, 0x3C}, // 8
	{0x3C, 0x66, 0x66, 0x3E, 0x06, 0x06, 0x66, 0x3C}, // 9
	{0x3C, 0x66, 0x66, 0x7E, 0x66, 0x66, 0x66, 0x66}, // A
	{0x7C, 0x66, 0x66, 0x7C, 0x66, 0x66, 0x66, 0x7C}, // B
	{0x3C, 0x66, 0x60, 0x60, 0x60, 0x60, 0x66, 0x3C}, // C
	{0x7C, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x7C}, // D
	{0x7E, 0x60, 0x60, 0x7C, 0x60, 0x60, 0x60, 0x7E}, // E
	{0x7E, 0x60, 0x60, 0x7C, 0x60, 0x60, 0x60, 0x60}, // F
	{0x3C, 0x66, 0x60, 0x6E, 0x66, 0x66, 0x66, 0x3C}, // G
	{0x66, 0x66, 0x66, 0x7E, 0x66, 0x66, 0x66, 0x66}, // H
	{0x3C, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x3C}, // I
	{0x1E, 0x0C, 0x0C, 0x0C, 0x0C, 0x6C, 0x6C, 0x38}, // J
	{0x66, 0x6C, 0x78, 0x70, 0x78, 0x6C, 0x66, 0x66}, // K
	{0x60, 0x60, 0x60, 0x60, 0x60, 0x60, 0x60, 0x7E}, // L
	{0x66, 0x7E, 0x7E, 0x66, 0x66, 0x66, 0x66, 0x66}, // M
	{0x66, 0x76, 0x7E, 0x7E, 0x6E, 0x66, 0x66, 0x66}, // N
	{0x3C, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3C}, // O
	{0x7C, 0x66, 0x66, 0x7C, 0x60, 0x60, 0x60, 0x60}, // P
	{0x3C, 0x66, 0x66, 0x66, 0x6E, 0x66, 0x66, 0x3C}, // Q
	{0x7C, 0x66, 0x66, 0x7C, 0x78, 0x6C, 0x66, 0x66}, // R
	{0x3C, 0x66, 0x60, 0x3C, 0x06, 0x06, 0x66, 0x3C}, // S
	{0x7E, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18}, // T
	{0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3C}, // U
	{0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3C, 0x18}, // V
	{0x66, 0x66, 0x66, 0x66, 0x66, 0x7E, 0x7E, 0x66}, // W
	{0x66, 0x66, 0x3C, 0x18, 0x18, 0x3C, 0x66, 0x66}, // X
	{0x66, 0x66, 0x66, 0x3C, 0x18, 0x18, 0x18, 0x18}, // Y
	{0x7E, 0x06, 0x0C, 0x18, 0x30, 0x60, 0x60, 0x7E}, // Z
	{}, // space
	{0x7E, 0x42, 0x42, 0x42, 0x42, 0x42, 0x42, 0x7E}, // fallback
}

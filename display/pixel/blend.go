package pixel

// FromHex decodes 0x00RRGGBB into an opaque color.
func FromHex(hex uint32) Color {
	return RGB(uint8(hex>>16), uint8(hex>>8), uint8(hex))
}

// FromHexAlpha decodes 0xAARRGGBB.
func FromHexAlpha(hex uint32) Color {
	return Color{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: uint8(hex >> 24)}
}

// Hex packs c as 0xAARRGGBB.
func (c Color) Hex() uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Blend composites over on top of c using over's alpha. The result keeps the
// larger of the two alphas.
func (c Color) Blend(over Color) Color {
	a := uint32(over.A)
	mix := func(dst, src uint8) uint8 {
		return uint8((uint32(dst)*(255-a) + uint32(src)*a) / 255)
	}
	out := Color{R: mix(c.R, over.R), G: mix(c.G, over.G), B: mix(c.B, over.B), A: c.A}
	if over.A > out.A {
		out.A = over.A
	}
	return out
}

// Brighten scales the color channels by factor, saturating at 255.
// Alpha is kept. A factor of 0 or less gives black.
func (c Color) Brighten(factor float64) Color {
	scale := func(v uint8) uint8 {
		f := float64(v) * factor
		switch {
		case f <= 0:
			return 0
		case f >= 255:
			return 255
		}
		return uint8(f)
	}
	return Color{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// Luminance is the Rec. 601 luma of c in [0, 255].
func (c Color) Luminance() float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func (c Color) IsDark() bool { return c.Luminance() < 128 }

// Lerp interpolates every channel from c to to; t is clamped to [0, 1].
func (c Color) Lerp(to Color, t float64) Color {
	switch {
	case t <= 0:
		return c
	case t >= 1:
		return to
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-t) + float64(b)*t)
	}
	return Color{R: mix(c.R, to.R), G: mix(c.G, to.G), B: mix(c.B, to.B), A: mix(c.A, to.A)}
}

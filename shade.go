package minimap

import "image/color"

// ShadeDelta converts a column height into a brightness offset relative to
// the middle of the world. Large positive offsets are compressed in two
// steps; large negative offsets are pushed a little further into the dark.
func ShadeDelta(height, maxHeight int) int {
	d := (height - maxHeight/2) * 4

	if d > 32 {
		d = d - d/16
	}
	if d > 48 {
		d = d - d/16
	}
	if d < -32 {
		d = d + d/16
	}
	if d < -48 {
		d = d + d/16
	}
	return d
}

// ShadeBound is the largest magnitude ShadeDelta can return for heights in
// [0, maxHeight).
func ShadeBound(maxHeight int) int {
	bound := 0
	for _, h := range []int{0, maxHeight - 1} {
		d := ShadeDelta(h, maxHeight)
		if d < 0 {
			d = -d
		}
		if d > bound {
			bound = d
		}
	}
	return bound
}

// Shade applies a brightness offset to every channel of base.
func Shade(base color.NRGBA, delta int) color.NRGBA {
	return color.NRGBA{
		R: clampChannel(int(base.R) + delta),
		G: clampChannel(int(base.G) + delta),
		B: clampChannel(int(base.B) + delta),
		A: 255,
	}
}

func clampChannel(v int) uint8 {
	if v > 255 {
		return 255
	} else if v < 0 {
		return 0
	}
	return uint8(v)
}

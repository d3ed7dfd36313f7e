package canvas

import (
	"image"

	"PaintingOnWeb/internal/state"
)

// blendPixel writes into dst (4 premultiplied RGBA bytes) the result of
// applying paint with effective alpha a to the base pixel.
func blendPixel(dst, base []uint8, p state.PaintParams, a float32) {
	inv := 1 - a
	switch p.Composite {
	case state.CompositeErase:
		dst[0] = round8(float32(base[0]) * inv)
		dst[1] = round8(float32(base[1]) * inv)
		dst[2] = round8(float32(base[2]) * inv)
		dst[3] = round8(float32(base[3]) * inv)
	default:
		dst[0] = round8(float32(p.Color.R)*a + float32(base[0])*inv)
		dst[1] = round8(float32(p.Color.G)*a + float32(base[1])*inv)
		dst[2] = round8(float32(p.Color.B)*a + float32(base[2])*inv)
		dst[3] = round8(255*a + float32(base[3])*inv)
	}
}

func round8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// applyCoverage merges c into the gesture mask and recomposites every pixel
// whose coverage grew, always starting from the pre-gesture base. It returns
// the rectangle that changed.
func applyCoverage(buf *image.RGBA, base []uint8, mask *image.Alpha, c coverage, p state.PaintParams) image.Rectangle {
	r := c.bounds()
	minX, minY, maxX, maxY := r.Max.X, r.Max.Y, r.Min.X, r.Min.Y
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cov := c.mask.Pix[(y-c.origin.Y)*c.mask.Stride+(x-c.origin.X)]
			mi := mask.PixOffset(x, y)
			if cov <= mask.Pix[mi] {
				continue
			}
			mask.Pix[mi] = cov

			i := buf.PixOffset(x, y)
			blendPixel(buf.Pix[i:i+4], base[i:i+4], p, float32(cov)/255*p.Opacity)
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x+1), max(maxY, y+1)
		}
	}
	if minX >= maxX {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

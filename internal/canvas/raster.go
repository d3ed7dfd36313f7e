package canvas

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type fpoint struct{ x, y float32 }

// coverage is an anti-aliased stroke mask positioned at origin in device space.
type coverage struct {
	origin image.Point
	mask   *image.Alpha
}

func (c coverage) bounds() image.Rectangle {
	return c.mask.Bounds().Add(c.origin)
}

// segmentCoverage rasterizes the segment p0-p1 stroked with the given radius,
// with round caps so consecutive segments meet in round joins. Coverage
// outside clip is dropped. ok is false when nothing lands inside clip.
func segmentCoverage(p0, p1 fpoint, radius float32, clip image.Rectangle) (coverage, bool) {
	if radius <= 0 {
		return coverage{}, false
	}
	r := image.Rect(
		int(math.Floor(float64(min(p0.x, p1.x)-radius)))-1,
		int(math.Floor(float64(min(p0.y, p1.y)-radius)))-1,
		int(math.Ceil(float64(max(p0.x, p1.x)+radius)))+1,
		int(math.Ceil(float64(max(p0.y, p1.y)+radius)))+1,
	).Intersect(clip)
	if r.Empty() {
		return coverage{}, false
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Src
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	a := fpoint{p0.x - ox, p0.y - oy}
	b := fpoint{p1.x - ox, p1.y - oy}

	// Every sub-path winds the same way so overlaps merge instead of cancelling.
	addDisc(z, a, radius)
	if a != b {
		addDisc(z, b, radius)
		addBody(z, a, b, radius)
	}

	mask := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return coverage{origin: r.Min, mask: mask}, true
}

// addBody adds the rectangle swept by a segment of half-width radius.
func addBody(z *vector.Rasterizer, a, b fpoint, radius float32) {
	dx, dy := b.x-a.x, b.y-a.y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	nx, ny := -dy/l*radius, dx/l*radius

	z.MoveTo(a.x+nx, a.y+ny)
	z.LineTo(b.x+nx, b.y+ny)
	z.LineTo(b.x-nx, b.y-ny)
	z.LineTo(a.x-nx, a.y-ny)
	z.ClosePath()
}

// addDisc adds a polygonal circle; the angle decreases so the winding matches addBody.
func addDisc(z *vector.Rasterizer, c fpoint, radius float32) {
	n := discSegments(radius)
	z.MoveTo(c.x+radius, c.y)
	for i := 1; i < n; i++ {
		theta := -2 * math.Pi * float64(i) / float64(n)
		z.LineTo(c.x+radius*float32(math.Cos(theta)), c.y+radius*float32(math.Sin(theta)))
	}
	z.ClosePath()
}

func discSegments(radius float32) int {
	n := int(math.Ceil(math.Pi * float64(radius)))
	if n < 12 {
		return 12
	}
	if n > 128 {
		return 128
	}
	return n
}

// Package background holds the shared decorative image shown beneath the
// canvas and the data-URL encoding it travels in.
package background

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Opacity of the background beneath the canvas.
const Opacity = 0.4

// backgroundAlpha is Opacity as a mask alpha.
var backgroundAlpha = uint8(math.Round(Opacity * 255))

// PageColor is what shows where neither canvas nor background paint.
var PageColor = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf2, A: 0xff}

// Layer is the current background value and its decoded image.
type Layer struct {
	mu    sync.RWMutex
	value string
	img   image.Image

	// scaled caches img fitted to the last composed size.
	scaled *image.RGBA
}

func NewLayer() *Layer {
	return &Layer{}
}

// Set decodes value and makes it the background. On error the previous
// background stays in place. An empty value clears the layer.
func (l *Layer) Set(value string) error {
	if value == "" {
		l.Clear()
		return nil
	}
	img, err := Decode(value)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = value
	l.img = img
	l.scaled = nil
	return nil
}

// Clear removes the background locally.
func (l *Layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = ""
	l.img = nil
	l.scaled = nil
}

// Value returns the current data URL, or "" when there is none.
func (l *Layer) Value() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

func (l *Layer) Image() image.Image {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.img
}

// Compose renders the visible scene into dst: page color, the background
// scaled to cover and centered at Opacity, then fg on top.
func (l *Layer) Compose(dst *image.RGBA, fg image.Image) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(PageColor), image.Point{}, draw.Src)

	if bg := l.fitted(b.Size()); bg != nil {
		mask := image.NewUniform(color.Alpha{A: backgroundAlpha})
		draw.DrawMask(dst, b, bg, image.Point{}, mask, image.Point{}, draw.Over)
	}
	if fg != nil {
		draw.Draw(dst, b, fg, fg.Bounds().Min, draw.Over)
	}
}

func (l *Layer) fitted(size image.Point) *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.img == nil || size.X <= 0 || size.Y <= 0 {
		return nil
	}
	if l.scaled != nil && l.scaled.Bounds().Size() == size {
		return l.scaled
	}
	out := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.ApproxBiLinear.Scale(out, coverRect(l.img.Bounds().Size(), size), l.img, l.img.Bounds(), xdraw.Src, nil)
	l.scaled = out
	return out
}

// coverRect scales src to the smallest size covering dst, keeping the
// aspect ratio, and centers it over dst.
func coverRect(src, dst image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{}
	}
	sx := float64(dst.X) / float64(src.X)
	sy := float64(dst.Y) / float64(src.Y)
	scale := max(sx, sy)
	w := int(float64(src.X)*scale + 0.5)
	h := int(float64(src.Y)*scale + 0.5)
	x0 := (dst.X - w) / 2
	y0 := (dst.Y - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

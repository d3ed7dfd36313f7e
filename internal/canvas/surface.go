// Package canvas is the immediate-mode painting surface: pointer gestures are
// rasterized straight into an RGBA pixel buffer. Nothing is retained as vector
// data, so a stroke cannot be edited once drawn and there is no undo.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"PaintingOnWeb/internal/state"
)

var ErrInvalidSize = errors.New("canvas: invalid size")

// PageColor fills a surface that has never held content.
var PageColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Size describes a surface in logical units and in device pixels.
type Size struct {
	Width, Height float32
	Scale         float32
	Pixels        image.Point
}

// Surface owns the pixel buffer and the gesture state machine. All methods
// are safe for concurrent use.
type Surface struct {
	mu   sync.Mutex
	buf  *image.RGBA
	size Size
	g    gesture
}

// New allocates a surface of the given logical size at device pixel ratio
// scale, filled with PageColor.
func New(width, height, scale float32) (*Surface, error) {
	s := &Surface{}
	if err := s.Resize(width, height, scale); err != nil {
		return nil, err
	}
	return s, nil
}

func devicePixels(width, height, scale float32) image.Point {
	return image.Pt(
		int(math.Ceil(float64(width*scale))),
		int(math.Ceil(float64(height*scale))),
	)
}

// Resize reallocates the buffer for a new logical size or device pixel ratio
// and redraws the previous content at the origin. Content outside the new
// bounds is lost. When the ratio changes the old content is rescaled so it
// keeps its logical size. An active gesture is cancelled.
func (s *Surface) Resize(width, height, scale float32) error {
	if width <= 0 || height <= 0 || scale <= 0 {
		return fmt.Errorf("%w: %vx%v@%v", ErrInvalidSize, width, height, scale)
	}
	px := devicePixels(width, height, scale)
	if px.X <= 0 || px.Y <= 0 {
		return fmt.Errorf("%w: %vx%v@%v", ErrInvalidSize, width, height, scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := Size{Width: width, Height: height, Scale: scale, Pixels: px}
	if s.buf != nil && next == s.size {
		return nil
	}
	s.cancelGesture("resize")

	buf := image.NewRGBA(image.Rect(0, 0, px.X, px.Y))
	old := s.buf
	switch {
	case old == nil:
		draw.Draw(buf, buf.Bounds(), image.NewUniform(PageColor), image.Point{}, draw.Src)
	case scale == s.size.Scale:
		draw.Draw(buf, old.Bounds(), old, image.Point{}, draw.Src)
	default:
		ratio := float64(scale / s.size.Scale)
		ob := old.Bounds()
		dr := image.Rect(0, 0,
			int(math.Round(float64(ob.Dx())*ratio)),
			int(math.Round(float64(ob.Dy())*ratio)))
		xdraw.CatmullRom.Scale(buf, dr, old, ob, xdraw.Src, nil)
	}

	Logger().Debug("resized",
		"from", s.size.Pixels, "to", px, "scale", scale, "fresh", old == nil)
	s.buf = buf
	s.size = next
	return nil
}

// Clear refills the whole buffer with PageColor and cancels an active gesture.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelGesture("clear")
	draw.Draw(s.buf, s.buf.Bounds(), image.NewUniform(PageColor), image.Point{}, draw.Src)
}

func (s *Surface) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Snapshot returns a copy of the pixel buffer.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.buf.Bounds())
	copy(out.Pix, s.buf.Pix)
	return out
}

// View calls fn with the live buffer while holding the surface lock.
// fn must not retain img or call back into the surface.
func (s *Surface) View(fn func(img *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.buf)
}

func (s *Surface) toDevice(p state.Point) fpoint {
	return fpoint{p.X * s.size.Scale, p.Y * s.size.Scale}
}

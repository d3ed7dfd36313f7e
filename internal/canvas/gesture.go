package canvas

import (
	"image"

	"github.com/google/uuid"

	"PaintingOnWeb/internal/state"
)

// GestureState is the state of the pointer gesture machine.
type GestureState int

const (
	Idle GestureState = iota
	Painting
)

func (g GestureState) String() string {
	if g == Painting {
		return "painting"
	}
	return "idle"
}

// StrokeInfo describes a finished gesture.
type StrokeInfo struct {
	ID     string
	Params state.PaintParams
	Points int
	Bounds image.Rectangle
}

type gesture struct {
	state  GestureState
	id     string
	params state.PaintParams
	last   fpoint
	points int
	bounds image.Rectangle

	// base is the buffer as it was at pointer-down; mask is the union of
	// the coverage painted so far. Together they let every move recomposite
	// from the original pixels, so the path is applied exactly once.
	base []uint8
	mask *image.Alpha
}

func (s *Surface) State() GestureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.state
}

// PointerDown begins a stroke at p with params committed for its whole
// duration. Nothing is painted until the pointer moves. It reports false
// when a gesture is already active.
func (s *Surface) PointerDown(p state.Point, params state.PaintParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.g.state == Painting {
		return false
	}

	base := make([]uint8, len(s.buf.Pix))
	copy(base, s.buf.Pix)
	s.g = gesture{
		state:  Painting,
		id:     uuid.NewString(),
		params: params,
		last:   s.toDevice(p),
		points: 1,
		base:   base,
		mask:   image.NewAlpha(s.buf.Bounds()),
	}
	Logger().Debug("stroke started", "stroke", s.g.id,
		"composite", params.Composite, "width", params.Width, "opacity", params.Opacity)
	return true
}

// PointerMove extends the active path to p and rasterizes the new segment
// immediately. It returns the device rectangle that changed, which is empty
// when no gesture is active.
func (s *Surface) PointerMove(p state.Point) image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.g.state != Painting {
		return image.Rectangle{}
	}

	next := s.toDevice(p)
	radius := s.g.params.Width * s.size.Scale / 2
	prev := s.g.last
	s.g.last = next
	s.g.points++

	if s.g.params.Opacity <= 0 {
		return image.Rectangle{}
	}
	c, ok := segmentCoverage(prev, next, radius, s.buf.Bounds())
	if !ok {
		return image.Rectangle{}
	}
	dirty := applyCoverage(s.buf, s.g.base, s.g.mask, c, s.g.params)
	s.g.bounds = s.g.bounds.Union(dirty)
	return dirty
}

// PointerUp ends the active gesture. ok is false when there was none.
func (s *Surface) PointerUp() (info StrokeInfo, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.g.state != Painting {
		return StrokeInfo{}, false
	}
	info = StrokeInfo{
		ID:     s.g.id,
		Params: s.g.params,
		Points: s.g.points,
		Bounds: s.g.bounds,
	}
	s.g = gesture{}
	Logger().Debug("stroke finished", "stroke", info.ID, "points", info.Points, "bounds", info.Bounds)
	return info, true
}

// cancelGesture drops an active gesture, keeping whatever it already painted.
// Callers hold s.mu.
func (s *Surface) cancelGesture(reason string) {
	if s.g.state != Painting {
		return
	}
	Logger().Debug("stroke cancelled", "stroke", s.g.id, "reason", reason)
	s.g = gesture{}
}

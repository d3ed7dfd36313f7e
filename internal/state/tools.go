package state

import (
	"fmt"
	"sync"
)

type Tool int

const (
	ToolPencil Tool = iota
	ToolBrush
	ToolHighlighter
	ToolSpray
	ToolEraser
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolPencil, ToolBrush, ToolHighlighter, ToolSpray, ToolEraser}

var toolNames = map[Tool]string{
	ToolPencil:      "pencil",
	ToolBrush:       "brush",
	ToolHighlighter: "highlighter",
	ToolSpray:       "spray",
	ToolEraser:      "eraser",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

func ParseTool(s string) (Tool, error) {
	for t, name := range toolNames {
		if name == s {
			return t, nil
		}
	}
	return ToolPencil, fmt.Errorf("unknown tool %q", s)
}

const (
	MinWidth     = 1
	MaxWidth     = 40
	DefaultWidth = 5

	// HighlighterOpacity replaces the user opacity while the highlighter is selected.
	HighlighterOpacity = 0.3
)

// ToolState is the toolbar selection. Changing it never touches the canvas;
// paint parameters are derived from it when a gesture starts.
type ToolState struct {
	mu      sync.RWMutex
	tool    Tool
	color   Color
	width   float32
	opacity float32
}

func NewToolState() *ToolState {
	return &ToolState{
		tool:    ToolPencil,
		color:   Black,
		width:   DefaultWidth,
		opacity: 1,
	}
}

func (s *ToolState) SetTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
}

func (s *ToolState) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

func (s *ToolState) SetColor(c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
}

func (s *ToolState) Color() Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

// SetWidth clamps w to [MinWidth, MaxWidth].
func (s *ToolState) SetWidth(w float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = clamp(w, MinWidth, MaxWidth)
}

func (s *ToolState) Width() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

// SetOpacity clamps o to [0, 1].
func (s *ToolState) SetOpacity(o float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opacity = clamp(o, 0, 1)
}

func (s *ToolState) Opacity() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opacity
}

// Params computes the paint parameters for a stroke starting now.
// Spray has no dispersion of its own and paints like the pencil.
func (s *ToolState) Params() PaintParams {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := PaintParams{
		Color:     s.color,
		Width:     s.width,
		Opacity:   s.opacity,
		Composite: CompositeNormal,
	}
	switch s.tool {
	case ToolHighlighter:
		p.Opacity = HighlighterOpacity
	case ToolEraser:
		p.Composite = CompositeErase
	}
	return p
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package ui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"PaintingOnWeb/internal/background"
	pcanvas "PaintingOnWeb/internal/canvas"
	"PaintingOnWeb/internal/state"
)

// PainterWidget shows the painting surface over the background layer and
// turns mouse gestures into strokes.
type PainterWidget struct {
	widget.BaseWidget

	surface *pcanvas.Surface
	tools   *state.ToolState
	layer   *background.Layer

	mu       sync.Mutex
	lastSize fyne.Size

	// OnStroke runs after every finished gesture.
	OnStroke func(pcanvas.StrokeInfo)
}

var _ fyne.Widget = (*PainterWidget)(nil)
var _ fyne.Draggable = (*PainterWidget)(nil)
var _ desktop.Mouseable = (*PainterWidget)(nil)

func NewPainterWidget(surface *pcanvas.Surface, tools *state.ToolState, layer *background.Layer) *PainterWidget {
	p := &PainterWidget{surface: surface, tools: tools, layer: layer}
	p.ExtendBaseWidget(p)
	return p
}

func (p *PainterWidget) Surface() *pcanvas.Surface { return p.surface }

// Clear wipes the canvas to white. The background layer is untouched.
func (p *PainterWidget) Clear() {
	p.surface.Clear()
	p.Refresh()
}

// Snapshot is the canvas alone, as exported.
func (p *PainterWidget) Snapshot() *image.RGBA {
	return p.surface.Snapshot()
}

func (p *PainterWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p.surface.PointerDown(toPoint(e.Position), p.tools.Params())
}

func (p *PainterWidget) Dragged(e *fyne.DragEvent) {
	if dirty := p.surface.PointerMove(toPoint(e.Position)); !dirty.Empty() {
		p.Refresh()
	}
}

func (p *PainterWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		p.endStroke()
	}
}

// DragEnd covers a release outside the widget, where MouseUp is not sent.
func (p *PainterWidget) DragEnd() {
	p.endStroke()
}

func (p *PainterWidget) endStroke() {
	info, ok := p.surface.PointerUp()
	if !ok {
		return
	}
	if p.OnStroke != nil {
		p.OnStroke(info)
	}
}

func toPoint(pos fyne.Position) state.Point {
	return state.Point{X: pos.X, Y: pos.Y}
}

// resize matches the surface to the widget size at the window's pixel ratio.
func (p *PainterWidget) resize(size fyne.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	scale := float32(1)
	if c := fyne.CurrentApp().Driver().CanvasForObject(p); c != nil && c.Scale() > 0 {
		scale = c.Scale()
	}

	p.mu.Lock()
	same := p.lastSize == size
	p.lastSize = size
	p.mu.Unlock()
	if same && p.surface.Size().Scale == scale {
		return
	}
	if err := p.surface.Resize(size.Width, size.Height, scale); err != nil {
		pcanvas.Logger().Warn("resize failed", "size", size, "err", err)
	}
}

// render composes the visible frame at the raster's pixel size.
func (p *PainterWidget) render(w, h int) image.Image {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	p.surface.View(func(img *image.RGBA) {
		p.layer.Compose(frame, img)
	})
	return frame
}

func (p *PainterWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &painterRenderer{painter: p}
	r.raster = canvas.NewRaster(p.render)
	return r
}

type painterRenderer struct {
	painter *PainterWidget
	raster  *canvas.Raster
}

func (r *painterRenderer) Layout(size fyne.Size) {
	r.painter.resize(size)
	r.raster.Resize(size)
}

func (r *painterRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *painterRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.raster}
}

func (r *painterRenderer) Refresh() {
	r.raster.Refresh()
}

func (r *painterRenderer) Destroy() {}

func (p *PainterWidget) MouseIn(*desktop.MouseEvent) {}
func (p *PainterWidget) MouseOut() {}
func (p *PainterWidget) MouseMoved(*desktop.MouseEvent) {}

package ui

import (
	"image"
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintingOnWeb/internal/background"
	pcanvas "PaintingOnWeb/internal/canvas"
	"PaintingOnWeb/internal/state"
)

func newTestPainter(t *testing.T) *PainterWidget {
	t.Helper()
	test.NewTempApp(t)
	surface, err := pcanvas.New(100, 100, 1)
	require.NoError(t, err)
	p := NewPainterWidget(surface, state.NewToolState(), background.NewLayer())
	w := test.NewWindow(p)
	t.Cleanup(w.Close)
	return p
}

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	}
}

func drag(x, y float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}}
}

func TestPainterResizesSurface(t *testing.T) {
	p := newTestPainter(t)
	p.Resize(fyne.NewSize(240, 160))
	assert.Equal(t, image.Pt(240, 160), p.Surface().Size().Pixels)
}

func TestPainterDrawsStroke(t *testing.T) {
	p := newTestPainter(t)
	p.Resize(fyne.NewSize(100, 100))

	var strokes []pcanvas.StrokeInfo
	p.OnStroke = func(info pcanvas.StrokeInfo) { strokes = append(strokes, info) }

	p.MouseDown(mouse(10, 50))
	p.Dragged(drag(50, 50))
	p.Dragged(drag(90, 50))
	p.MouseUp(mouse(90, 50))
	p.DragEnd()

	require.Len(t, strokes, 1, "a release ends the gesture once")
	assert.Equal(t, 3, strokes[0].Points)
	assert.Equal(t, color.RGBA{A: 0xff}, p.Snapshot().RGBAAt(50, 50))

	p.Clear()
	assert.Equal(t, pcanvas.PageColor, p.Snapshot().RGBAAt(50, 50))
}

func TestPainterIgnoresSecondaryButton(t *testing.T) {
	p := newTestPainter(t)
	p.Resize(fyne.NewSize(100, 100))

	ev := mouse(10, 10)
	ev.Button = desktop.MouseButtonSecondary
	p.MouseDown(ev)
	assert.Equal(t, pcanvas.Idle, p.Surface().State())
}

func TestRenderComposesCanvasOverPage(t *testing.T) {
	p := newTestPainter(t)
	p.Resize(fyne.NewSize(100, 100))

	// An eraser stroke makes the canvas transparent and shows the page.
	p.tools.SetTool(state.ToolEraser)
	p.tools.SetWidth(10)
	p.MouseDown(mouse(10, 50))
	p.Dragged(drag(90, 50))
	p.MouseUp(mouse(90, 50))

	frame := p.render(100, 100).(*image.RGBA)
	assert.Equal(t, background.PageColor, frame.RGBAAt(50, 50))
	assert.Equal(t, pcanvas.PageColor, frame.RGBAAt(50, 10))
}

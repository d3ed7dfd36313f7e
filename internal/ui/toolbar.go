package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"PaintingOnWeb/internal/state"
)

type colorSwatch struct {
	widget.BaseWidget
	Color    state.Color
	OnTapped func(state.Color)
}

func newColorSwatch(c state.Color, tapped func(state.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// toolbarActions are the buttons whose work lives outside the toolbar.
type toolbarActions struct {
	Clear            func()
	Save             func()
	UploadBackground func()
	RemoveBackground func()
	CloudAccess      func()
}

// newToolbar builds the tool, color, width and opacity controls. The returned
// cloud button starts hidden; it is shown once the server answers.
func newToolbar(w fyne.Window, tools *state.ToolState, actions toolbarActions) (fyne.CanvasObject, *widget.Button) {
	names := make([]string, len(state.Tools))
	for i, t := range state.Tools {
		names[i] = t.String()
	}
	toolRadio := widget.NewRadioGroup(names, func(name string) {
		if t, err := state.ParseTool(name); err == nil {
			tools.SetTool(t)
		}
	})
	toolRadio.Horizontal = true
	toolRadio.Required = true
	toolRadio.SetSelected(tools.Tool().String())

	current := canvas.NewRectangle(tools.Color())
	current.SetMinSize(fyne.NewSize(28, 28))
	pick := func(c state.Color) {
		tools.SetColor(c)
		current.FillColor = c
		current.Refresh()
	}
	colorBox := container.NewHBox()
	for _, c := range state.Palette {
		colorBox.Add(newColorSwatch(c, pick))
	}
	custom := widget.NewButtonWithIcon("", theme.ColorPaletteIcon(), func() {
		picker := dialog.NewColorPicker("Color", "Pick a paint color", func(c color.Color) {
			pick(state.FromColor(c))
		}, w)
		picker.Advanced = true
		picker.Show()
	})

	widthSlider := widget.NewSlider(state.MinWidth, state.MaxWidth)
	widthSlider.Step = 1
	widthSlider.SetValue(float64(tools.Width()))
	widthSlider.OnChanged = func(v float64) { tools.SetWidth(float32(v)) }

	opacitySlider := widget.NewSlider(0, 1)
	opacitySlider.Step = 0.05
	opacitySlider.SetValue(float64(tools.Opacity()))
	opacitySlider.OnChanged = func(v float64) { tools.SetOpacity(float32(v)) }

	sliderSize := layout.NewGridWrapLayout(fyne.NewSize(140, 35))

	actionBar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DeleteIcon(), actions.Clear),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), actions.Save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FileImageIcon(), actions.UploadBackground),
		widget.NewToolbarAction(theme.ContentClearIcon(), actions.RemoveBackground),
	)

	cloud := widget.NewButtonWithIcon("Cloud access", theme.AccountIcon(), actions.CloudAccess)
	cloud.Hide()

	row1 := container.NewHBox(
		widget.NewLabel("Tool:"),
		toolRadio,
		layout.NewSpacer(),
		cloud,
	)
	row2 := container.NewHBox(
		widget.NewLabel("Color:"),
		colorBox,
		custom,
		current,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		container.New(sliderSize, widthSlider),
		widget.NewLabel("Opacity:"),
		container.New(sliderSize, opacitySlider),
		widget.NewSeparator(),
		actionBar,
	)
	return container.NewVBox(row1, row2), cloud
}

package state

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Point is a pointer position in logical (unscaled) canvas units.
type Point struct{ X, Y float32 }

// Color is an opaque RGB paint color.
type Color struct{ R, G, B uint8 }

// Black is the default paint color.
var Black = Color{}

// White is the page color of a fresh canvas.
var White = Color{R: 0xff, G: 0xff, B: 0xff}

// Palette holds the swatches offered next to the custom color picker.
var Palette = []Color{
	MustParseHexColor("#000000"),
	MustParseHexColor("#ffffff"),
	MustParseHexColor("#ff3b30"),
	MustParseHexColor("#4cd964"),
	MustParseHexColor("#007aff"),
	MustParseHexColor("#ffcc00"),
	MustParseHexColor("#af52de"),
}

var ErrBadColor = errors.New("invalid color")

// ParseHexColor accepts "#rrggbb" and the short "#rgb" form.
func ParseHexColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func MustParseHexColor(s string) Color {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// FromColor drops the alpha channel of any color.Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

// Composite is the rule for combining new paint with existing pixels.
type Composite int

const (
	CompositeNormal Composite = iota // source-over
	CompositeErase                   // destination-out
)

func (c Composite) String() string {
	if c == CompositeErase {
		return "erase"
	}
	return "normal"
}

// PaintParams are committed at pointer-down and hold for one stroke.
type PaintParams struct {
	Color     Color
	Width     float32
	Opacity   float32
	Composite Composite
}

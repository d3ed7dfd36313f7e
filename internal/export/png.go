// Package export writes the canvas to local files. The background layer is
// never part of an export.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

// DefaultName is the file name offered when saving a drawing.
const DefaultName = "art.png"

func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("export: encode png: %w", err)
	}
	return nil
}

// Write encodes img in the format named by the file extension of name:
// ".pdf" produces a PDF, anything else a PNG.
func Write(w io.Writer, name string, img image.Image) error {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return WritePDF(w, img)
	}
	return WritePNG(w, img)
}

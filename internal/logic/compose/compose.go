// Package compose assembles the printed sheet: two strips of three photos
// side by side, meant to be cut in half after printing.
package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Sheet geometry, in pixels of a 4x6" print at 300 dpi.
const (
	SheetWidth     = 1200
	SheetHeight    = 1800
	CellWidth      = 580
	CellHeight     = 435
	PhotosPerStrip = 3
)

var (
	columns = [2]int{10, 610}
	rows    = [PhotosPerStrip]int{314, 764, 1214}
)

// Cells returns the photo rectangles, strip by strip, top to bottom.
func Cells() []image.Rectangle {
	cells := make([]image.Rectangle, 0, len(columns)*len(rows))
	for _, x := range columns {
		for _, y := range rows {
			cells = append(cells, image.Rect(x, y, x+CellWidth, y+CellHeight))
		}
	}
	return cells
}

// Composer draws photos onto a background.
type Composer struct {
	template image.Image
}

// New creates a composer. templatePath is an optional PNG background; an
// empty path gives a plain white sheet.
func New(templatePath string) (*Composer, error) {
	if templatePath == "" {
		return &Composer{}, nil
	}
	f, err := os.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("open print template: %w", err)
	}
	defer f.Close()
	tpl, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode print template: %w", err)
	}
	debug.Verbose("Print template %s is %v", templatePath, tpl.Bounds().Size())
	return &Composer{template: tpl}, nil
}

// Compose builds the print sheet. Both strips show the first three photos;
// with six or more photos the second strip shows photos four to six.
func (c *Composer) Compose(photos []image.Image) (image.Image, error) {
	if len(photos) < PhotosPerStrip {
		return nil, fmt.Errorf("need %d photos for a print, have %d", PhotosPerStrip, len(photos))
	}

	sheet := image.NewRGBA(image.Rect(0, 0, SheetWidth, SheetHeight))
	if c.template != nil {
		draw.CatmullRom.Scale(sheet, sheet.Bounds(), c.template, c.template.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	for i, cell := range Cells() {
		idx := i % PhotosPerStrip
		if i >= PhotosPerStrip && len(photos) >= 2*PhotosPerStrip {
			idx = i
		}
		src := photos[idx]
		draw.CatmullRom.Scale(sheet, cell, src, CropToAspect(src.Bounds(), CellWidth, CellHeight), draw.Over, nil)
	}
	return sheet, nil
}

// CropToAspect returns the largest centered rectangle inside r with the
// aspect ratio w:h.
func CropToAspect(r image.Rectangle, w, h int) image.Rectangle {
	rw, rh := r.Dx(), r.Dy()
	if rw == 0 || rh == 0 {
		return r
	}
	if rw*h > rh*w {
		// too wide
		cw := rh * w / h
		x := r.Min.X + (rw-cw)/2
		return image.Rect(x, r.Min.Y, x+cw, r.Max.Y)
	}
	ch := rw * h / w
	y := r.Min.Y + (rh-ch)/2
	return image.Rect(r.Min.X, y, r.Max.X, y+ch)
}

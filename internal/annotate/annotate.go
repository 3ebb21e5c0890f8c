// Package annotate draws detection boxes and labels onto images.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kdduha/detection-api/internal/models"
)

const (
	lineWidth   = 2
	labelOffset = 10
)

var boxColor = color.NRGBA{R: 255, A: 255}

// Label is the text drawn above a detection box.
func Label(d models.Detection) string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
}

// Draw returns a copy of img with every detection outlined and labelled.
// Labels are not deconflicted and may overlap.
func Draw(img image.Image, detections []models.Detection) *image.NRGBA {
	// imaging.Clone rebases to a zero origin
	dst := imaging.Clone(img)
	origin := img.Bounds().Min
	for _, d := range detections {
		rect := image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]).Sub(origin)
		drawRect(dst, rect, lineWidth)
		drawLabel(dst, rect.Min, Label(d))
	}
	return dst
}

// drawRect outlines r with a border of width w drawn inwards.
func drawRect(dst *image.NRGBA, r image.Rectangle, w int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	w = min(w, (r.Dx()+1)/2, (r.Dy()+1)/2)

	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w))
	fill(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y))
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y))
	fill(dst, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y))
}

// fill paints r; dst has a zero origin.
func fill(dst *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = boxColor.R, boxColor.G, boxColor.B, boxColor.A
		}
	}
}

// drawLabel writes text with its top edge labelOffset pixels above corner.
func drawLabel(dst *image.NRGBA, corner image.Point, text string) {
	face := basicfont.Face7x13
	top := max(corner.Y-labelOffset, 0)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(boxColor),
		Face: face,
		Dot:  fixed.P(corner.X, top+face.Ascent),
	}
	d.DrawString(text)
}

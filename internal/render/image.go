package render

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	padding  = 4
	fontSize = 13 // basicfont.Face7x13 height
)

var textColor = color.RGBA{255, 255, 255, 255}

// Render draws the snapshot's icon followed by its label on a transparent background
func (s Snapshot) Render() *image.RGBA {
	face := basicfont.Face7x13

	textWidth := 0
	if s.Label != "" {
		textWidth = font.MeasureString(face, s.Label).Ceil()
	}

	iconSize := 0
	if s.Icon != nil {
		iconSize = s.Icon.Bounds().Dx()
	}

	width := padding * 2
	height := padding*2 + fontSize
	if iconSize > 0 {
		width += iconSize
		if iconSize+padding*2 > height {
			height = iconSize + padding*2
		}
	}
	if textWidth > 0 {
		width += textWidth
		if iconSize > 0 {
			width += padding
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	x := padding
	if s.Icon != nil {
		b := s.Icon.Bounds()
		y := (height - b.Dy()) / 2
		draw.Draw(img, image.Rect(x, y, x+b.Dx(), y+b.Dy()), s.Icon, b.Min, draw.Over)
		x += iconSize + padding
	}

	if textWidth > 0 {
		// baseline sits so the glyph box is vertically centred
		baseline := (height-fontSize)/2 + face.Ascent
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(textColor),
			Face: face,
			Dot:  fixed.P(x, baseline),
		}
		d.DrawString(s.Label)
	}

	return img
}

// RenderPNG encodes the current indicator image as PNG
func (ind *Indicator) RenderPNG(w io.Writer) error {
	return png.Encode(w, ind.Current().Render())
}

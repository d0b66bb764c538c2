package canvas

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Background is the canvas fill color.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Rasterize draws shapes in z-order onto a fresh canvas of the given
// geometry. Each shape is alpha-composited with its opacity; parts that fall
// outside the canvas are clipped.
func Rasterize(shapes []Shape, g Geometry) *image.RGBA {
	bounds := image.Rect(0, 0, g.Width, g.Height)
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(Background), image.Point{}, draw.Src)

	for _, shape := range shapes {
		rect := image.Rect(
			shape.Position.X,
			shape.Position.Y,
			shape.Position.X+g.ShapeSize,
			shape.Position.Y+g.ShapeSize,
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		fill := color.NRGBA{R: shape.Color.R, G: shape.Color.G, B: shape.Color.B, A: shape.Opacity}
		draw.Draw(img, rect, image.NewUniform(fill), image.Point{}, draw.Over)
	}
	return img
}

// EncodePNG rasterizes shapes and writes them to w as a PNG.
func EncodePNG(w io.Writer, shapes []Shape, g Geometry) error {
	return png.Encode(w, Rasterize(shapes, g))
}

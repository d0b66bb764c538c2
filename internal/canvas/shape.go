package canvas

import "fmt"

const (
	// OpacityUnplaced is the alpha of a shape that has been spawned but not committed.
	OpacityUnplaced uint8 = 128
	// OpacityPlaced is the alpha of a committed shape.
	OpacityPlaced uint8 = 255
)

// Point is a canvas coordinate of a shape's top-left corner.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// RGB is an opaque 24-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Shape is one axis-aligned square on the canvas.
type Shape struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Color    RGB    `json:"color"`
	Opacity  uint8  `json:"opacity"`
	Placed   bool   `json:"placed"`
}

// Geometry describes the canvas surface and the size of every shape drawn on it.
type Geometry struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	ShapeSize int `json:"shape_size"`
}

// DefaultGeometry is an 800x600 canvas with 100x100 squares.
func DefaultGeometry() Geometry {
	return Geometry{Width: 800, Height: 600, ShapeSize: 100}
}

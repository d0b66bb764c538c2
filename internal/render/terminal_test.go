package render

import (
	"image/color"
	"testing"

	"github.com/nsf/termbox-go"

	"github.com/haasonsaas/neurodraws/internal/canvas"
)

func TestXterm256(t *testing.T) {
	tests := []struct {
		name string
		in   color.RGBA
		want termbox.Attribute
	}{
		{name: "black", in: color.RGBA{}, want: 16 + 1},
		{name: "white", in: color.RGBA{R: 255, G: 255, B: 255}, want: 231 + 1},
		{name: "red", in: color.RGBA{R: 255}, want: 196 + 1},
		{name: "blue", in: color.RGBA{B: 255}, want: 21 + 1},
		{name: "mid gray", in: color.RGBA{R: 128, G: 128, B: 128}, want: 244 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := xterm256(tt.in); got != tt.want {
				t.Fatalf("xterm256(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDownscaleKeepsLayout(t *testing.T) {
	shapes := []canvas.Shape{{
		Position: canvas.Point{X: 0, Y: 0},
		Color:    canvas.RGB{B: 255},
		Opacity:  canvas.OpacityPlaced,
		Placed:   true,
	}}
	frame := downscale(canvas.Rasterize(shapes, canvas.Geometry{Width: 800, Height: 600, ShapeSize: 400}), 80, 60)
	if b := frame.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if got := frame.RGBAAt(10, 10); got.B < 200 || got.R > 50 {
		t.Fatalf("expected blue in the top-left, got %v", got)
	}
	if got := frame.RGBAAt(70, 50); got.R < 200 || got.G < 200 || got.B < 200 {
		t.Fatalf("expected white background bottom-right, got %v", got)
	}
}

func TestIsQuitKey(t *testing.T) {
	quit := []termbox.Event{
		{Type: termbox.EventKey, Key: termbox.KeyEsc},
		{Type: termbox.EventKey, Ch: 'q'},
		{Type: termbox.EventKey, Ch: 'Q'},
	}
	for _, ev := range quit {
		if !isQuitKey(ev) {
			t.Fatalf("expected %+v to quit", ev)
		}
		if isInterruptKey(ev) {
			t.Fatalf("expected %+v to only close the view", ev)
		}
	}
	if isQuitKey(termbox.Event{Type: termbox.EventKey, Ch: 'x'}) {
		t.Fatalf("x must not quit")
	}

	ctrlC := termbox.Event{Type: termbox.EventKey, Key: termbox.KeyCtrlC}
	if !isInterruptKey(ctrlC) {
		t.Fatalf("expected Ctrl-C to interrupt")
	}
	if isQuitKey(ctrlC) {
		t.Fatalf("Ctrl-C must not be treated as closing the view")
	}
}

package render

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/nsf/termbox-go"
	xdraw "golang.org/x/image/draw"

	"github.com/haasonsaas/neurodraws/internal/canvas"
)

// upperHalfBlock paints the top half of a cell with the foreground color and
// the bottom half with the background, giving two pixels per cell.
const upperHalfBlock = '▀'

// Terminal draws the canvas into the terminal using termbox.
type Terminal struct {
	geometry  canvas.Geometry
	terminate atomic.Bool
	interrupt atomic.Bool

	closeOnce sync.Once
	events    sync.WaitGroup
}

// NewTerminal takes over the terminal screen. It fails with a BackendError
// when stdout is not a usable terminal.
func NewTerminal(geometry canvas.Geometry) (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, &BackendError{Backend: "terminal", Err: err}
	}
	termbox.SetOutputMode(termbox.Output256)
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	t := &Terminal{geometry: geometry}
	t.events.Add(1)
	go t.pollEvents()
	return t, nil
}

func (t *Terminal) pollEvents() {
	defer t.events.Done()
	for {
		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventInterrupt:
			return
		case termbox.EventError:
			t.terminate.Store(true)
			return
		case termbox.EventKey:
			switch {
			case isInterruptKey(ev):
				t.interrupt.Store(true)
			case isQuitKey(ev):
				t.terminate.Store(true)
			}
		}
	}
}

// isQuitKey matches the keys that close the view.
func isQuitKey(ev termbox.Event) bool {
	return ev.Key == termbox.KeyEsc || ev.Ch == 'q' || ev.Ch == 'Q'
}

// isInterruptKey matches Ctrl-C, which termbox delivers as a key instead of
// SIGINT.
func isInterruptKey(ev termbox.Event) bool {
	return ev.Key == termbox.KeyCtrlC
}

// Draw scales the canvas to the current terminal size and paints it.
func (t *Terminal) Draw(shapes []canvas.Shape) error {
	cols, rows := termbox.Size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	frame := downscale(canvas.Rasterize(shapes, t.geometry), cols, rows*2)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := xterm256(frame.RGBAAt(x, 2*y))
			bottom := xterm256(frame.RGBAAt(x, 2*y+1))
			termbox.SetCell(x, y, upperHalfBlock, top, bottom)
		}
	}
	return termbox.Flush()
}

// ShouldTerminate reports whether Esc or q was pressed.
func (t *Terminal) ShouldTerminate() bool {
	return t.terminate.Load()
}

// Interrupted reports whether Ctrl-C was pressed.
func (t *Terminal) Interrupted() bool {
	return t.interrupt.Load()
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		termbox.Interrupt()
		t.events.Wait()
		termbox.Close()
	})
	return nil
}

// downscale resamples src to width×height pixels.
func downscale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// cubeLevels are the channel intensities of the xterm 6x6x6 color cube.
var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// xterm256 maps c to the nearest xterm color cube entry or grayscale ramp
// entry, as a termbox Output256 attribute.
func xterm256(c color.RGBA) termbox.Attribute {
	ri, gi, bi := nearestLevel(c.R), nearestLevel(c.G), nearestLevel(c.B)
	index := 16 + 36*ri + 6*gi + bi
	cube := color.RGBA{R: cubeLevels[ri], G: cubeLevels[gi], B: cubeLevels[bi]}

	avg := (int(c.R) + int(c.G) + int(c.B)) / 3
	grayStep := max(0, min((avg-3)/10, 23))
	grayLevel := uint8(8 + 10*grayStep)
	gray := color.RGBA{R: grayLevel, G: grayLevel, B: grayLevel}
	if distance(c, gray) < distance(c, cube) {
		index = 232 + grayStep
	}
	// Output256 attributes are offset by one; zero is the default color.
	return termbox.Attribute(index + 1)
}

func nearestLevel(v uint8) int {
	best, bestDiff := 0, 256
	for i, level := range cubeLevels {
		diff := int(v) - int(level)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

func distance(a, b color.RGBA) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

var _ Interrupter = (*Terminal)(nil)

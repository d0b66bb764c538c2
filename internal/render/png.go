package render

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/haasonsaas/neurodraws/internal/canvas"
)

// PNG writes the canvas to an image file whenever the shape list changes.
type PNG struct {
	path     string
	geometry canvas.Geometry

	last   []canvas.Shape
	drawn  bool
	writes int
}

// NewPNG creates a renderer writing to path.
func NewPNG(path string, geometry canvas.Geometry) (*PNG, error) {
	if path == "" {
		return nil, &BackendError{Backend: "png", Err: fmt.Errorf("output path is required")}
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", dir)
		}
		return nil, &BackendError{Backend: "png", Err: err}
	}
	return &PNG{path: path, geometry: geometry}, nil
}

// Draw rewrites the file when shapes differ from the previous frame. The file
// is replaced atomically so readers never observe a partial image.
func (p *PNG) Draw(shapes []canvas.Shape) error {
	if p.drawn && slices.Equal(p.last, shapes) {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".canvas-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()
	if err := canvas.EncodePNG(tmp, shapes, p.geometry); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", p.path, err)
	}

	p.last = slices.Clone(shapes)
	p.drawn = true
	p.writes++
	return nil
}

func (p *PNG) ShouldTerminate() bool { return false }
func (p *PNG) Close() error          { return nil }

// Package render draws the shape store continuously to an output backend.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/neurodraws/internal/canvas"
)

// ErrTerminated is returned by Run when the renderer asked to stop, for
// example because the user closed the terminal view. It ends rendering only.
var ErrTerminated = errors.New("render: terminated by user")

// ErrInterrupted is returned by Run when the user sent an interrupt through
// the view, such as Ctrl-C while the terminal is in raw mode and SIGINT is
// never raised.
var ErrInterrupted = errors.New("render: interrupted by user")

// Renderer is an output backend for canvas frames.
type Renderer interface {
	// Draw presents one frame. Shapes are in z-order.
	Draw(shapes []canvas.Shape) error
	// ShouldTerminate reports whether the user asked to close the view.
	ShouldTerminate() bool
	Close() error
}

// Interrupter is implemented by renderers that capture the keyboard. It
// reports whether the user asked to stop the whole process.
type Interrupter interface {
	Interrupted() bool
}

// BackendError reports that a rendering backend cannot be used.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("render backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Source supplies shape snapshots.
type Source interface {
	Snapshot() []canvas.Shape
}

// RunOption configures Run.
type RunOption func(*runOptions)

type runOptions struct {
	metrics *canvas.Metrics
	logger  *slog.Logger
}

// WithMetrics counts drawn frames.
func WithMetrics(m *canvas.Metrics) RunOption {
	return func(o *runOptions) { o.metrics = m }
}

// WithLogger sets the logger used by the frame loop.
func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Run draws a snapshot of src every 1/fps seconds until ctx is done, the
// renderer asks to terminate or is interrupted, or Draw fails. It does not
// close r.
func Run(ctx context.Context, src Source, r Renderer, fps int, opts ...RunOption) error {
	options := runOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger.With("component", "render")

	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	interrupter, _ := r.(Interrupter)
	for {
		if interrupter != nil && interrupter.Interrupted() {
			logger.Info("renderer interrupted by user")
			return ErrInterrupted
		}
		if r.ShouldTerminate() {
			logger.Info("renderer closed by user")
			return ErrTerminated
		}
		if err := r.Draw(src.Snapshot()); err != nil {
			return fmt.Errorf("draw frame: %w", err)
		}
		options.metrics.RecordFrame()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Headless discards every frame. It is used when no output is configured.
type Headless struct{}

func (Headless) Draw([]canvas.Shape) error { return nil }
func (Headless) ShouldTerminate() bool     { return false }
func (Headless) Close() error              { return nil }

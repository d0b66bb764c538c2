package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/haasonsaas/neurodraws/internal/canvas"
)

// Backend names.
const (
	BackendAuto     = "auto"
	BackendTerminal = "terminal"
	BackendPNG      = "png"
	BackendNone     = "none"
)

// Options selects and configures a renderer.
type Options struct {
	Backend  string
	PNGPath  string
	Geometry canvas.Geometry
	Logger   *slog.Logger
}

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// UsesTerminal reports whether backend would take over the terminal screen.
func UsesTerminal(backend string) bool {
	switch backend {
	case BackendTerminal:
		return true
	case BackendAuto, "":
		return isTerminal()
	default:
		return false
	}
}

// New opens the configured backend. With BackendAuto the terminal renderer is
// used when stdout is a terminal and headless otherwise; a terminal that
// fails to initialize also falls back to headless.
func New(opts Options) (Renderer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "render")

	switch opts.Backend {
	case BackendTerminal:
		r, err := NewTerminal(opts.Geometry)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendPNG:
		r, err := NewPNG(opts.PNGPath, opts.Geometry)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendNone:
		return Headless{}, nil
	case BackendAuto, "":
		if !isTerminal() {
			logger.Info("stdout is not a terminal, rendering headless")
			return Headless{}, nil
		}
		r, err := NewTerminal(opts.Geometry)
		if err != nil {
			var berr *BackendError
			if errors.As(err, &berr) {
				logger.Warn("terminal renderer unavailable, rendering headless", "error", err)
				return Headless{}, nil
			}
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", opts.Backend)
	}
}

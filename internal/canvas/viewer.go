package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Viewer serves a read-only browser view of the canvas with live updates.
type Viewer struct {
	store    *Store
	geometry Geometry
	logger   *slog.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewViewer creates a viewer for store.
func NewViewer(store *Store, geometry Geometry, logger *slog.Logger) (*Viewer, error) {
	if store == nil {
		return nil, fmt.Errorf("canvas store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		store:    store,
		geometry: geometry,
		logger:   logger.With("component", "viewer"),
		gatherer: prometheus.DefaultGatherer,
	}, nil
}

// SetMetrics reports live viewer streams to metrics.
func (v *Viewer) SetMetrics(metrics *Metrics) {
	if v == nil {
		return
	}
	v.metrics = metrics
}

// SetGatherer overrides the registry exposed on /metrics.
func (v *Viewer) SetGatherer(g prometheus.Gatherer) {
	if v == nil || g == nil {
		return
	}
	v.gatherer = g
}

// Handler returns the viewer routes.
func (v *Viewer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", v.handleIndex)
	mux.HandleFunc("GET /canvas.png", v.handlePNG)
	mux.HandleFunc("GET /shapes", v.handleShapes)
	mux.Handle("GET /live", v.liveHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok") //nolint:errcheck
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(v.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (v *Viewer) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("viewer listen: %w", err)
	}
	server := &http.Server{
		Handler:           v.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	v.logger.Info("starting canvas viewer", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("viewer serve: %w", err)
	}
	return nil
}

type shapesResponse struct {
	Version  uint64   `json:"version"`
	Geometry Geometry `json:"geometry"`
	Shapes   []Shape  `json:"shapes"`
}

func (v *Viewer) handleShapes(w http.ResponseWriter, _ *http.Request) {
	resp := shapesResponse{
		Version:  v.store.Version(),
		Geometry: v.geometry,
		Shapes:   v.store.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		v.logger.Warn("failed to write shapes", "error", err)
	}
}

func (v *Viewer) handlePNG(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := EncodePNG(w, v.store.Snapshot(), v.geometry); err != nil {
		v.logger.Warn("failed to write canvas png", "error", err)
	}
}

func (v *Viewer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := fmt.Sprintf(indexPage, v.geometry.Width, v.geometry.Height)
	if _, err := io.WriteString(w, page); err != nil {
		v.logger.Warn("failed to write viewer page", "error", err)
	}
}

// liveHandler streams store versions to the browser as server-sent events.
func (v *Viewer) liveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		updates, cancel := v.store.Subscribe()
		defer cancel()
		v.metrics.ViewerConnected()
		defer v.metrics.ViewerDisconnected()

		_, _ = fmt.Fprintf(w, "event: hello\ndata: %d\n\n", v.store.Version()) //nolint:errcheck
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case version, ok := <-updates:
				if !ok {
					return
				}
				_, _ = fmt.Fprintf(w, "event: update\ndata: %d\n\n", version) //nolint:errcheck
				flusher.Flush()
			}
		}
	})
}

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>NeuroDraws</title></head>
<body style="margin:0;background:#222">
<img id="canvas" src="/canvas.png" width="%d" height="%d" alt="canvas">
<script>
(() => {
  const img = document.getElementById('canvas');
  const source = new EventSource('/live');
  source.addEventListener('update', (e) => {
    img.src = '/canvas.png?v=' + e.data;
  });
})();
</script>
</body>
</html>
`

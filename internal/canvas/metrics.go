package canvas

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the canvas game. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ActionsTotal  *prometheus.CounterVec
	Shapes        *prometheus.GaugeVec
	FramesTotal   prometheus.Counter
	ActiveViewers prometheus.Gauge
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide metrics registered on the default
// prometheus registry.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewMetricsWith(prometheus.DefaultRegisterer)
	})
	return metricsInstance
}

// NewMetricsWith registers a fresh set of metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neurodraws_actions_total",
			Help: "Total number of action invocations handled, by action and outcome",
		}, []string{"action", "outcome"}),
		Shapes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neurodraws_canvas_shapes",
			Help: "Current number of shapes on the canvas, by placement state",
		}, []string{"state"}),
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "neurodraws_render_frames_total",
			Help: "Total number of frames drawn by the renderer",
		}),
		ActiveViewers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neurodraws_viewer_active_streams",
			Help: "Current number of live viewer streams",
		}),
	}
}

// RecordAction counts one handled invocation of action.
func (m *Metrics) RecordAction(action string, success bool) {
	if m == nil || m.ActionsTotal == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// SetShapes reports the current shape counts.
func (m *Metrics) SetShapes(placed, unplaced int) {
	if m == nil || m.Shapes == nil {
		return
	}
	m.Shapes.WithLabelValues("placed").Set(float64(placed))
	m.Shapes.WithLabelValues("unplaced").Set(float64(unplaced))
}

// RecordFrame counts one drawn frame.
func (m *Metrics) RecordFrame() {
	if m == nil || m.FramesTotal == nil {
		return
	}
	m.FramesTotal.Inc()
}

// ViewerConnected tracks a new live viewer stream.
func (m *Metrics) ViewerConnected() {
	if m == nil || m.ActiveViewers == nil {
		return
	}
	m.ActiveViewers.Inc()
}

// ViewerDisconnected tracks a closed live viewer stream.
func (m *Metrics) ViewerDisconnected() {
	if m == nil || m.ActiveViewers == nil {
		return
	}
	m.ActiveViewers.Dec()
}

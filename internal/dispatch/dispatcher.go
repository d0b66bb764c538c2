// Package dispatch routes action invocations from the Neuro API to the shape
// store and reports their results.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/neurodraws/internal/actions"
	"github.com/haasonsaas/neurodraws/internal/canvas"
)

// Random placement bounds, inclusive.
const (
	MinX = 50
	MaxX = 750
	MinY = 50
	MaxY = 550
)

// Rand is the random source used for shuffle and spawn_random_square.
type Rand interface {
	IntN(n int) int
}

// Invocation is one action request from the agent.
type Invocation struct {
	ID     string
	Name   string
	Params json.RawMessage
}

// Result is the outcome reported back for an Invocation.
type Result struct {
	ID      string
	Success bool
	Message string
}

// Dispatcher applies invocations to a shape store.
type Dispatcher struct {
	store   *canvas.Store
	rand    Rand
	metrics *canvas.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.rand = r
		}
	}
}

// WithMetrics counts invocations by action and outcome.
func WithMetrics(m *canvas.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer sets the tracer used for per-action spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher bound to store.
func New(store *canvas.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		tracer: otel.Tracer("github.com/haasonsaas/neurodraws/internal/dispatch"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")
	return d
}

// Dispatch applies one invocation and returns its result. It never fails:
// rejected invocations produce a result with Success false.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) Result {
	ctx, span := d.tracer.Start(ctx, "action "+inv.Name, trace.WithAttributes(
		attribute.String("neuro.action.id", inv.ID),
		attribute.String("neuro.action.name", inv.Name),
	))
	defer span.End()

	message, err := d.apply(inv)
	result := Result{ID: inv.ID, Success: err == nil, Message: message}
	if err != nil {
		result.Message = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("neuro.action.success", result.Success))

	label := inv.Name
	if errors.Is(err, actions.ErrUnknownAction) {
		label = "unknown"
	}
	d.metrics.RecordAction(label, result.Success)

	d.logger.DebugContext(ctx, "action handled",
		"id", inv.ID,
		"action", inv.Name,
		"success", result.Success,
		"message", result.Message,
	)
	return result
}

func (d *Dispatcher) apply(inv Invocation) (string, error) {
	switch inv.Name {
	case actions.Place:
		shape, ok := d.store.Place()
		if !ok {
			return "No square to place.", nil
		}
		return "Placed square at " + shape.Position.String() + ".", nil

	case actions.Shuffle:
		shape, ok := d.store.Relocate(d.randomPoint())
		if !ok {
			return "No square to shuffle.", nil
		}
		return "Moved square to " + shape.Position.String() + ".", nil

	case actions.SpawnSquare:
		params, err := actions.Decode[actions.SpawnSquareParams](inv.Name, inv.Params)
		if err != nil {
			return "", err
		}
		color := canvas.RGB{R: uint8(params.RGB[0]), G: uint8(params.RGB[1]), B: uint8(params.RGB[2])}
		shape := d.store.Spawn(canvas.Point{X: params.X, Y: params.Y}, color)
		return "Spawned square at " + shape.Position.String() + " with color " + shape.Color.String() + ".", nil

	case actions.SpawnRandomSquare:
		shape := d.store.Spawn(d.randomPoint(), d.randomColor())
		return "Spawned square at " + shape.Position.String() + " with color " + shape.Color.String() + ".", nil

	case actions.MoveSquare:
		params, err := actions.Decode[actions.MoveSquareParams](inv.Name, inv.Params)
		if err != nil {
			return "", err
		}
		shape, ok := d.store.Relocate(canvas.Point{X: params.X, Y: params.Y})
		if !ok {
			return "No square to move.", nil
		}
		return "Moved square to " + shape.Position.String() + ".", nil
	}
	return "", actions.UnknownAction(inv.Name)
}

func (d *Dispatcher) randomPoint() canvas.Point {
	return canvas.Point{
		X: MinX + d.rand.IntN(MaxX-MinX+1),
		Y: MinY + d.rand.IntN(MaxY-MinY+1),
	}
}

func (d *Dispatcher) randomColor() canvas.RGB {
	return canvas.RGB{
		R: uint8(d.rand.IntN(256)),
		G: uint8(d.rand.IntN(256)),
		B: uint8(d.rand.IntN(256)),
	}
}

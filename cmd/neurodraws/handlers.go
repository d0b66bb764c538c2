package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/neurodraws/internal/actions"
	"github.com/haasonsaas/neurodraws/internal/canvas"
	"github.com/haasonsaas/neurodraws/internal/config"
	"github.com/haasonsaas/neurodraws/internal/dispatch"
	"github.com/haasonsaas/neurodraws/internal/neuro"
	"github.com/haasonsaas/neurodraws/internal/observability"
	"github.com/haasonsaas/neurodraws/internal/render"
)

// defaultTerminalLogFile receives logs when the terminal renderer owns the
// screen and no logging.file is configured.
const defaultTerminalLogFile = "neurodraws.log"

// loadConfig resolves the config file and applies command line overrides.
func loadConfig(flags runFlags) (*config.Config, string, error) {
	cfg, path, err := config.Resolve(flags.configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if flags.url != "" {
		cfg.Neuro.URL = flags.url
	}
	if flags.renderer != "" {
		cfg.Render.Backend = flags.renderer
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setupLogging builds the process logger. When the terminal renderer is going
// to draw on the screen, logs are redirected to a file.
func setupLogging(cfg *config.Config) (*slog.Logger, *slog.LevelVar, func(), error) {
	var (
		out     io.Writer = os.Stderr
		closeFn           = func() {}
	)
	file := cfg.Logging.File
	if file == "" && render.UsesTerminal(cfg.Render.Backend) {
		file = defaultTerminalLogFile
	}
	if file != "" {
		f, err := observability.OpenLogFile(file)
		if err != nil {
			return nil, nil, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	logger, level := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	return logger, level, closeFn, nil
}

func geometryOf(cfg *config.Config) canvas.Geometry {
	return canvas.Geometry{
		Width:     cfg.Canvas.Width,
		Height:    cfg.Canvas.Height,
		ShapeSize: cfg.Canvas.ShapeSize,
	}
}

// runGame implements the run command: renderer, optional viewer, and the
// dispatch loop over the Neuro connection.
func runGame(ctx context.Context, flags runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, configPath, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, level, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting NeuroDraws",
		"version", version,
		"commit", commit,
		"config", configPath,
		"url", cfg.Neuro.URL,
		"renderer", cfg.Render.Backend,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracer, shutdownTracing := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "neurodraws",
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		EnableInsecure: cfg.Tracing.InsecureTransport(),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	metrics := canvas.NewMetrics()
	store := canvas.NewStore(
		canvas.WithMaxPlaced(cfg.Canvas.MaxPlaced),
		canvas.WithMetrics(metrics),
	)
	geometry := geometryOf(cfg)

	if cfg.Viewer.Enabled {
		viewer, err := canvas.NewViewer(store, geometry, logger)
		if err != nil {
			return err
		}
		viewer.SetMetrics(metrics)
		go func() {
			if err := viewer.Serve(ctx, cfg.Viewer.Addr); err != nil {
				logger.Error("canvas viewer stopped", "error", err)
			}
		}()
	}

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, 0, logger, func(next *config.Config, err error) {
				if err != nil {
					return
				}
				if flags.debug {
					return
				}
				level.Set(observability.LogLevelFromString(next.Logging.Level))
			})
			if err != nil {
				logger.Warn("config watch disabled", "error", err)
			}
		}()
	}

	renderer, err := render.New(render.Options{
		Backend:  cfg.Render.Backend,
		PNGPath:  cfg.Render.PNGPath,
		Geometry: geometry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	renderDone := renderInBackground(ctx, cancel, store, renderer, cfg.Render.FPS, metrics, logger)
	defer func() {
		cancel()
		<-renderDone
		if err := renderer.Close(); err != nil {
			logger.Warn("renderer close failed", "error", err)
		}
	}()

	ch, err := neuro.Dial(ctx, neuro.DialConfig{
		URL:              cfg.Neuro.URL,
		HandshakeTimeout: cfg.Neuro.HandshakeTimeout,
		Attempts:         cfg.Neuro.DialAttempts,
		Backoff:          cfg.Neuro.DialBackoff,
	}, logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() { _ = ch.Close() }()

	dispatcher := dispatch.New(store,
		dispatch.WithMetrics(metrics),
		dispatch.WithTracer(tracer.Tracer()),
		dispatch.WithLogger(logger),
	)
	loop := dispatch.NewLoop(dispatch.LoopConfig{
		Game:            cfg.Game.Name,
		AnnounceStartup: cfg.Game.AnnounceStartup,
	}, dispatcher, logger)

	err = loop.Serve(ctx, ch)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	var cerr *neuro.ChannelError
	if errors.As(err, &cerr) {
		logger.Error("lost connection to the Neuro API", "error", err)
	}
	return err
}

// renderInBackground runs the frame loop until ctx is done. Closing the view
// ends rendering only and the game keeps serving actions. An interrupt from
// the view stops the process through stop.
func renderInBackground(ctx context.Context, stop context.CancelFunc, src render.Source, r render.Renderer, fps int, metrics *canvas.Metrics, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := render.Run(ctx, src, r, fps,
			render.WithMetrics(metrics),
			render.WithLogger(logger),
		)
		switch {
		case errors.Is(err, render.ErrInterrupted):
			logger.Info("interrupted from the render view, shutting down")
			stop()
		case errors.Is(err, render.ErrTerminated):
			logger.Info("render view closed, still serving actions")
			if err := r.Close(); err != nil {
				logger.Warn("renderer close failed", "error", err)
			}
		case err != nil && ctx.Err() == nil:
			logger.Error("render loop stopped", "error", err)
		}
	}()
	return done
}

// runProbe connects once, registers the actions and prints the first reply.
func runProbe(ctx context.Context, out io.Writer, configPath, url string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfig(runFlags{configPath: configPath, url: url})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Neuro.HandshakeTimeout+timeout)
	defer cancel()

	ch, err := neuro.Dial(ctx, neuro.DialConfig{
		URL:              cfg.Neuro.URL,
		HandshakeTimeout: cfg.Neuro.HandshakeTimeout,
		Attempts:         1,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	msg, err := actions.BuildRegistration(cfg.Game.Name)
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %d actions with %s\n", len(actions.Names()), cfg.Neuro.URL)

	replyCtx, replyCancel := context.WithTimeout(ctx, timeout)
	defer replyCancel()
	reply, err := ch.Receive(replyCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(out, "no reply within %s\n", timeout)
			return nil
		}
		return err
	}
	encoded, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", encoded)
	return nil
}

func printActions(out io.Writer, game string) error {
	msg, err := actions.BuildRegistration(game)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}

func printConfigSchema(out io.Writer) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", schema)
	return err
}

func printConfig(out io.Writer, configPath string) error {
	cfg, _, err := loadConfig(runFlags{configPath: configPath})
	if err != nil {
		return err
	}
	encoded, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(encoded)
	return err
}

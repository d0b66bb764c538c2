package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeNamedConfig(t, t.TempDir(), "neurodraws.yaml", content)
}

func writeNamedConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Game.Name != "NeuroDraws" {
		t.Fatalf("unexpected game name %q", cfg.Game.Name)
	}
	if cfg.Neuro.URL != "ws://localhost:8000/" {
		t.Fatalf("unexpected url %q", cfg.Neuro.URL)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 600 || cfg.Canvas.ShapeSize != 100 {
		t.Fatalf("unexpected canvas %+v", cfg.Canvas)
	}
	if cfg.Canvas.MaxPlaced != 0 {
		t.Fatalf("expected unbounded canvas by default")
	}
	if cfg.Render.FPS != 30 || cfg.Render.Backend != "auto" {
		t.Fatalf("unexpected render %+v", cfg.Render)
	}
	if cfg.Game.AnnounceStartup {
		t.Fatalf("startup announcement must be off by default")
	}
	if !cfg.Tracing.InsecureTransport() {
		t.Fatalf("expected insecure tracing transport by default")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
game:
  name: Paint
  announce_startup: true
neuro:
  url: ws://example.test:9000/
  handshake_timeout: 3s
  dial_backoff:
    initial: 50ms
canvas:
  max_placed: 10
tracing:
  insecure: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Game.Name != "Paint" || !cfg.Game.AnnounceStartup {
		t.Fatalf("unexpected game %+v", cfg.Game)
	}
	if cfg.Neuro.HandshakeTimeout != 3*time.Second {
		t.Fatalf("unexpected handshake timeout %v", cfg.Neuro.HandshakeTimeout)
	}
	if cfg.Neuro.DialBackoff.Initial != 50*time.Millisecond || cfg.Neuro.DialBackoff.Factor != 2 {
		t.Fatalf("unexpected backoff %+v", cfg.Neuro.DialBackoff)
	}
	if cfg.Canvas.MaxPlaced != 10 || cfg.Canvas.Width != 800 {
		t.Fatalf("unexpected canvas %+v", cfg.Canvas)
	}
	if cfg.Tracing.InsecureTransport() {
		t.Fatalf("expected explicit insecure: false to be kept")
	}
}

func TestLoadJSON5(t *testing.T) {
	dir := t.TempDir()
	path := writeNamedConfig(t, dir, "neurodraws.json5", `{
  // comments are allowed
  render: { backend: "png", png_path: "out.png", fps: 5 },
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Render.Backend != "png" || cfg.Render.PNGPath != "out.png" || cfg.Render.FPS != 5 {
		t.Fatalf("unexpected render %+v", cfg.Render)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
canvas:
  width: 800
  colour: red
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadValidates(t *testing.T) {
	tests := []struct {
		name    string
		content string
		contain string
	}{
		{name: "bad url scheme", content: "neuro:\n  url: http://localhost:8000/\n", contain: "neuro.url"},
		{name: "bad backend", content: "render:\n  backend: opengl\n", contain: "render.backend"},
		{name: "negative max placed", content: "canvas:\n  max_placed: -1\n", contain: "max_placed"},
		{name: "bad level", content: "logging:\n  level: loud\n", contain: "logging.level"},
		{name: "bad sampling", content: "tracing:\n  sampling_rate: 2\n", contain: "sampling_rate"},
		{name: "bad viewer addr", content: "viewer:\n  enabled: true\n  addr: nope\n", contain: "viewer.addr"},
		{name: "future version", content: "version: 9\n", contain: "newer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Fatalf("expected %q in error, got %v", tt.contain, err)
			}
		})
	}
}

func TestLoadCollectsAllIssues(t *testing.T) {
	_, err := Load(writeConfig(t, "render:\n  fps: -1\nlogging:\n  format: xml\n"))
	var verr *ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
	if len(verr.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", verr.Issues)
	}
}

func TestLoadIncludesAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeNamedConfig(t, dir, "base.yaml", `
game:
  name: Base
neuro:
  url: ws://base:8000/
canvas:
  width: 1024
`)
	t.Setenv("NEURO_HOST", "envhost")
	path := writeNamedConfig(t, dir, "main.yaml", `
$include: base.yaml
neuro:
  url: ws://${NEURO_HOST}:8000/
logging:
  level: ${NEURODRAWS_TEST_UNSET:-debug}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Game.Name != "Base" || cfg.Canvas.Width != 1024 {
		t.Fatalf("include not merged: %+v %+v", cfg.Game, cfg.Canvas)
	}
	if cfg.Neuro.URL != "ws://envhost:8000/" {
		t.Fatalf("expected env expansion to override include, got %q", cfg.Neuro.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected fallback level, got %q", cfg.Logging.Level)
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeNamedConfig(t, dir, "a.yaml", "$include: b.yaml\n")
	path := writeNamedConfig(t, dir, "b.yaml", "$include: a.yaml\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Run("missing default is not an error", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(EnvConfigPath, "")
		cfg, path, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if path != "" || cfg.Game.Name != "NeuroDraws" {
			t.Fatalf("expected defaults, got path %q cfg %+v", path, cfg.Game)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		if _, _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatalf("expected error for missing explicit config")
		}
	})

	t.Run("env path", func(t *testing.T) {
		path := writeConfig(t, "game:\n  name: FromEnv\n")
		t.Setenv(EnvConfigPath, path)
		cfg, got, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != path || cfg.Game.Name != "FromEnv" {
			t.Fatalf("unexpected resolve result %q %+v", got, cfg.Game)
		}
	})
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	for _, key := range []string{"neuro", "canvas", "max_placed", "dial_backoff", "announce_startup"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Fatalf("schema missing %q", key)
		}
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "game:\n  name: First\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, nil, func(cfg *Config, err error) {
			if err == nil {
				changes <- cfg
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		// Rewrite until the watcher is attached and reports the new value.
		if err := os.WriteFile(path, []byte("game:\n  name: Second\n"), 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		select {
		case cfg := <-changes:
			if cfg.Game.Name != "Second" {
				t.Fatalf("unexpected reloaded name %q", cfg.Game.Name)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch() error = %v", err)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		}
	}
}

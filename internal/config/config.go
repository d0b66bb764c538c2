package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/haasonsaas/neurodraws/internal/backoff"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "NEURODRAWS_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath names a file.
const DefaultPath = "neurodraws.yaml"

// Config is the main configuration structure for NeuroDraws.
type Config struct {
	Version int           `yaml:"version"`
	Game    GameConfig    `yaml:"game"`
	Neuro   NeuroConfig   `yaml:"neuro"`
	Canvas  CanvasConfig  `yaml:"canvas"`
	Render  RenderConfig  `yaml:"render"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type GameConfig struct {
	// Name is sent as "game" on every outbound message.
	Name            string `yaml:"name"`
	AnnounceStartup bool   `yaml:"announce_startup"`
}

// NeuroConfig describes how to reach the Neuro API websocket.
type NeuroConfig struct {
	URL              string         `yaml:"url"`
	HandshakeTimeout time.Duration  `yaml:"handshake_timeout"`
	DialAttempts     int            `yaml:"dial_attempts"`
	DialBackoff      backoff.Policy `yaml:"dial_backoff"`
}

type CanvasConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	ShapeSize int `yaml:"shape_size"`
	// MaxPlaced bounds the number of placed shapes; 0 keeps all of them.
	MaxPlaced int `yaml:"max_placed"`
}

type RenderConfig struct {
	Backend string `yaml:"backend"` // auto | terminal | png | none
	FPS     int    `yaml:"fps"`
	PNGPath string `yaml:"png_path"`
}

// ViewerConfig controls the HTTP canvas viewer.
type ViewerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives logs instead of stderr. Set it when the terminal renderer
	// owns the screen.
	File string `yaml:"file"`
}

// TracingConfig controls OpenTelemetry tracing. An empty endpoint disables
// export.
type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	Insecure     *bool   `yaml:"insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// InsecureTransport reports whether the exporter skips TLS. Defaults to true.
func (t TracingConfig) InsecureTransport() bool {
	return t.Insecure == nil || *t.Insecure
}

// ConfigValidationError lists every problem found in a configuration.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Issues, "; ")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, merges, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve picks the config path from flag, then EnvConfigPath, then
// DefaultPath, and loads it. A missing file is only an error when the path
// was given explicitly.
func Resolve(flagPath string) (*Config, string, error) {
	path := strings.TrimSpace(flagPath)
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return nil, path, err
	}
	return cfg, path, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.Game.Name == "" {
		cfg.Game.Name = "NeuroDraws"
	}
	if cfg.Neuro.URL == "" {
		cfg.Neuro.URL = "ws://localhost:8000/"
	}
	if cfg.Neuro.HandshakeTimeout == 0 {
		cfg.Neuro.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Neuro.DialAttempts == 0 {
		cfg.Neuro.DialAttempts = 5
	}
	defaults := backoff.DefaultPolicy()
	if cfg.Neuro.DialBackoff.Initial == 0 {
		cfg.Neuro.DialBackoff.Initial = defaults.Initial
	}
	if cfg.Neuro.DialBackoff.Max == 0 {
		cfg.Neuro.DialBackoff.Max = defaults.Max
	}
	if cfg.Neuro.DialBackoff.Factor == 0 {
		cfg.Neuro.DialBackoff.Factor = defaults.Factor
	}
	if cfg.Canvas.Width == 0 {
		cfg.Canvas.Width = 800
	}
	if cfg.Canvas.Height == 0 {
		cfg.Canvas.Height = 600
	}
	if cfg.Canvas.ShapeSize == 0 {
		cfg.Canvas.ShapeSize = 100
	}
	if cfg.Render.Backend == "" {
		cfg.Render.Backend = "auto"
	}
	if cfg.Render.FPS == 0 {
		cfg.Render.FPS = 30
	}
	if cfg.Render.PNGPath == "" {
		cfg.Render.PNGPath = "canvas.png"
	}
	if cfg.Viewer.Addr == "" {
		cfg.Viewer.Addr = "127.0.0.1:8090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1
	}
}

// Validate reports every invalid setting at once.
func Validate(cfg *Config) error {
	var issues []string

	if strings.TrimSpace(cfg.Game.Name) == "" {
		issues = append(issues, "game.name must not be empty")
	}

	if u, err := url.Parse(cfg.Neuro.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("neuro.url must be a ws:// or wss:// URL, got %q", cfg.Neuro.URL))
	}
	if cfg.Neuro.HandshakeTimeout < 0 {
		issues = append(issues, "neuro.handshake_timeout must not be negative")
	}
	if cfg.Neuro.DialAttempts < 1 {
		issues = append(issues, "neuro.dial_attempts must be at least 1")
	}
	if b := cfg.Neuro.DialBackoff; b.Initial < 0 || b.Max < 0 || b.Factor < 1 || b.Jitter < 0 || b.Jitter > 1 {
		issues = append(issues, "neuro.dial_backoff requires non-negative delays, factor >= 1 and jitter in [0, 1]")
	}

	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 || cfg.Canvas.ShapeSize <= 0 {
		issues = append(issues, "canvas.width, canvas.height and canvas.shape_size must be positive")
	}
	if cfg.Canvas.MaxPlaced < 0 {
		issues = append(issues, "canvas.max_placed must not be negative")
	}

	switch cfg.Render.Backend {
	case "auto", "terminal", "png", "none":
	default:
		issues = append(issues, fmt.Sprintf("render.backend must be one of auto, terminal, png, none; got %q", cfg.Render.Backend))
	}
	if cfg.Render.FPS <= 0 || cfg.Render.FPS > 240 {
		issues = append(issues, "render.fps must be between 1 and 240")
	}

	if cfg.Viewer.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Viewer.Addr); err != nil {
			issues = append(issues, fmt.Sprintf("viewer.addr is not host:port: %v", err))
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("logging.format %q is not json or text", cfg.Logging.Format))
	}

	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		issues = append(issues, "tracing.sampling_rate must be between 0 and 1")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic-queue/internal/logx"
	"clinic-queue/internal/slots"
)

// Config is the whole process configuration. Every section may be omitted.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Board   BoardConfig   `json:"board"`
	Client  ClientConfig  `json:"client"`
	Logging LoggingConfig `json:"logging"`
}

type ServerConfig struct {
	Addr   string `json:"addr,omitempty"`
	WSPath string `json:"ws_path,omitempty"`
	// StaticDir, when set, is served at "/".
	StaticDir string `json:"static_dir,omitempty"`
	// AllowedOrigins lists accepted websocket Origin hosts. Empty allows any.
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	ReadHeaderTimeout Duration `json:"read_header_timeout,omitempty"`
	ShutdownTimeout   Duration `json:"shutdown_timeout,omitempty"`
}

type BoardConfig struct {
	SlotCount int `json:"slot_count,omitempty"`
}

// ClientConfig tunes each websocket connection.
//
// SendBuffer is raised to at least twice the slot count so a joining client
// always has room for the full replay.
type ClientConfig struct {
	SendBuffer      int      `json:"send_buffer,omitempty"`
	WriteTimeout    Duration `json:"write_timeout,omitempty"`
	PongTimeout     Duration `json:"pong_timeout,omitempty"`
	MaxMessageBytes int64    `json:"max_message_bytes,omitempty"`
	// RatePerSec limits inbound messages per connection. 0 disables the limit.
	RatePerSec int `json:"rate_per_sec"`
	Burst      int `json:"burst,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

const (
	DefaultAddr            = ":12345"
	DefaultWSPath          = "/ws/queue"
	DefaultSendBuffer      = 256
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPongTimeout     = 60 * time.Second
	DefaultMaxMessageBytes = 4096
	DefaultRatePerSec      = 50
	DefaultBurst           = 100
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := base()
	cfg.Normalize()
	return cfg
}

// base holds the defaults that an explicit zero in a file may override.
func base() *Config {
	return &Config{
		Client:  ClientConfig{RatePerSec: DefaultRatePerSec},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Server.WSPath) == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = Duration(5 * time.Second)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(5 * time.Second)
	}

	if c.Board.SlotCount == 0 {
		c.Board.SlotCount = slots.DefaultCount
	}

	if c.Client.SendBuffer == 0 {
		c.Client.SendBuffer = DefaultSendBuffer
	}
	if floor := 2 * c.Board.SlotCount; c.Client.SendBuffer > 0 && c.Client.SendBuffer < floor {
		c.Client.SendBuffer = floor
	}
	if c.Client.WriteTimeout <= 0 {
		c.Client.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Client.PongTimeout <= 0 {
		c.Client.PongTimeout = Duration(DefaultPongTimeout)
	}
	if c.Client.MaxMessageBytes == 0 {
		c.Client.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.Client.RatePerSec > 0 && c.Client.Burst == 0 {
		c.Client.Burst = max(DefaultBurst, c.Client.RatePerSec)
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Board.SlotCount < 1 {
		errs = append(errs, fmt.Errorf("board.slot_count: must be >= 1, got %d", c.Board.SlotCount))
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		errs = append(errs, fmt.Errorf("server.ws_path: must start with \"/\", got %q", c.Server.WSPath))
	}
	if c.Client.SendBuffer < 0 {
		errs = append(errs, fmt.Errorf("client.send_buffer: must be >= 0"))
	}
	if c.Client.MaxMessageBytes < 0 {
		errs = append(errs, fmt.Errorf("client.max_message_bytes: must be >= 0"))
	}
	if c.Client.RatePerSec < 0 || c.Client.Burst < 0 {
		errs = append(errs, fmt.Errorf("client.rate_per_sec/burst: must be >= 0"))
	}
	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// LogConfig converts the logging section for logx.Service.Apply.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// RestartRequired lists the sections of next that differ from c and cannot be
// applied to a running process.
func (c *Config) RestartRequired(next *Config) []string {
	var out []string
	if c.Board.SlotCount != next.Board.SlotCount {
		out = append(out, "board.slot_count")
	}
	if c.Server.Addr != next.Server.Addr ||
		c.Server.WSPath != next.Server.WSPath ||
		c.Server.StaticDir != next.Server.StaticDir ||
		strings.Join(c.Server.AllowedOrigins, ",") != strings.Join(next.Server.AllowedOrigins, ",") {
		out = append(out, "server")
	}
	if c.Client != next.Client {
		out = append(out, "client")
	}
	return out
}

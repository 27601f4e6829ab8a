// Package logx is the structured logger shared by all services.
package logx

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"` // "stdout" | "stderr"
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

var (
	mu     sync.RWMutex
	global zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init replaces the process logger. An unknown level is an error and leaves
// the previous logger in place.
func Init(cfg Config) error {
	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = l
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}
	SetLogger(zerolog.New(out).Level(level).With().Timestamp().Logger())
	return nil
}

// SetLogger installs l as the process logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

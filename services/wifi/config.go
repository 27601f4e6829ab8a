package wifi

import (
	"context"
	"time"

	"wificode-go/bus"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/reconnect"
	"wificode-go/services/wifi/internal/selector"
	"wificode-go/x/timex"
	"wificode-go/x/util"
)

// Config is the "wifi" object of the device config. Zero fields take the
// defaults below.
type Config struct {
	AutoConnect   *bool `json:"auto_connect,omitempty"`
	SignalFloor   int   `json:"signal_floor,omitempty"`
	MaxRetries    int   `json:"max_retries,omitempty"`
	BackoffMs     int   `json:"backoff_ms,omitempty"`
	LockTimeoutMs int   `json:"lock_timeout_ms,omitempty"`
	MaxFailures   int   `json:"loop_max_failures,omitempty"`
	BootDelayMs   int   `json:"boot_delay_ms,omitempty"`
	RetryMs       int   `json:"retry_interval_ms,omitempty"`
	CooldownMs    int   `json:"cooldown_ms,omitempty"`
}

func DefaultConfig() Config {
	on := true
	return Config{
		AutoConnect:   &on,
		SignalFloor:   selector.FloorViable,
		MaxRetries:    5,
		BackoffMs:     1000,
		LockTimeoutMs: 500,
		MaxFailures:   reconnect.DefaultMaxFailures,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AutoConnect == nil {
		c.AutoConnect = d.AutoConnect
	}
	if c.SignalFloor == 0 {
		c.SignalFloor = d.SignalFloor
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BackoffMs <= 0 {
		c.BackoffMs = d.BackoffMs
	}
	if c.LockTimeoutMs <= 0 {
		c.LockTimeoutMs = d.LockTimeoutMs
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = d.MaxFailures
	}
	return c
}

func (c Config) timing() reconnect.Timing {
	t := reconnect.DefaultTiming()
	t.BootDelay = timex.Ms(c.BootDelayMs, t.BootDelay)
	t.RetryInterval = timex.Ms(c.RetryMs, t.RetryInterval)
	t.Cooldown = timex.Ms(c.CooldownMs, t.Cooldown)
	return t
}

// awaitConfig waits up to wait for the retained config/wifi message. A
// missing or undecodable config yields the defaults.
func (s *Service) awaitConfig(ctx context.Context, conn *bus.Connection, wait time.Duration) Config {
	sub := conn.Subscribe(bus.T(consts.TokConfig, consts.TokWiFi))
	defer conn.Unsubscribe(sub)

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		s.log.Info().Msg("no wifi config, using defaults")
	case msg := <-sub.Channel():
		var c Config
		if err := util.DecodeJSON(msg.Payload, &c); err != nil {
			s.log.Warn().Err(err).Msg("bad wifi config, using defaults")
			break
		}
		return c.withDefaults()
	}
	return DefaultConfig()
}

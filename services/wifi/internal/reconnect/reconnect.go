// Package reconnect runs the background loop that restores connectivity
// when nothing else is driving the radio.
package reconnect

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/errcode"
	"wificode-go/services/wifi/internal/selector"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/util"
)

// Timing holds every wait the loop and the auto-connect sequence use.
type Timing struct {
	BootDelay        time.Duration
	ConnectedPoll    time.Duration
	BusyBackoff      time.Duration
	PreAttempt       time.Duration
	AfterSuccess     time.Duration
	RetryInterval    time.Duration
	Cooldown         time.Duration
	DisconnectSettle time.Duration
	StopScanSettle   time.Duration
	IdlePoll         time.Duration
	IdlePolls        int
	ScanRetryDelay   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		BootDelay:        10 * time.Second,
		ConnectedPoll:    30 * time.Second,
		BusyBackoff:      10 * time.Second,
		PreAttempt:       2 * time.Second,
		AfterSuccess:     15 * time.Second,
		RetryInterval:    20 * time.Second,
		Cooldown:         60 * time.Second,
		DisconnectSettle: 2 * time.Second,
		StopScanSettle:   500 * time.Millisecond,
		IdlePoll:         500 * time.Millisecond,
		IdlePolls:        10,
		ScanRetryDelay:   1 * time.Second,
	}
}

const DefaultMaxFailures = 3

// Store is the read side of the history store.
type Store interface {
	List(ctx context.Context, max int) ([]types.NetworkRecord, error)
}

// Notifier learns about connects issued by the loop.
type Notifier interface {
	NoteAttempt(cfg radio.Config)
}

type Options struct {
	Timing      Timing
	MaxFailures int
	Floor       int
	Sleep       util.SleepFunc
	Logger      *zerolog.Logger
}

type Loop struct {
	r      radio.Radio
	store  Store
	note   Notifier
	t      Timing
	max    int
	floor  int
	sleep  util.SleepFunc
	log    zerolog.Logger
	failed int
}

// New builds a loop. A zero Options.Timing means DefaultTiming and a zero
// Floor means selector.FloorViable.
func New(r radio.Radio, store Store, note Notifier, opt Options) *Loop {
	l := &Loop{
		r:     r,
		store: store,
		note:  note,
		t:     opt.Timing,
		max:   opt.MaxFailures,
		floor: opt.Floor,
		sleep: opt.Sleep,
	}
	if l.t == (Timing{}) {
		l.t = DefaultTiming()
	}
	if l.max <= 0 {
		l.max = DefaultMaxFailures
	}
	if l.floor == 0 {
		l.floor = selector.FloorViable
	}
	if l.sleep == nil {
		l.sleep = util.Sleep
	}
	if opt.Logger != nil {
		l.log = *opt.Logger
	} else {
		l.log = logx.WithComponent("wifi.reconnect")
	}
	return l
}

// Run waits for the boot delay and then cycles until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info().Dur("boot_delay", l.t.BootDelay).Msg("reconnect loop started")
	if !l.sleep(ctx, l.t.BootDelay) {
		return
	}
	for l.Cycle(ctx) {
	}
	l.log.Info().Msg("reconnect loop stopped")
}

// Cycle runs one iteration including its trailing sleep. It reports false
// once ctx is done.
func (l *Loop) Cycle(ctx context.Context) bool {
	if l.connected() {
		l.failed = 0
		return l.sleep(ctx, l.t.ConnectedPoll)
	}
	if l.busy() {
		l.log.Debug().Msg("connect in progress, skipping")
		return l.sleep(ctx, l.t.BusyBackoff)
	}
	if l.failed >= l.max {
		l.log.Warn().Int("failed", l.failed).Dur("cooldown", l.t.Cooldown).Msg("too many failed attempts, pausing")
		ok := l.sleep(ctx, l.t.Cooldown)
		l.failed = 0
		return ok
	}

	l.log.Info().Int("attempt", l.failed+1).Msg("trying remembered networks")
	if !l.sleep(ctx, l.t.PreAttempt) {
		return false
	}
	if err := l.AutoConnect(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		l.failed++
		l.log.Warn().Err(err).Int("failed", l.failed).Msg("auto connect failed")
	} else {
		l.failed = 0
		if !l.sleep(ctx, l.t.AfterSuccess) {
			return false
		}
	}
	return l.sleep(ctx, l.t.RetryInterval)
}

// Failed is the current failed-attempt count.
func (l *Loop) Failed() int { return l.failed }

func (l *Loop) connected() bool {
	ip, err := l.r.Addr()
	if err != nil || !ip.IsValid() || ip.IsUnspecified() {
		return false
	}
	_, err = l.r.AssociatedInfo()
	return err == nil
}

// busy is a best-effort check; it cannot rule out an orchestrator retry
// starting right after it returns.
func (l *Loop) busy() bool {
	if m := l.r.Mode(); m != radio.ModeSTA && m != radio.ModeAPSTA {
		return false
	}
	if p, ok := l.r.(radio.BusyProber); ok {
		return p.Connecting()
	}
	cfg := l.r.ActiveConfig()
	if cfg.SSID == "" {
		return false
	}
	err := l.r.Connect(cfg)
	if err == nil {
		// The check started an attempt with the active config. That config
		// may be stale, so selection still runs.
		l.note.NoteAttempt(cfg)
		return false
	}
	return errors.Is(err, radio.ErrBusy)
}

// AutoConnect scans, picks the best remembered network and starts a
// connect to it.
func (l *Loop) AutoConnect(ctx context.Context) error {
	const op = "reconnect.auto_connect"
	if m := l.r.Mode(); m != radio.ModeSTA && m != radio.ModeAPSTA {
		return errcode.New(errcode.InvalidState, op, "station mode disabled")
	}

	if _, err := l.r.AssociatedInfo(); err == nil {
		l.log.Info().Msg("disconnecting before scan")
		_ = l.r.Disconnect()
		if !l.sleep(ctx, l.t.DisconnectSettle) {
			return ctx.Err()
		}
	}
	_ = l.r.StopScan()
	if !l.sleep(ctx, l.t.StopScanSettle) {
		return ctx.Err()
	}
	if !l.waitIdle(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn().Msg("radio not idle, scanning anyway")
	}

	scans, err := l.r.Scan(ctx)
	if errors.Is(err, radio.ErrState) {
		l.log.Info().Msg("scan refused, resetting radio and retrying")
		_ = l.r.Disconnect()
		if !l.sleep(ctx, l.t.ScanRetryDelay) {
			return ctx.Err()
		}
		scans, err = l.r.Scan(ctx)
	}
	if err != nil {
		return radio.Fail(op, err)
	}
	if len(scans) == 0 {
		return errcode.New(errcode.NotFound, op, "scan found no networks")
	}
	for _, sc := range scans {
		l.log.Debug().Str("ssid", sc.SSID).Int("rssi", sc.RSSI).Str("bssid", sc.BSSID.String()).Msg("scan result")
	}

	ranked, err := l.store.List(ctx, 0)
	if err != nil {
		return err
	}
	m, err := selector.FindBest(ranked, scans, l.floor)
	if err != nil {
		return err
	}
	cfg := selector.ConnectConfig(m)
	l.log.Info().Str("ssid", cfg.SSID).Int("rssi", m.Scan.RSSI).Bool("pinned", cfg.BSSIDSet).
		Uint8("channel", cfg.Channel).Msg("connecting to best network")

	if err := l.connect(cfg); err != nil {
		if !cfg.BSSIDSet {
			return err
		}
		l.log.Warn().Err(err).Msg("pinned connect rejected, retrying by name")
		cfg = cfg.Unpinned()
		if err := l.connect(cfg); err != nil {
			return err
		}
	}
	l.note.NoteAttempt(cfg)
	return nil
}

func (l *Loop) connect(cfg radio.Config) error {
	const op = "reconnect.connect"
	if err := l.r.SetConfig(cfg); err != nil {
		return radio.Fail(op, err)
	}
	if err := l.r.Connect(cfg); err != nil {
		return radio.Fail(op, err)
	}
	return nil
}

// waitIdle polls until the station is not associated.
func (l *Loop) waitIdle(ctx context.Context) bool {
	for i := 0; i < l.t.IdlePolls; i++ {
		if _, err := l.r.AssociatedInfo(); err != nil {
			return true
		}
		if !l.sleep(ctx, l.t.IdlePoll) {
			return false
		}
	}
	return false
}

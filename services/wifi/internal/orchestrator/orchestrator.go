// Package orchestrator reacts to radio events: it books successes into the
// history store and retries failed associations with a per-reason policy.
// Once retries are exhausted it goes idle and leaves recovery to the
// reconnect loop.
package orchestrator

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/bus"
	"wificode-go/errcode"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/history"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/timex"
	"wificode-go/x/util"
)

const (
	DefaultMaxRetries    = 5
	DefaultPinnedRetries = 2
	DefaultBackoff       = 1 * time.Second
	commandQueueLen      = 8

	// eventQueueLen bounds the driver events buffered while a backoff
	// sleep holds the loop; past it the oldest are dropped.
	eventQueueLen = 64
)

// Store is the part of the history store the orchestrator writes.
type Store interface {
	RecordSuccess(ctx context.Context, name string) error
	Upsert(ctx context.Context, p history.NetworkParams) error
}

// Recovery persists the boot-time recovery hints.
type Recovery interface {
	SetConnectionFailed(failed bool) error
	SaveStationConfig(cfg radio.Config) error
}

type Options struct {
	MaxRetries    int
	PinnedRetries int
	Backoff       time.Duration
	Sleep         util.SleepFunc
	Logger        *zerolog.Logger
	// OnNetworkUp runs once per process on the first acquired address.
	OnNetworkUp func()
}

type cmdKind uint8

const (
	cmdNoteAttempt cmdKind = iota
	cmdResetRetry
)

type command struct {
	kind cmdKind
	cfg  radio.Config
}

type Orchestrator struct {
	r     radio.Radio
	store Store
	rec   Recovery
	conn  *bus.Connection
	log   zerolog.Logger

	maxRetries    int
	pinnedRetries int
	backoff       time.Duration
	sleep         util.SleepFunc
	onNetUp       func()
	netOnce       sync.Once

	cmds chan command
	done chan struct{}

	// loop-owned
	state       types.ConnState
	retry       int
	reason      types.DisconnectReason
	bssidLocked bool
	ssid        string

	mu   sync.Mutex
	snap types.WiFiState
}

func New(r radio.Radio, store Store, rec Recovery, conn *bus.Connection, opt Options) *Orchestrator {
	o := &Orchestrator{
		r:             r,
		store:         store,
		rec:           rec,
		conn:          conn,
		maxRetries:    opt.MaxRetries,
		pinnedRetries: opt.PinnedRetries,
		backoff:       opt.Backoff,
		sleep:         opt.Sleep,
		onNetUp:       opt.OnNetworkUp,
		cmds:          make(chan command, commandQueueLen),
		done:          make(chan struct{}),
		state:         types.StateIdle,
	}
	if o.maxRetries <= 0 {
		o.maxRetries = DefaultMaxRetries
	}
	if o.pinnedRetries <= 0 {
		o.pinnedRetries = DefaultPinnedRetries
	}
	if o.backoff <= 0 {
		o.backoff = DefaultBackoff
	}
	if o.sleep == nil {
		o.sleep = util.Sleep
	}
	if opt.Logger != nil {
		o.log = *opt.Logger
	} else {
		o.log = logx.WithComponent("wifi.orch")
	}
	o.snap = types.WiFiState{State: types.StateIdle}
	return o
}

// Start subscribes to driver events and runs the event loop until ctx is
// done. Events published after Start returns are never missed.
func (o *Orchestrator) Start(ctx context.Context) {
	sub := o.conn.SubscribeN(bus.T(consts.TokWiFi, consts.TokEvent), eventQueueLen)
	o.publishState()
	go o.loop(ctx, sub)
}

// Done is closed when the loop has exited.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// NoteAttempt tells the orchestrator a connect with cfg was just issued by
// someone else. It does not reset the retry budget.
func (o *Orchestrator) NoteAttempt(cfg radio.Config) {
	o.emit(command{kind: cmdNoteAttempt, cfg: cfg})
}

// ResetRetry restores the retry budget and clears the failed flag.
func (o *Orchestrator) ResetRetry() {
	o.emit(command{kind: cmdResetRetry})
}

// emit never blocks; a full queue drops the command.
func (o *Orchestrator) emit(c command) {
	select {
	case o.cmds <- c:
	default:
		o.log.Warn().Uint8("cmd", uint8(c.kind)).Msg("command queue full, dropped")
	}
}

// State returns the last published state.
func (o *Orchestrator) State() types.WiFiState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

func (o *Orchestrator) loop(ctx context.Context, sub *bus.Subscription) {
	defer close(o.done)
	defer o.conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if ev, ok := msg.Payload.(types.WiFiEvent); ok {
				o.handle(ctx, ev)
			}
		case c := <-o.cmds:
			o.command(c)
		}
	}
}

func (o *Orchestrator) command(c command) {
	switch c.kind {
	case cmdNoteAttempt:
		o.ssid = c.cfg.SSID
		o.bssidLocked = c.cfg.BSSIDSet
		o.state = types.StateConnecting
	case cmdResetRetry:
		o.retry = 0
		if err := o.rec.SetConnectionFailed(false); err != nil {
			o.log.Warn().Err(err).Msg("clear failed flag")
		}
	}
	o.publishState()
}

func (o *Orchestrator) handle(ctx context.Context, ev types.WiFiEvent) {
	switch ev.Kind {
	case types.EventStationStarted:
		o.log.Info().Msg("station started, waiting for a connect request")
	case types.EventConnected:
		o.onConnected(ctx, ev)
	case types.EventIPAcquired:
		o.onIP(ev)
	case types.EventDisconnected:
		o.onDisconnected(ctx, ev.Reason)
	}
	o.publishState()
}

func (o *Orchestrator) onConnected(ctx context.Context, ev types.WiFiEvent) {
	o.retry = 0
	o.state = types.StateConnected
	cfg := o.r.ActiveConfig()
	o.ssid = cfg.SSID
	o.bssidLocked = cfg.BSSIDSet
	o.log.Info().Str("ssid", ev.SSID).Uint8("channel", ev.Channel).Str("bssid", ev.BSSID.String()).Msg("associated")

	err := o.store.RecordSuccess(ctx, cfg.SSID)
	if errcode.Of(err) == errcode.NotFound {
		// Joined by explicit request; remember it.
		p := history.NetworkParams{
			Name:    cfg.SSID,
			Secret:  &cfg.Password,
			BSSID:   ev.BSSID,
			Channel: ev.Channel,
			Auth:    cfg.AuthMin,
		}
		if info, ierr := o.r.AssociatedInfo(); ierr == nil {
			p.RSSI = info.RSSI
			p.Auth = info.Auth
		}
		err = o.store.Upsert(ctx, p)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("ssid", cfg.SSID).Msg("history update failed")
	}
}

func (o *Orchestrator) onIP(ev types.WiFiEvent) {
	o.retry = 0
	o.state = types.StateConnected
	o.log.Info().Str("ip", ev.IP.String()).Str("gw", ev.Gateway.String()).Msg("address acquired")

	if err := o.rec.SetConnectionFailed(false); err != nil {
		o.log.Warn().Err(err).Msg("persist success flag")
	}
	if err := o.rec.SaveStationConfig(o.r.ActiveConfig()); err != nil {
		o.log.Warn().Err(err).Msg("save station config")
	}
	o.conn.Publish(o.conn.NewMessage(bus.T(consts.TokWiFi, consts.TokNet), types.NetInfo{
		IP:      addrString(ev.IP),
		Gateway: addrString(ev.Gateway),
		Netmask: addrString(ev.Netmask),
		TS:      timex.NowMs(),
	}, true))
	if o.onNetUp != nil {
		o.netOnce.Do(o.onNetUp)
	}
}

func (o *Orchestrator) onDisconnected(ctx context.Context, reason types.DisconnectReason) {
	o.reason = reason
	bucket := reason.Bucket()
	l := o.log.With().Str("reason", reason.String()).Str("bucket", bucket.String()).Int("retry", o.retry).Logger()

	switch bucket {
	case types.BucketAPNotFound:
		if o.bssidLocked && o.retry < o.pinnedRetries {
			cfg := o.r.ActiveConfig().Unpinned()
			if err := o.r.SetConfig(cfg); err != nil {
				l.Warn().Err(err).Msg("strip bssid pin")
			}
			o.bssidLocked = false
			o.retry++
			o.state = types.StateConnecting
			l.Info().Msg("ap not found with pin, retrying by name")
			o.reconnect(l, cfg)
			return
		}
		o.exhaust(l, "ap not found")
	case types.BucketAuth:
		o.exhaust(l, "credentials rejected")
	default:
		if o.retry < o.maxRetries {
			if !o.sleep(ctx, o.backoff) {
				return
			}
			o.retry++
			o.state = types.StateConnecting
			l.Info().Int("attempt", o.retry).Int("max", o.maxRetries).Msg("reconnecting")
			o.reconnect(l, o.r.ActiveConfig())
			return
		}
		o.exhaust(l, "retries exhausted")
		if err := o.rec.SetConnectionFailed(true); err != nil {
			l.Warn().Err(err).Msg("persist failed flag")
		}
	}
}

// reconnect issues a connect; driver errors are logged and count as the
// attempt already spent.
func (o *Orchestrator) reconnect(l zerolog.Logger, cfg radio.Config) {
	if err := radio.Fail("orchestrator.reconnect", o.r.Connect(cfg)); err != nil {
		reason, _ := errcode.ReasonOf(err)
		l.Warn().Err(err).Int("driver_reason", reason).Msg("reconnect rejected by driver")
	}
}

func (o *Orchestrator) exhaust(l zerolog.Logger, why string) {
	o.retry = o.maxRetries
	o.state = types.StateIdle
	l.Warn().Msg(why + ", deferring to reconnect loop")
}

func (o *Orchestrator) publishState() {
	st := types.WiFiState{
		State:       o.state,
		SSID:        o.ssid,
		Retry:       o.retry,
		BSSIDLocked: o.bssidLocked,
		TS:          timex.NowMs(),
	}
	if o.reason != 0 {
		st.Reason = o.reason.String()
	}
	o.mu.Lock()
	o.snap = st
	o.mu.Unlock()
	o.conn.Publish(o.conn.NewMessage(bus.T(consts.TokWiFi, consts.TokState), st, true))
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}

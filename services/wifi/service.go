// Package wifi wires the station stack together: the history store, the
// event orchestrator, the reconnect loop and the wifi/control verbs.
package wifi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/bus"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/history"
	"wificode-go/services/wifi/internal/orchestrator"
	"wificode-go/services/wifi/internal/reconnect"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/nvs"
	"wificode-go/x/timex"
	"wificode-go/x/util"
)

const defaultConfigWait = 500 * time.Millisecond

var (
	topicCtrl   = bus.T(consts.TokWiFi, consts.TokControl, bus.SingleWild)
	topicStatus = bus.T(consts.TokWiFi, consts.TokStatus)
	topicEvent  = bus.T(consts.TokWiFi, consts.TokEvent)
)

type Options struct {
	// ConfigWait bounds the wait for the retained config/wifi message.
	ConfigWait time.Duration
	// Sleep replaces util.Sleep in the orchestrator and the reconnect loop.
	Sleep util.SleepFunc
	// OnNetworkUp runs once, on the first acquired address.
	OnNetworkUp func()
	Logger      *zerolog.Logger
}

type Service struct {
	conn *bus.Connection
	r    radio.Radio
	kv   nvs.Store
	opt  Options
	log  zerolog.Logger

	cfg   Config
	store *history.Store
	rec   recovery
	orch  *orchestrator.Orchestrator
	loop  *reconnect.Loop

	connecting atomic.Bool
	wg         sync.WaitGroup
	ready      chan struct{}
	done       chan struct{}
}

func New(conn *bus.Connection, r radio.Radio, kv nvs.Store, opt Options) *Service {
	s := &Service{
		conn:  conn,
		r:     r,
		kv:    kv,
		opt:   opt,
		rec:   recovery{kv: kv},
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	if opt.ConfigWait <= 0 {
		s.opt.ConfigWait = defaultConfigWait
	}
	if opt.Logger != nil {
		s.log = *opt.Logger
	} else {
		s.log = logx.WithComponent("wifi")
	}
	return s
}

// EventPublisher returns a radio.Notify that publishes driver events on
// wifi/event.
func EventPublisher(conn *bus.Connection) radio.Notify {
	return func(ev types.WiFiEvent) {
		conn.Publish(conn.NewMessage(topicEvent, ev, false))
	}
}

// Start runs the service on its own goroutine.
func (s *Service) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Ready is closed once control requests are accepted.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run has returned.
func (s *Service) Done() <-chan struct{} { return s.done }

// Run blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	defer close(s.done)
	s.publishStatus("idle", "awaiting_config", nil)

	s.cfg = s.awaitConfig(ctx, s.conn, s.opt.ConfigWait)
	if ctx.Err() != nil {
		return
	}

	s.store = history.New(s.kv,
		history.WithLockTimeout(timex.Ms(s.cfg.LockTimeoutMs, history.DefaultLockTimeout)),
		history.WithLogger(s.log.With().Str("component", "wifi.history").Logger()))
	if err := s.store.Init(ctx); err != nil {
		s.publishStatus("error", "history_init_failed", err)
		return
	}
	s.restoreStation()

	orchLog := s.log.With().Str("component", "wifi.orch").Logger()
	s.orch = orchestrator.New(s.r, s.store, s.rec, s.conn, orchestrator.Options{
		MaxRetries:  s.cfg.MaxRetries,
		Backoff:     timex.Ms(s.cfg.BackoffMs, orchestrator.DefaultBackoff),
		Sleep:       s.opt.Sleep,
		Logger:      &orchLog,
		OnNetworkUp: s.opt.OnNetworkUp,
	})
	loopLog := s.log.With().Str("component", "wifi.reconnect").Logger()
	s.loop = reconnect.New(s.r, s.store, s.orch, reconnect.Options{
		Timing:      s.cfg.timing(),
		MaxFailures: s.cfg.MaxFailures,
		Floor:       s.cfg.SignalFloor,
		Sleep:       s.opt.Sleep,
		Logger:      &loopLog,
	})

	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(ctrlSub)

	s.orch.Start(ctx)
	if *s.cfg.AutoConnect {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop.Run(ctx)
		}()
	}
	s.publishStatus("ready", "running", nil)
	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			<-s.orch.Done()
			s.wg.Wait()
			s.publishStatus("stopped", "context_cancelled", nil)
			return
		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				return
			}
			s.handleControl(ctx, msg)
		}
	}
}

// restoreStation applies the last working station config unless the
// previous boot ended with a failed connection.
func (s *Service) restoreStation() {
	if s.rec.ConnectionFailed() {
		s.log.Info().Msg("previous connection failed, not restoring station config")
		return
	}
	cfg, err := s.rec.LoadStationConfig()
	switch {
	case errors.Is(err, nvs.ErrNotFound):
		return
	case err != nil:
		s.log.Warn().Err(err).Msg("stored station config unreadable")
		return
	case cfg.SSID == "":
		return
	}
	if err := s.r.SetConfig(cfg); err != nil {
		s.log.Warn().Err(err).Str("ssid", cfg.SSID).Msg("restore station config failed")
		return
	}
	s.log.Info().Str("ssid", cfg.SSID).Msg("restored station config")
}

func (s *Service) publishStatus(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicStatus, st, true))
}

// Package app assembles the services of one node on a shared bus.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/bus"
	"wificode-go/services/config"
	"wificode-go/services/console"
	"wificode-go/services/heartbeat"
	"wificode-go/services/wifi"
	"wificode-go/services/wifi/radio"
	"wificode-go/x/logx"
	"wificode-go/x/nvs"
	"wificode-go/x/util"
)

const (
	busQueueLen   = 16
	logConfigWait = 200 * time.Millisecond
)

type Options struct {
	Device     string
	ConfigPath string
	// Console is optional.
	Console console.Port
	// Sleep overrides the wifi service waits; nil means real time.
	Sleep util.SleepFunc
}

type App struct {
	Bus  *bus.Bus
	opt  Options
	wifi *wifi.Service
	log  zerolog.Logger
}

func New(opt Options) *App {
	return &App{Bus: bus.NewBus(busQueueLen), opt: opt, log: logx.WithComponent("app")}
}

// Notify is the event sink to hand to the radio driver.
func (a *App) Notify() radio.Notify {
	return wifi.EventPublisher(a.Bus.NewConnection("radio"))
}

// Start brings up config, logging, wifi and the console. Heartbeat
// telemetry starts once the first address is acquired.
func (a *App) Start(ctx context.Context, r radio.Radio, kv nvs.Store) {
	cfgSvc := config.NewConfigService()
	cfgSvc.Path = a.opt.ConfigPath
	cfgSvc.Start(context.WithValue(ctx, config.CtxDeviceKey, a.opt.Device), a.Bus.NewConnection("config"))

	a.applyLogConfig(ctx)

	hb := heartbeat.New(r)
	hbConn := a.Bus.NewConnection("heartbeat")
	a.wifi = wifi.New(a.Bus.NewConnection("wifi"), r, kv, wifi.Options{
		Sleep: a.opt.Sleep,
		OnNetworkUp: func() {
			a.log.Info().Msg("network up, starting heartbeat")
			_ = hb.Start(ctx, hbConn)
		},
	})
	a.wifi.Start(ctx)

	if a.opt.Console != nil {
		console.New(a.Bus.NewConnection("console"), a.opt.Console).Start(ctx)
	}
	a.log.Info().Str("device", a.opt.Device).Msg("services started")
}

// Wifi returns the running wifi service; nil before Start.
func (a *App) Wifi() *wifi.Service { return a.wifi }

func (a *App) applyLogConfig(ctx context.Context) {
	conn := a.Bus.NewConnection("log")
	sub := conn.Subscribe(bus.T("config", "log"))
	defer conn.Unsubscribe(sub)

	select {
	case <-ctx.Done():
	case <-time.After(logConfigWait):
	case m := <-sub.Channel():
		var c logx.Config
		if err := util.DecodeJSON(m.Payload, &c); err != nil {
			a.log.Warn().Err(err).Msg("bad log config")
			return
		}
		if err := logx.Init(c); err != nil {
			a.log.Warn().Err(err).Msg("log config rejected")
			return
		}
		a.log = logx.WithComponent("app")
	}
}

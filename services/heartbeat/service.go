// Package heartbeat publishes periodic link telemetry on wifi/link.
package heartbeat

import (
	"context"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/bus"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/timex"
	"wificode-go/x/util"
)

const (
	defaultInterval = 10 * time.Second
	// weakRSSI and below reports the link as degraded.
	weakRSSI = -80
)

var (
	topicConfigHeartbeat = bus.T(consts.TokConfig, "heartbeat")
	topicLink            = bus.T(consts.TokWiFi, consts.TokLink)
)

// Source is the part of a radio driver the heartbeat reads.
type Source interface {
	AssociatedInfo() (radio.APInfo, error)
	Addr() (netip.Addr, error)
}

type Config struct {
	// Interval in seconds.
	Interval float64 `json:"interval"`
}

type Service struct {
	Src      Source
	Interval time.Duration

	log zerolog.Logger
}

func New(src Source) *Service {
	return &Service{Src: src, Interval: defaultInterval, log: logx.WithComponent("heartbeat")}
}

// Sample reads the link once.
func (s *Service) Sample() types.LinkInfo {
	li := types.LinkInfo{Link: types.LinkDown, TS: timex.NowMs()}
	ap, err := s.Src.AssociatedInfo()
	if err != nil {
		return li
	}
	li.SSID = ap.SSID
	li.Channel = ap.Channel
	li.RSSI = ap.RSSI
	if !ap.BSSID.IsZero() {
		li.BSSID = ap.BSSID.String()
	}
	addr, err := s.Src.Addr()
	if err == nil && addr.IsValid() && !addr.IsUnspecified() {
		li.IP = addr.String()
	}
	switch {
	case li.IP == "", ap.RSSI <= weakRSSI:
		li.Link = types.LinkDegraded
	default:
		li.Link = types.LinkUp
	}
	return li
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	s.publish(conn)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("heartbeat stopping")
			return
		case <-tick.C:
			s.publish(conn)
		case msg := <-cfgSub.Channel():
			var c Config
			if err := util.DecodeJSON(msg.Payload, &c); err != nil || c.Interval <= 0 {
				s.log.Warn().Interface("payload", msg.Payload).Msg("ignoring heartbeat config")
				continue
			}
			s.Interval = time.Duration(c.Interval * float64(time.Second))
			tick.Reset(s.Interval)
			s.log.Info().Dur("interval", s.Interval).Msg("heartbeat interval set")
		}
	}
}

func (s *Service) publish(conn *bus.Connection) {
	li := s.Sample()
	s.log.Debug().Str("link", string(li.Link)).Str("ssid", li.SSID).Int("rssi", li.RSSI).Msg("heartbeat")
	conn.Publish(conn.NewMessage(topicLink, li, true))
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

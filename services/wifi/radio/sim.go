package radio

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"wificode-go/types"
)

// SimAP is one simulated access point.
type SimAP struct {
	SSID     string         `yaml:"ssid"`
	BSSID    types.BSSID    `yaml:"bssid"`
	Channel  uint8          `yaml:"channel"`
	RSSI     int            `yaml:"rssi"`
	Auth     types.AuthMode `yaml:"auth"`
	Password string         `yaml:"password"`
}

// Sim is an in-process station driver over a list of simulated access
// points. Connect outcomes are delivered after Latency on a timer goroutine.
type Sim struct {
	Latency time.Duration

	mu         sync.Mutex
	notify     Notify
	aps        []SimAP
	mode       Mode
	cfg        Config
	connecting bool
	assoc      *SimAP
	addr       netip.Addr
	nextHost   byte
	attempt    uint64
	connects   int
}

func NewSim(notify Notify, aps ...SimAP) *Sim {
	return &Sim{
		Latency:  20 * time.Millisecond,
		notify:   notify,
		aps:      append([]SimAP(nil), aps...),
		mode:     ModeSTA,
		nextHost: 10,
	}
}

// SetAPs replaces the visible access points.
func (s *Sim) SetAPs(aps ...SimAP) {
	s.mu.Lock()
	s.aps = append([]SimAP(nil), aps...)
	s.mu.Unlock()
}

// SetMode forces the reported radio mode.
func (s *Sim) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// ConnectCalls counts accepted Connect calls.
func (s *Sim) ConnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// DropLink simulates losing the current association with reason.
func (s *Sim) DropLink(reason types.DisconnectReason) {
	s.mu.Lock()
	was := s.assoc != nil
	s.assoc = nil
	s.addr = netip.Addr{}
	s.mu.Unlock()
	if was {
		s.emit(types.WiFiEvent{Kind: types.EventDisconnected, Reason: reason})
	}
}

func (s *Sim) emit(ev types.WiFiEvent) {
	if s.notify != nil {
		s.notify(ev)
	}
}

func (s *Sim) Scan(ctx context.Context) ([]types.ScanCandidate, error) {
	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return nil, ErrState
	}
	out := make([]types.ScanCandidate, 0, len(s.aps))
	for _, ap := range s.aps {
		out = append(out, types.ScanCandidate{SSID: ap.SSID, RSSI: ap.RSSI, BSSID: ap.BSSID, Channel: ap.Channel, Auth: ap.Auth})
	}
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Sim) StopScan() error { return nil }

func (s *Sim) Connect(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeSTA && s.mode != ModeAPSTA {
		return ErrState
	}
	if s.connecting {
		return ErrBusy
	}
	s.cfg = cfg
	s.connecting = true
	s.connects++
	s.attempt++
	id := s.attempt
	time.AfterFunc(s.Latency, func() { s.resolve(id, cfg) })
	return nil
}

func (s *Sim) resolve(id uint64, cfg Config) {
	s.mu.Lock()
	if id != s.attempt || !s.connecting {
		s.mu.Unlock()
		return
	}
	s.connecting = false
	var ap *SimAP
	for i := range s.aps {
		c := &s.aps[i]
		if c.SSID != cfg.SSID || (cfg.BSSIDSet && c.BSSID != cfg.BSSID) {
			continue
		}
		if ap == nil || c.RSSI > ap.RSSI {
			ap = c
		}
	}
	if ap == nil {
		s.mu.Unlock()
		s.emit(types.WiFiEvent{Kind: types.EventDisconnected, SSID: cfg.SSID, Reason: types.ReasonNoAPFound})
		return
	}
	if ap.Password != "" && ap.Password != cfg.Password {
		s.mu.Unlock()
		s.emit(types.WiFiEvent{Kind: types.EventDisconnected, SSID: cfg.SSID, Reason: types.ReasonAuthFail})
		return
	}
	joined := *ap
	s.assoc = &joined
	s.addr = netip.AddrFrom4([4]byte{192, 168, 4, s.nextHost})
	s.nextHost++
	addr := s.addr
	s.mu.Unlock()

	s.emit(types.WiFiEvent{Kind: types.EventConnected, SSID: joined.SSID, Channel: joined.Channel, BSSID: joined.BSSID})
	s.emit(types.WiFiEvent{
		Kind:    types.EventIPAcquired,
		IP:      addr,
		Gateway: netip.AddrFrom4([4]byte{192, 168, 4, 1}),
		Netmask: netip.AddrFrom4([4]byte{255, 255, 255, 0}),
	})
}

func (s *Sim) SetConfig(cfg Config) error {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *Sim) Disconnect() error {
	s.DropLink(types.ReasonAssocLeave)
	return nil
}

func (s *Sim) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Sim) AssociatedInfo() (APInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assoc == nil {
		return APInfo{}, ErrNotAssociated
	}
	return APInfo{SSID: s.assoc.SSID, BSSID: s.assoc.BSSID, Channel: s.assoc.Channel, RSSI: s.assoc.RSSI, Auth: s.assoc.Auth}, nil
}

func (s *Sim) ActiveConfig() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Sim) Addr() (netip.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.addr.IsValid() {
		return netip.Addr{}, ErrNotAssociated
	}
	return s.addr, nil
}

func (s *Sim) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

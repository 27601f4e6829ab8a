package radio

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"

	"wificode-go/types"
)

// AddrSource reports the interface address. netdev.Netdever satisfies it.
type AddrSource interface {
	Addr() (netip.Addr, error)
}

// ScanFunc performs a blocking scan on drivers that expose one outside the
// netlink interface.
type ScanFunc func(ctx context.Context) ([]types.ScanCandidate, error)

type NetlinkOption func(*Netlink)

func WithScanner(f ScanFunc) NetlinkOption { return func(n *Netlink) { n.scan = f } }
func WithCountry(cc string) NetlinkOption { return func(n *Netlink) { n.country = cc } }
func WithConnectTimeout(d time.Duration) NetlinkOption { return func(n *Netlink) { n.timeout = d } }

// Netlink adapts a tinygo netlink.Netlinker (cyw43439, espat, ...) to Radio.
// NetConnect blocks for the whole attempt, so Connect runs it on its own
// goroutine and reports the outcome as events. BSSID pins are not
// expressible through netlink and are ignored.
type Netlink struct {
	link    netlink.Netlinker
	addr    AddrSource
	notify  Notify
	scan    ScanFunc
	country string
	timeout time.Duration

	mu         sync.Mutex
	cfg        Config
	connecting bool
	up         bool
}

func NewNetlink(link netlink.Netlinker, addr AddrSource, notify Notify, opts ...NetlinkOption) *Netlink {
	n := &Netlink{
		link:    link,
		addr:    addr,
		notify:  notify,
		timeout: netlink.DefaultConnectTimeout,
	}
	for _, o := range opts {
		o(n)
	}
	link.NetNotify(n.onEvent)
	return n
}

func (n *Netlink) emit(ev types.WiFiEvent) {
	if n.notify != nil {
		n.notify(ev)
	}
}

// onEvent handles link changes the driver reports on its own, e.g. from
// its watchdog.
func (n *Netlink) onEvent(e netlink.Event) {
	n.mu.Lock()
	was := n.up
	cfg := n.cfg
	switch e {
	case netlink.EventNetUp:
		n.up = true
	case netlink.EventNetDown:
		n.up = false
	}
	n.mu.Unlock()

	switch {
	case e == netlink.EventNetUp && !was:
		n.announceUp(cfg)
	case e == netlink.EventNetDown && was:
		n.emit(types.WiFiEvent{Kind: types.EventDisconnected, SSID: cfg.SSID, Reason: types.ReasonBeaconTimeout})
	}
}

func (n *Netlink) announceUp(cfg Config) {
	n.emit(types.WiFiEvent{Kind: types.EventConnected, SSID: cfg.SSID, Channel: cfg.Channel, BSSID: cfg.BSSID})
	if n.addr == nil {
		return
	}
	if ip, err := n.addr.Addr(); err == nil && ip.IsValid() && !ip.IsUnspecified() {
		n.emit(types.WiFiEvent{Kind: types.EventIPAcquired, IP: ip})
	}
}

// ReasonFor maps a netlink connect error to a disconnect reason.
func ReasonFor(err error) types.DisconnectReason {
	switch {
	case errors.Is(err, netlink.ErrAuthFailure),
		errors.Is(err, netlink.ErrShortPassphrase),
		errors.Is(err, netlink.ErrAuthTypeNoGood):
		return types.ReasonAuthFail
	case errors.Is(err, netlink.ErrConnectTimeout):
		return types.ReasonNoAPFound
	}
	return types.ReasonConnectionFail
}

func authType(cfg Config) netlink.AuthType {
	if cfg.Password == "" {
		return netlink.AuthTypeOpen
	}
	return netlink.AuthTypeWPA2
}

func (n *Netlink) Connect(cfg Config) error {
	if cfg.SSID == "" {
		return netlink.ErrMissingSSID
	}
	n.mu.Lock()
	if n.connecting {
		n.mu.Unlock()
		return ErrBusy
	}
	n.connecting = true
	n.cfg = cfg
	n.mu.Unlock()

	params := &netlink.ConnectParams{
		ConnectMode:    netlink.ConnectModeSTA,
		Ssid:           cfg.SSID,
		Passphrase:     cfg.Password,
		AuthType:       authType(cfg),
		Country:        n.country,
		Retries:        1,
		ConnectTimeout: n.timeout,
	}
	go n.run(params, cfg)
	return nil
}

func (n *Netlink) run(params *netlink.ConnectParams, cfg Config) {
	err := n.link.NetConnect(params)
	if errors.Is(err, netlink.ErrConnected) {
		err = nil
	}
	n.mu.Lock()
	n.connecting = false
	was := n.up
	if err == nil {
		n.up = true
	}
	n.mu.Unlock()

	if err != nil {
		n.emit(types.WiFiEvent{Kind: types.EventDisconnected, SSID: cfg.SSID, Reason: ReasonFor(err)})
		return
	}
	if !was {
		n.announceUp(cfg)
	}
}

func (n *Netlink) Scan(ctx context.Context) ([]types.ScanCandidate, error) {
	if n.scan == nil {
		return nil, ErrUnsupported
	}
	if n.Connecting() {
		return nil, ErrState
	}
	return n.scan(ctx)
}

func (n *Netlink) StopScan() error { return nil }

func (n *Netlink) SetConfig(cfg Config) error {
	n.mu.Lock()
	n.cfg = cfg
	n.mu.Unlock()
	return nil
}

func (n *Netlink) Disconnect() error {
	n.mu.Lock()
	n.up = false
	n.mu.Unlock()
	n.link.NetDisconnect()
	return nil
}

func (n *Netlink) Mode() Mode { return ModeSTA }

func (n *Netlink) AssociatedInfo() (APInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.up {
		return APInfo{}, ErrNotAssociated
	}
	return APInfo{SSID: n.cfg.SSID, BSSID: n.cfg.BSSID, Channel: n.cfg.Channel, Auth: n.cfg.AuthMin}, nil
}

func (n *Netlink) ActiveConfig() Config {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg
}

func (n *Netlink) Addr() (netip.Addr, error) {
	n.mu.Lock()
	up := n.up
	n.mu.Unlock()
	if !up {
		return netip.Addr{}, ErrNotAssociated
	}
	if n.addr == nil {
		return netip.Addr{}, ErrUnsupported
	}
	return n.addr.Addr()
}

func (n *Netlink) Connecting() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connecting
}

// Package radio is the contract between the wifi policy code and a station
// driver, plus the drivers this repo ships.
package radio

//go:generate mockgen -source=radio.go -destination=mock_radio.go -package=radio

import (
	"context"
	"errors"
	"net/netip"

	"wificode-go/errcode"
	"wificode-go/types"
)

type Mode uint8

const (
	ModeNull Mode = iota
	ModeSTA
	ModeAP
	ModeAPSTA
)

func (m Mode) String() string {
	switch m {
	case ModeSTA:
		return "sta"
	case ModeAP:
		return "ap"
	case ModeAPSTA:
		return "apsta"
	}
	return "null"
}

// Config is a station connect request. BSSID is honoured only when
// BSSIDSet is true.
type Config struct {
	SSID     string         `json:"ssid"`
	Password string         `json:"password,omitempty"`
	BSSID    types.BSSID    `json:"bssid,omitempty"`
	BSSIDSet bool           `json:"bssid_set,omitempty"`
	Channel  uint8          `json:"channel,omitempty"`
	AuthMin  types.AuthMode `json:"auth_min,omitempty"`
}

// Unpinned returns c without the BSSID pin.
func (c Config) Unpinned() Config {
	c.BSSID = types.BSSID{}
	c.BSSIDSet = false
	return c
}

// APInfo describes the access point the station is associated with.
type APInfo struct {
	SSID    string
	BSSID   types.BSSID
	Channel uint8
	RSSI    int
	Auth    types.AuthMode
}

var (
	ErrBusy          = errors.New("radio: connect in progress")
	ErrNotAssociated = errors.New("radio: not associated")
	ErrState         = errors.New("radio: wrong state for request")
	ErrUnsupported   = errors.New("radio: unsupported")
)

// Fail wraps a driver failure from op as errcode.DriverError, carrying
// the disconnect reason the failure maps to. A nil err stays nil.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return errcode.Driver(op, int(ReasonFor(err)), err)
}

// Radio is a station driver. Scan blocks until results are in; Connect
// only starts an attempt and the outcome arrives later as a WiFiEvent.
type Radio interface {
	Scan(ctx context.Context) ([]types.ScanCandidate, error)
	StopScan() error
	Connect(cfg Config) error
	SetConfig(cfg Config) error
	Disconnect() error
	Mode() Mode
	AssociatedInfo() (APInfo, error)
	ActiveConfig() Config
	Addr() (netip.Addr, error)
}

// BusyProber is implemented by drivers that can report an in-flight
// connect without side effects.
type BusyProber interface {
	Connecting() bool
}

// Notify receives driver events in emission order.
type Notify func(types.WiFiEvent)
